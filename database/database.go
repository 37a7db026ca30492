package database

import (
	"errors"

	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/logger"
	"github.com/anjiri1684/counsel_hub/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// GormConfig is shared by the production connection and the test database.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
	}
}

func ConnectDB() {
	var err error
	dsn := config.Config("DATABASE_URL")

	DB, err = gorm.Open(postgres.Open(dsn), GormConfig())
	if err != nil {
		logger.Log.Fatalw("🔥 Failed to connect to database", "error", err)
	}

	logger.Log.Info("✅ Database connected successfully")
}

func Migrate() error {
	return DB.AutoMigrate(
		&models.Client{},
		&models.Counselor{},
		&models.Admin{},
		&models.OTP{},
		&models.EmailVerification{},
		&models.Price{},
		&models.AvailabilityTemplate{},
		&models.Slot{},
		&models.Payment{},
		&models.Refund{},
		&models.Booking{},
		&models.Notification{},
		&models.Blog{},
	)
}

// DefaultPrices are the session price bounds per experience level in minor units.
var DefaultPrices = []models.Price{
	{Level: models.LevelEntry, MinPrice: 2000, MaxPrice: 5000},
	{Level: models.LevelIntermediate, MinPrice: 4000, MaxPrice: 8000},
	{Level: models.LevelSenior, MinPrice: 6000, MaxPrice: 12000},
	{Level: models.LevelExpert, MinPrice: 8000, MaxPrice: 20000},
}

// SeedPrices inserts any missing level bounds without touching edited ones.
func SeedPrices() error {
	for _, p := range DefaultPrices {
		price := p
		if err := DB.Where(models.Price{Level: price.Level}).FirstOrCreate(&price).Error; err != nil {
			return err
		}
	}
	return nil
}

func SeedAdmin() error {
	adminEmail := config.Config("SUPER_ADMIN_EMAIL")
	adminPassword := config.Config("SUPER_ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		logger.Log.Warn("SUPER_ADMIN_EMAIL or SUPER_ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	var count int64
	if err := DB.Model(&models.Admin{}).Where("email = ?", adminEmail).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Log.Info("Super admin already exists.")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	fullName := config.Config("SUPER_ADMIN_FULL_NAME")
	if fullName == "" {
		fullName = "Super Admin"
	}
	admin := models.Admin{
		FullName: fullName,
		Email:    adminEmail,
		Password: string(hashedPassword),
		Role:     models.RoleSuperAdmin,
		IsActive: true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}

	logger.Log.Info("✅ Super admin seeded successfully")
	return nil
}
