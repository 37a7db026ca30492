package config

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	v    = viper.New()
	once sync.Once
)

func load() {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("Warning: .env file not found, reading from system environment variables")
		}
		v.AutomaticEnv()
		setDefaults()
	})
}

func setDefaults() {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_TIMEZONE", "UTC")
	v.SetDefault("FRONTEND_ORIGIN", "*")

	v.SetDefault("JWT_EXPIRES_IN", "72h")
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("EMAIL_VERIFICATION_TTL", "30m")

	v.SetDefault("CURRENCY", "USD")
	v.SetDefault("PLATFORM_COMMISSION_RATE", 0.20)
	v.SetDefault("DISPUTE_WINDOW", "48h")
	v.SetDefault("COMPLETION_GRACE", "12h")
	v.SetDefault("CANCELLATION_FULL_REFUND_WINDOW", "24h")
	v.SetDefault("CANCELLATION_LATE_REFUND_RATE", 0.5)
	v.SetDefault("SLOT_GENERATION_DAYS", 14)
	v.SetDefault("DEFAULT_SESSION_MINUTES", 60)

	v.SetDefault("MAIL_PROVIDER", "noop")
	v.SetDefault("EMAIL_SENDER_NAME", "Counsel Hub")
	v.SetDefault("NOTIFICATION_MAX_ATTEMPTS", 5)
	v.SetDefault("NOTIFICATION_BATCH_SIZE", 50)

	v.SetDefault("STORAGE_PROVIDER", "memory")
	v.SetDefault("STORAGE_FOLDER", "counsel_hub")

	v.SetDefault("PAYMENT_PROVIDERS", "sandbox")
	v.SetDefault("PAYPAL_API_BASE_URL", "https://api-m.sandbox.paypal.com")

	v.SetDefault("KAFKA_TOPIC", "booking-events")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
}

// Config returns the raw string value for key, read from the environment
// (after .env is loaded) or from the registered defaults.
func Config(key string) string {
	load()
	return v.GetString(key)
}

func Int(key string) int {
	load()
	return v.GetInt(key)
}

func Float(key string) float64 {
	load()
	return v.GetFloat64(key)
}

func Bool(key string) bool {
	load()
	return v.GetBool(key)
}

func Duration(key string) time.Duration {
	load()
	return v.GetDuration(key)
}

// Strings splits a comma separated value, dropping blanks.
func Strings(key string) []string {
	var out []string
	for _, part := range strings.Split(Config(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Set overrides a key for the lifetime of the process.
func Set(key string, value any) {
	load()
	v.Set(key, value)
}

func IsProduction() bool {
	return strings.EqualFold(Config("APP_ENV"), "production")
}

// Location resolves APP_TIMEZONE, falling back to UTC.
func Location() *time.Location {
	loc, err := time.LoadLocation(Config("APP_TIMEZONE"))
	if err != nil {
		return time.UTC
	}
	return loc
}
