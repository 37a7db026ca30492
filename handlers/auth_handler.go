package handlers

import (
	"errors"
	"time"

	"github.com/anjiri1684/counsel_hub/apperrors"
	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/logger"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/notifications"
	"github.com/anjiri1684/counsel_hub/services"
	"github.com/anjiri1684/counsel_hub/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var validate = validator.New()

// parseBody decodes the request body into req and validates it.
func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.BadRequest("Cannot parse JSON")
	}
	if err := validate.Struct(req); err != nil {
		return apperrors.BadRequest("%s", err.Error())
	}
	return nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperrors.BadRequest("Invalid %s", name)
	}
	return id, nil
}

func setAuthCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// account is the part of a client or counselor the auth flows need.
type account struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Password string    `json:"-"`
	Blocked  bool      `json:"is_blocked"`
}

func accountModel(role string) any {
	if role == models.RoleCounselor {
		return &models.Counselor{}
	}
	return &models.Client{}
}

func findAccount(role, where string, args ...any) (*account, error) {
	switch role {
	case models.RoleClient:
		var u models.Client
		if err := database.DB.Where(where, args...).First(&u).Error; err != nil {
			return nil, err
		}
		return &account{ID: u.ID, FullName: u.FullName, Email: u.Email, Password: u.Password, Blocked: u.IsBlocked}, nil
	case models.RoleCounselor:
		var u models.Counselor
		if err := database.DB.Where(where, args...).First(&u).Error; err != nil {
			return nil, err
		}
		return &account{ID: u.ID, FullName: u.FullName, Email: u.Email, Password: u.Password, Blocked: u.IsBlocked}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func emailRegistered(role, email string) (bool, error) {
	var count int64
	err := database.DB.Model(accountModel(role)).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

type SendOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"omitempty,oneof=register reset_password"`
}

type VerifyOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	OTP     string `json:"otp" validate:"required,len=6,numeric"`
	Purpose string `json:"purpose" validate:"omitempty,oneof=register reset_password"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

func SendOTP(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SendOTPRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		if req.Purpose == "" {
			req.Purpose = models.OTPPurposeRegister
		}

		exists, err := emailRegistered(role, req.Email)
		if err != nil {
			return err
		}
		if req.Purpose == models.OTPPurposeRegister && exists {
			return apperrors.BadRequest("Email is already registered")
		}
		if req.Purpose == models.OTPPurposeResetPassword && !exists {
			return utils.Respond(c, fiber.StatusOK, "If an account with that email exists, an OTP has been sent", nil)
		}

		if _, err := services.IssueOTP(database.DB, req.Email, role, req.Purpose); err != nil {
			return err
		}
		if req.Purpose == models.OTPPurposeResetPassword {
			return utils.Respond(c, fiber.StatusOK, "If an account with that email exists, an OTP has been sent", nil)
		}
		return utils.Respond(c, fiber.StatusOK, "OTP sent successfully", nil)
	}
}

func VerifyOTP(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req VerifyOTPRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		if req.Purpose == "" {
			req.Purpose = models.OTPPurposeRegister
		}
		if err := services.ConsumeOTP(database.DB, req.Email, role, req.Purpose, req.OTP); err != nil {
			return err
		}
		if err := services.RecordVerification(database.DB, req.Email, role, req.Purpose); err != nil {
			return err
		}
		return utils.Respond(c, fiber.StatusOK, "Email Verified Successfully", nil)
	}
}

func ResetPassword(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ResetPasswordRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		if err := services.ConsumeOTP(database.DB, req.Email, role, models.OTPPurposeResetPassword, req.OTP); err != nil {
			return err
		}
		hashed, err := services.HashPassword(req.NewPassword)
		if err != nil {
			return err
		}
		res := database.DB.Model(accountModel(role)).Where("email = ?", req.Email).Update("password", hashed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("Account not found")
		}
		return utils.Respond(c, fiber.StatusOK, "Password has been reset successfully", nil)
	}
}

// Login accepts an email or username.
func Login(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}

		acc, err := findAccount(role, "email = ? OR username = ?", req.Identifier, req.Identifier)
		if err != nil || !services.CheckPassword(acc.Password, req.Password) {
			return apperrors.Unauthorized("Invalid credentials")
		}
		if acc.Blocked {
			return apperrors.Forbidden("Your account has been blocked")
		}
		return respondWithToken(c, fiber.StatusOK, "Login successful", acc.ID, role, acc)
	}
}

func respondWithToken(c *fiber.Ctx, status int, message string, userID uuid.UUID, role string, user any) error {
	token, expires, err := services.IssueToken(userID, role)
	if err != nil {
		return apperrors.Internal("Failed to create token")
	}
	setAuthCookie(c, token, expires)
	return utils.Respond(c, status, message, fiber.Map{"token": token, "role": role, "user": user})
}

func Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    "",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return utils.Respond(c, fiber.StatusOK, "Logged out successfully", nil)
}

type RegisterClientRequest struct {
	FullName    string            `json:"fullName" validate:"required,min=3,max=255"`
	Username    string            `json:"username" validate:"required,alphanum,min=3,max=50"`
	Email       string            `json:"email" validate:"required,email"`
	Phone       string            `json:"phone" validate:"required,e164"`
	Password    string            `json:"password" validate:"required,min=8"`
	Preferences map[string]string `json:"preferences"`
}

func RegisterClient(c *fiber.Ctx) error {
	var req RegisterClientRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := services.RequireVerification(database.DB, req.Email, models.RoleClient); err != nil {
		return err
	}
	hashed, err := services.HashPassword(req.Password)
	if err != nil {
		return err
	}

	client := models.Client{
		FullName:    req.FullName,
		Username:    req.Username,
		Email:       req.Email,
		Phone:       req.Phone,
		Password:    hashed,
		Preferences: req.Preferences,
	}
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&client).Error; err != nil {
			return err
		}
		if err := services.ClearVerifications(tx, client.Email, models.RoleClient); err != nil {
			return err
		}
		return notifications.Enqueue(tx, notifications.ClientRecipient(&client), notifications.TemplateWelcome, map[string]any{"Name": client.FullName})
	})
	if err != nil {
		return registrationError(err)
	}

	logger.Log.Infow("✅ Client registered", "client_id", client.ID)
	return respondWithToken(c, fiber.StatusCreated, "Registration successful", client.ID, models.RoleClient, client)
}

type RegisterCounselorRequest struct {
	FullName        string   `json:"fullName" validate:"required,min=3,max=255"`
	Username        string   `json:"username" validate:"required,alphanum,min=3,max=50"`
	Email           string   `json:"email" validate:"required,email"`
	Phone           string   `json:"phone" validate:"required,e164"`
	Password        string   `json:"password" validate:"required,min=8"`
	Bio             string   `json:"bio" validate:"max=5000"`
	Specializations []string `json:"specializations" validate:"max=20,dive,min=2,max=100"`
	ExperienceYears int      `json:"experienceYears" validate:"min=0,max=70"`
}

func RegisterCounselor(c *fiber.Ctx) error {
	var req RegisterCounselorRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := services.RequireVerification(database.DB, req.Email, models.RoleCounselor); err != nil {
		return err
	}
	hashed, err := services.HashPassword(req.Password)
	if err != nil {
		return err
	}

	counselor := models.Counselor{
		FullName:        req.FullName,
		Username:        req.Username,
		Email:           req.Email,
		Phone:           req.Phone,
		Password:        hashed,
		Bio:             req.Bio,
		Specializations: req.Specializations,
		ExperienceYears: req.ExperienceYears,
		ExperienceLevel: services.ExperienceLevel(req.ExperienceYears),
		Application:     models.Application{Status: models.ApplicationNotSubmitted},
	}
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&counselor).Error; err != nil {
			return err
		}
		if err := services.ClearVerifications(tx, counselor.Email, models.RoleCounselor); err != nil {
			return err
		}
		return notifications.Enqueue(tx, notifications.CounselorRecipient(&counselor), notifications.TemplateWelcome, map[string]any{"Name": counselor.FullName})
	})
	if err != nil {
		return registrationError(err)
	}

	logger.Log.Infow("✅ Counselor registered", "counselor_id", counselor.ID)
	return respondWithToken(c, fiber.StatusCreated, "Registration successful", counselor.ID, models.RoleCounselor, counselor)
}

func registrationError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.BadRequest("Email, username or phone is already registered")
	}
	return err
}

type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func AdminLogin(c *fiber.Ctx) error {
	var req AdminLoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var admin models.Admin
	if err := database.DB.Where("email = ?", req.Email).First(&admin).Error; err != nil {
		return apperrors.Unauthorized("Invalid credentials")
	}
	if !services.CheckPassword(admin.Password, req.Password) {
		return apperrors.Unauthorized("Invalid credentials")
	}
	if !admin.IsActive {
		return apperrors.Forbidden("Your account has been deactivated")
	}
	return respondWithToken(c, fiber.StatusOK, "Login successful", admin.ID, admin.Role, admin)
}
