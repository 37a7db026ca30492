package services

import (
	"errors"
	"time"

	"github.com/anjiri1684/counsel_hub/apperrors"
	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/notifications"
	"github.com/anjiri1684/counsel_hub/utils"
	"gorm.io/gorm"
)

// IssueOTP replaces any outstanding code for (email, role, purpose) with a
// fresh one and queues it for delivery.
func IssueOTP(db *gorm.DB, email, role, purpose string) (*models.OTP, error) {
	code, err := utils.GenerateOTP()
	if err != nil {
		return nil, err
	}
	ttl := config.Duration("OTP_TTL")
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	otp := models.OTP{
		Email:     email,
		Role:      role,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: Now().Add(ttl),
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ? AND role = ? AND purpose = ?", email, role, purpose).Delete(&models.OTP{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&otp).Error; err != nil {
			return err
		}
		return notifications.Enqueue(tx, notifications.Recipient{Email: email}, notifications.TemplateOTP, map[string]any{
			"Code":    code,
			"Minutes": int(ttl.Minutes()),
		})
	})
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// ConsumeOTP checks code against the outstanding OTP and deletes it on
// success. An expired OTP is deleted as well, so a second attempt reports
// not found.
func ConsumeOTP(db *gorm.DB, email, role, purpose, code string) error {
	var otp models.OTP
	err := db.Where("email = ? AND role = ? AND purpose = ?", email, role, purpose).First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("OTP not found")
		}
		return err
	}

	if otp.Expired(Now()) {
		if err := db.Delete(&otp).Error; err != nil {
			return err
		}
		return apperrors.BadRequest("OTP expired")
	}
	if otp.Code != code {
		return apperrors.BadRequest("Invalid OTP")
	}
	return db.Delete(&otp).Error
}

// RecordVerification stores proof that email passed OTP verification.
func RecordVerification(db *gorm.DB, email, role, purpose string) error {
	return db.Create(&models.EmailVerification{
		Email:      email,
		Role:       role,
		Purpose:    purpose,
		VerifiedAt: Now(),
	}).Error
}

// RequireVerification fails unless email was verified recently enough for
// registration.
func RequireVerification(db *gorm.DB, email, role string) error {
	ttl := config.Duration("EMAIL_VERIFICATION_TTL")
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	var count int64
	err := db.Model(&models.EmailVerification{}).
		Where("email = ? AND role = ? AND purpose = ? AND verified_at >= ?", email, role, models.OTPPurposeRegister, Now().Add(-ttl)).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return apperrors.BadRequest("Email has not been verified")
	}
	return nil
}

func ClearVerifications(db *gorm.DB, email, role string) error {
	return db.Where("email = ? AND role = ?", email, role).Delete(&models.EmailVerification{}).Error
}

// PurgeExpiredOTPs removes codes past their expiry and stale verifications.
func PurgeExpiredOTPs(db *gorm.DB) (int64, error) {
	now := Now()
	res := db.Where("expires_at < ?", now).Delete(&models.OTP{})
	if res.Error != nil {
		return 0, res.Error
	}
	ttl := config.Duration("EMAIL_VERIFICATION_TTL")
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if err := db.Where("verified_at < ?", now.Add(-ttl)).Delete(&models.EmailVerification{}).Error; err != nil {
		return res.RowsAffected, err
	}
	return res.RowsAffected, nil
}
