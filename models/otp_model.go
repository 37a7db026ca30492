package models

import "time"

const (
	OTPPurposeRegister      = "register"
	OTPPurposeResetPassword = "reset_password"
)

// OTP is a short-lived one-time code. At most one exists per
// (email, role, purpose).
type OTP struct {
	Base
	Email     string    `gorm:"size:255;not null;uniqueIndex:idx_otp_identity" json:"email"`
	Role      string    `gorm:"size:20;not null;uniqueIndex:idx_otp_identity" json:"role"`
	Purpose   string    `gorm:"size:20;not null;uniqueIndex:idx_otp_identity" json:"purpose"`
	Code      string    `gorm:"size:6;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}

func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// EmailVerification records a successfully verified OTP until it is consumed.
type EmailVerification struct {
	Base
	Email      string    `gorm:"size:255;not null;index" json:"email"`
	Role       string    `gorm:"size:20;not null" json:"role"`
	Purpose    string    `gorm:"size:20;not null" json:"purpose"`
	VerifiedAt time.Time `gorm:"not null" json:"verified_at"`
}
