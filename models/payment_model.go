package models

import "github.com/google/uuid"

const (
	PaymentCaptured          = "captured"
	PaymentPartiallyRefunded = "partially_refunded"
	PaymentRefunded          = "refunded"

	RefundPending   = "pending"
	RefundSucceeded = "succeeded"
)

type Payment struct {
	Base
	ClientID          uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	Provider          string    `gorm:"size:50;not null" json:"provider"`
	ProviderPaymentID string    `gorm:"size:255;not null;uniqueIndex" json:"provider_payment_id"`
	ProviderCaptureID string    `gorm:"size:255" json:"provider_capture_id"`
	Method            string    `gorm:"size:50" json:"method"`
	Amount            int64     `gorm:"not null" json:"amount"`
	Currency          string    `gorm:"size:3;not null" json:"currency"`
	ProviderFee       int64     `json:"provider_fee"`
	RefundedAmount    int64     `json:"refunded_amount"`
	Status            string    `gorm:"size:20;not null;index" json:"status"`
	Refunds           []Refund  `gorm:"foreignKey:PaymentID" json:"refunds,omitempty"`
}

// Refund is written as pending together with the settlement and sent to the
// provider after commit. IdempotencyKey is reused on every retry.
type Refund struct {
	Base
	PaymentID        uuid.UUID `gorm:"type:uuid;not null;index" json:"payment_id"`
	BookingID        uuid.UUID `gorm:"type:uuid;index" json:"booking_id"`
	Amount           int64     `gorm:"not null" json:"amount"`
	ProviderRefundID string    `gorm:"size:255" json:"provider_refund_id"`
	Reason           string    `gorm:"type:text" json:"reason"`
	IdempotencyKey   string    `gorm:"size:255;not null;uniqueIndex" json:"-"`
	Status           string    `gorm:"size:20;not null;index" json:"status"`
	Attempts         int       `gorm:"not null" json:"attempts"`
	LastError        *string   `gorm:"type:text" json:"last_error,omitempty"`
}
