package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	BookingConfirmed         = "confirmed"
	BookingCompletedPending  = "completed_pending"
	BookingDisputeWindowOpen = "dispute_window_open"
	BookingDisputed          = "disputed"
	BookingCompletedFinal    = "completed_final"
	BookingCancelled         = "cancelled"
	BookingNoShow            = "no_show"
)

const (
	PayoutPending  = "pending"
	PayoutReleased = "released"
	PayoutRefunded = "refunded"
)

const (
	DisputeNone        = "none"
	DisputeOpen        = "open"
	DisputeUnderReview = "under_review"
	DisputeResolved    = "resolved"
)

type Booking struct {
	Base
	ClientID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	CounselorID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"counselor_id"`
	SlotID              uuid.UUID  `gorm:"type:uuid;not null;index" json:"slot_id"`
	PaymentID           uuid.UUID  `gorm:"type:uuid;not null" json:"payment_id"`
	Status              string     `gorm:"size:30;not null;index" json:"status"`
	Amount              int64      `gorm:"not null" json:"amount"`
	Currency            string     `gorm:"size:3;not null" json:"currency"`
	StartsAt            time.Time  `gorm:"not null;index" json:"starts_at"`
	EndsAt              time.Time  `gorm:"not null;index" json:"ends_at"`
	CompletedAt         *time.Time `json:"completed_at"`
	DisputeWindowEndsAt *time.Time `gorm:"index" json:"dispute_window_ends_at"`
	CancelledAt         *time.Time `json:"cancelled_at"`
	CancelledBy         *string    `gorm:"size:20" json:"cancelled_by"`
	CancellationReason  *string    `gorm:"type:text" json:"cancellation_reason"`
	NoShowParty         *string    `gorm:"size:20" json:"no_show_party"`

	Payout  Payout  `gorm:"embedded;embeddedPrefix:payout_" json:"payout"`
	Dispute Dispute `gorm:"embedded;embeddedPrefix:dispute_" json:"dispute"`

	Client    *Client    `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Counselor *Counselor `gorm:"foreignKey:CounselorID" json:"counselor,omitempty"`
	Slot      *Slot      `gorm:"foreignKey:SlotID" json:"slot,omitempty"`
	Payment   *Payment   `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
}

// Payout is the settlement owed to the counselor and back to the client.
type Payout struct {
	Status            string     `gorm:"size:20;not null;index" json:"status"`
	AmountToCounselor int64      `json:"amount_to_counselor"`
	AmountToClient    int64      `json:"amount_to_client"`
	PlatformFee       int64      `json:"platform_fee"`
	ReleasedAt        *time.Time `json:"released_at"`
	RefundedAt        *time.Time `json:"refunded_at"`
}

type Dispute struct {
	IsDisputed  bool       `json:"is_disputed"`
	Status      string     `gorm:"size:20;not null;index" json:"status"`
	Description string     `gorm:"type:text" json:"description"`
	Evidence    []string   `gorm:"type:text;serializer:json" json:"evidence"`
	RaisedAt    *time.Time `json:"raised_at"`
	Notes       string     `gorm:"type:text" json:"notes"`
	Resolution  string     `gorm:"size:20" json:"resolution"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	ResolvedBy  *uuid.UUID `gorm:"type:uuid" json:"resolved_by"`
}

func (b *Booking) IsParticipant(userID uuid.UUID) bool {
	return b.ClientID == userID || b.CounselorID == userID
}
