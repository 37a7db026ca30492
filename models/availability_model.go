package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SlotOpen    = "open"
	SlotBooked  = "booked"
	SlotBlocked = "blocked"
)

// AvailabilityRule is one recurring weekly window, times as "HH:MM".
type AvailabilityRule struct {
	Weekday   int    `json:"weekday" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
}

type AvailabilityTemplate struct {
	Base
	CounselorID    uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex" json:"counselor_id"`
	SessionMinutes int                `gorm:"not null" json:"session_minutes"`
	Rules          []AvailabilityRule `gorm:"type:text;serializer:json" json:"rules"`
}

type Slot struct {
	Base
	CounselorID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_slot_window" json:"counselor_id"`
	Date        string     `gorm:"size:10;not null;uniqueIndex:idx_slot_window" json:"date"`
	StartTime   string     `gorm:"size:5;not null;uniqueIndex:idx_slot_window" json:"start_time"`
	EndTime     string     `gorm:"size:5;not null" json:"end_time"`
	StartsAt    time.Time  `gorm:"not null;index" json:"starts_at"`
	EndsAt      time.Time  `gorm:"not null;index" json:"ends_at"`
	Status      string     `gorm:"size:20;not null;index" json:"status"`
	BasePrice   int64      `gorm:"not null" json:"base_price"`
	Counselor   *Counselor `gorm:"foreignKey:CounselorID" json:"counselor,omitempty"`
}
