package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationPending   = "pending"
	NotificationRetrying  = "retrying"
	NotificationDone      = "done"
	NotificationFailed    = "failed"
	NotificationAbandoned = "abandoned"
)

// Notification is an outbox entry for one email.
type Notification struct {
	Base
	RecipientID       *uuid.UUID `gorm:"type:uuid;index" json:"recipient_id"`
	RecipientEmail    string     `gorm:"size:255;not null" json:"recipient_email"`
	RecipientName     string     `gorm:"size:255" json:"recipient_name"`
	Subject           string     `gorm:"size:255;not null" json:"subject"`
	HTML              string     `gorm:"type:text;not null" json:"-"`
	Status            string     `gorm:"size:20;not null;index" json:"status"`
	Attempts          int        `gorm:"not null" json:"attempts"`
	MaxAttempts       int        `gorm:"not null" json:"max_attempts"`
	NextAttemptAt     time.Time  `gorm:"not null;index" json:"next_attempt_at"`
	LastAttemptedAt   *time.Time `json:"last_attempted_at"`
	ProviderMessageID *string    `gorm:"size:255" json:"provider_message_id"`
	LastError         *string    `gorm:"type:text" json:"last_error"`
}

func (n *Notification) IsTerminal() bool {
	switch n.Status {
	case NotificationDone, NotificationFailed, NotificationAbandoned:
		return true
	}
	return false
}

func (n *Notification) CanRetry() bool {
	return !n.IsTerminal() && n.Attempts < n.MaxAttempts
}

// NextRetryDelay is base doubled per attempt made so far, capped at max.
func (n *Notification) NextRetryDelay(base, max time.Duration) time.Duration {
	if n.Attempts <= 0 {
		return base
	}
	d := base
	for i := 0; i < n.Attempts; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	return d
}

func (n *Notification) MarkSuccess(now time.Time, messageID string) {
	n.Attempts++
	n.Status = NotificationDone
	n.LastAttemptedAt = &now
	n.ProviderMessageID = &messageID
	n.LastError = nil
}

// MarkFailure records a failed attempt and schedules the next one, or gives up
// once MaxAttempts is reached.
func (n *Notification) MarkFailure(now time.Time, err error, base, max time.Duration) {
	n.Attempts++
	msg := err.Error()
	n.LastError = &msg
	n.LastAttemptedAt = &now
	if n.Attempts >= n.MaxAttempts {
		n.Status = NotificationFailed
		return
	}
	n.Status = NotificationRetrying
	n.NextAttemptAt = now.Add(n.NextRetryDelay(base, max))
}
