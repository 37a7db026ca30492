package notifications

import (
	"context"
	"time"

	"github.com/anjiri1684/counsel_hub/apperrors"
	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/logger"
	"github.com/anjiri1684/counsel_hub/metrics"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Recipient struct {
	ID    *uuid.UUID
	Email string
	Name  string
}

func ClientRecipient(c *models.Client) Recipient {
	return Recipient{ID: &c.ID, Email: c.Email, Name: c.FullName}
}

func CounselorRecipient(c *models.Counselor) Recipient {
	return Recipient{ID: &c.ID, Email: c.Email, Name: c.FullName}
}

// Enqueue renders tmpl and stores the email in the outbox using db, which is
// normally the caller's transaction.
func Enqueue(db *gorm.DB, to Recipient, tmpl string, data any) error {
	subject, html, err := Render(tmpl, data)
	if err != nil {
		return err
	}
	maxAttempts := config.Int("NOTIFICATION_MAX_ATTEMPTS")
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	n := models.Notification{
		RecipientID:    to.ID,
		RecipientEmail: to.Email,
		RecipientName:  to.Name,
		Subject:        subject,
		HTML:           html,
		Status:         models.NotificationPending,
		MaxAttempts:    maxAttempts,
		NextAttemptAt:  time.Now().UTC().Truncate(time.Second),
	}
	return db.Create(&n).Error
}

// Dispatcher drains the outbox through a Mailer.
type Dispatcher struct {
	DB        *gorm.DB
	Mailer    Mailer
	Notify    func(userID uuid.UUID, payload any)
	BatchSize int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Lease     time.Duration
	Now       func() time.Time
}

func NewDispatcher(db *gorm.DB, mailer Mailer) *Dispatcher {
	batch := config.Int("NOTIFICATION_BATCH_SIZE")
	if batch <= 0 {
		batch = 50
	}
	return &Dispatcher{
		DB:        db,
		Mailer:    mailer,
		BatchSize: batch,
		BaseDelay: 30 * time.Second,
		MaxDelay:  30 * time.Minute,
		Lease:     5 * time.Minute,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// ProcessPending sends every due entry in one batch and returns how many
// were attempted.
func (d *Dispatcher) ProcessPending(ctx context.Context) (int, error) {
	now := d.Now().Truncate(time.Second)

	var batch []models.Notification
	err := d.DB.
		Where("status IN ? AND next_attempt_at <= ?", []string{models.NotificationPending, models.NotificationRetrying}, now).
		Order("next_attempt_at asc").
		Limit(d.BatchSize).
		Find(&batch).Error
	if err != nil {
		return 0, err
	}

	attempted := 0
	for i := range batch {
		if ctx.Err() != nil {
			return attempted, ctx.Err()
		}
		claimed, err := d.claim(&batch[i], now)
		if err != nil {
			return attempted, err
		}
		if !claimed {
			continue
		}
		d.process(ctx, &batch[i])
		attempted++
	}
	return attempted, nil
}

// claim leases an entry so concurrent dispatchers do not send it twice.
func (d *Dispatcher) claim(n *models.Notification, now time.Time) (bool, error) {
	res := d.DB.Model(&models.Notification{}).
		Where("id = ? AND attempts = ? AND next_attempt_at <= ?", n.ID, n.Attempts, now).
		Update("next_attempt_at", now.Add(d.Lease))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (d *Dispatcher) process(ctx context.Context, n *models.Notification) {
	if n.Attempts == 0 && n.RecipientID != nil && d.Notify != nil {
		d.Notify(*n.RecipientID, map[string]any{
			"type":    "notification",
			"id":      n.ID,
			"subject": n.Subject,
		})
	}

	now := d.Now()
	messageID, err := d.Mailer.Send(ctx, Message{
		ToEmail: n.RecipientEmail,
		ToName:  n.RecipientName,
		Subject: n.Subject,
		HTML:    n.HTML,
	})
	if err != nil {
		n.MarkFailure(now, err, d.BaseDelay, d.MaxDelay)
		logger.Log.Warnw("🔥 Failed to send email", "notification_id", n.ID, "to", n.RecipientEmail, "attempt", n.Attempts, "error", err)
	} else {
		n.MarkSuccess(now, messageID)
	}
	metrics.NotificationsProcessed.WithLabelValues(n.Status).Inc()

	if err := d.DB.Save(n).Error; err != nil {
		logger.Log.Errorw("failed to persist notification result", "notification_id", n.ID, "error", err)
	}
}

// Retry puts a failed or abandoned entry back in the queue with a fresh
// attempt budget.
func Retry(db *gorm.DB, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	if err := db.First(&n, "id = ?", id).Error; err != nil {
		return nil, apperrors.NotFound("Notification not found")
	}
	if n.Status == models.NotificationDone {
		return nil, apperrors.BadRequest("Notification already delivered")
	}
	n.Status = models.NotificationPending
	n.Attempts = 0
	n.NextAttemptAt = time.Now().UTC().Truncate(time.Second)
	if err := db.Save(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func Abandon(db *gorm.DB, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	if err := db.First(&n, "id = ?", id).Error; err != nil {
		return nil, apperrors.NotFound("Notification not found")
	}
	if n.IsTerminal() {
		return nil, apperrors.BadRequest("Notification is already %s", n.Status)
	}
	n.Status = models.NotificationAbandoned
	if err := db.Save(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}
