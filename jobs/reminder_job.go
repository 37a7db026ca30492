package jobs

import (
	"time"

	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/logger"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/notifications"
	"github.com/anjiri1684/counsel_hub/services"
	"gorm.io/gorm"
)

// SendSessionReminders runs every five minutes and reminds both parties of
// sessions starting 60 to 65 minutes from now.
func SendSessionReminders() {
	now := services.Now()
	lowerBound := now.Add(60 * time.Minute)
	upperBound := now.Add(65 * time.Minute)

	var upcoming []models.Booking
	err := database.DB.
		Preload("Client").
		Preload("Counselor").
		Where("status = ? AND starts_at >= ? AND starts_at < ?", models.BookingConfirmed, lowerBound, upperBound).
		Find(&upcoming).Error
	if err != nil {
		logger.Log.Errorw("Error checking for upcoming sessions", "error", err)
		return
	}

	loc := config.Location()
	for _, b := range upcoming {
		if b.Client == nil || b.Counselor == nil {
			continue
		}
		data := map[string]any{
			"Date":      b.StartsAt.In(loc).Format("Mon, 02 Jan 2006"),
			"StartTime": b.StartsAt.In(loc).Format("15:04 MST"),
		}
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := notifications.Enqueue(tx, notifications.ClientRecipient(b.Client), notifications.TemplateSessionReminder, data); err != nil {
				return err
			}
			return notifications.Enqueue(tx, notifications.CounselorRecipient(b.Counselor), notifications.TemplateSessionReminder, data)
		})
		if err != nil {
			logger.Log.Warnw("failed to queue reminder", "booking_id", b.ID, "error", err)
		}
	}
}
