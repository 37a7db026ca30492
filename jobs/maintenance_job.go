package jobs

import (
	"context"

	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/logger"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/notifications"
	"github.com/anjiri1684/counsel_hub/services"
)

func PurgeExpiredOTPs() {
	n, err := services.PurgeExpiredOTPs(database.DB)
	if err != nil {
		logger.Log.Errorw("Error purging expired OTPs", "error", err)
		return
	}
	if n > 0 {
		logger.Log.Debugw("Purged expired OTPs", "count", n)
	}
}

// GenerateRollingSlots keeps every approved counselor's calendar filled
// SLOT_GENERATION_DAYS ahead.
func GenerateRollingSlots() {
	var counselors []models.Counselor
	err := database.DB.
		Where("application_status = ? AND is_blocked = ? AND session_price > 0", models.ApplicationApproved, false).
		Find(&counselors).Error
	if err != nil {
		logger.Log.Errorw("Error loading counselors for slot generation", "error", err)
		return
	}

	var total int64
	for i := range counselors {
		var count int64
		if err := database.DB.Model(&models.AvailabilityTemplate{}).Where("counselor_id = ?", counselors[i].ID).Count(&count).Error; err != nil || count == 0 {
			continue
		}
		n, err := services.GenerateSlots(database.DB, &counselors[i], 0)
		if err != nil {
			logger.Log.Warnw("slot generation failed", "counselor_id", counselors[i].ID, "error", err)
			continue
		}
		total += n
	}
	logger.Log.Infow("Rolling slot generation finished", "counselors", len(counselors), "created", total)
}

// DispatchNotifications returns a cron func draining the outbox through d.
func DispatchNotifications(d *notifications.Dispatcher) func() {
	return func() {
		n, err := d.ProcessPending(context.Background())
		if err != nil {
			logger.Log.Errorw("Error dispatching notifications", "error", err)
			return
		}
		if n > 0 {
			logger.Log.Debugw("Dispatched notifications", "count", n)
		}
	}
}

// RetryPendingRefunds re-sends refunds the payment provider has not confirmed.
func RetryPendingRefunds() {
	n, err := services.RetryPendingRefunds(context.Background())
	if err != nil {
		logger.Log.Errorw("Error retrying pending refunds", "error", err)
		return
	}
	if n > 0 {
		logger.Log.Infow("Pending refunds issued", "count", n)
	}
}
