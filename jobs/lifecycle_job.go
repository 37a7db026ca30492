package jobs

import (
	"context"
	"time"

	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/logger"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/services"
	"github.com/google/uuid"
)

const batchSize = 200

func dueBookings(where string, args ...any) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := database.DB.Model(&models.Booking{}).
		Where(where, args...).
		Order("ends_at asc").
		Limit(batchSize).
		Pluck("id", &ids).Error
	return ids, err
}

// AdvanceEndedSessions moves confirmed bookings whose session is over to
// completed_pending.
func AdvanceEndedSessions() {
	ids, err := dueBookings("status = ? AND ends_at <= ?", models.BookingConfirmed, services.Now())
	if err != nil {
		logger.Log.Errorw("Error checking for ended sessions", "error", err)
		return
	}

	advanced := 0
	for _, id := range ids {
		ok, err := services.MarkSessionEnded(context.Background(), id)
		if err != nil {
			logger.Log.Warnw("failed to advance booking", "booking_id", id, "error", err)
			continue
		}
		if ok {
			advanced++
		}
	}
	if advanced > 0 {
		logger.Log.Infow("Marked ended sessions as completed_pending", "count", advanced)
	}
}

// OpenDisputeWindows gives the counselor COMPLETION_GRACE to confirm a
// session before the dispute window is opened automatically.
func OpenDisputeWindows() {
	grace := config.Duration("COMPLETION_GRACE")
	if grace <= 0 {
		grace = 12 * time.Hour
	}
	ids, err := dueBookings("status = ? AND ends_at <= ?", models.BookingCompletedPending, services.Now().Add(-grace))
	if err != nil {
		logger.Log.Errorw("Error checking for completed sessions", "error", err)
		return
	}

	for _, id := range ids {
		if _, err := services.OpenDisputeWindow(context.Background(), id); err != nil {
			logger.Log.Warnw("failed to open dispute window", "booking_id", id, "error", err)
		}
	}
}

// FinalizeExpiredDisputeWindows closes undisputed bookings and releases the
// counselor payout.
func FinalizeExpiredDisputeWindows() {
	ids, err := dueBookings("status = ? AND dispute_window_ends_at <= ?", models.BookingDisputeWindowOpen, services.Now())
	if err != nil {
		logger.Log.Errorw("Error checking for expired dispute windows", "error", err)
		return
	}

	released := 0
	for _, id := range ids {
		if _, err := services.FinalizeBooking(context.Background(), id, false); err != nil {
			logger.Log.Warnw("failed to finalize booking", "booking_id", id, "error", err)
			continue
		}
		released++
	}
	if released > 0 {
		logger.Log.Infow("✅ Released payouts for closed dispute windows", "count", released)
	}
}
