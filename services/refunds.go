package services

import (
	"context"

	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/logger"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/payments"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// refundKey names the single refund a booking settlement can issue. The
// provider receives it on every attempt.
func refundKey(bookingID uuid.UUID) string {
	return "booking-" + bookingID.String()
}

// IssueRefund sends a pending refund to the payment provider and records the
// outcome on the refund and its payment. A failed attempt leaves the refund
// pending for RetryPendingRefunds.
func IssueRefund(ctx context.Context, refundID uuid.UUID) error {
	var r models.Refund
	if err := database.DB.First(&r, "id = ?", refundID).Error; err != nil {
		return err
	}
	if r.Status != models.RefundPending {
		return nil
	}
	var payment models.Payment
	if err := database.DB.First(&payment, "id = ?", r.PaymentID).Error; err != nil {
		return err
	}
	gateway, err := payments.Get(payment.Provider)
	if err != nil {
		return err
	}

	result, err := gateway.Refund(ctx, payment.ProviderCaptureID, r.Amount, payment.Currency, r.Reason, r.IdempotencyKey)
	if err != nil {
		logger.Log.Errorw("refund failed, will retry", "refund_id", r.ID, "booking_id", r.BookingID, "error", err)
		if uerr := database.DB.Model(&models.Refund{}).Where("id = ?", r.ID).Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": err.Error(),
		}).Error; uerr != nil {
			logger.Log.Errorw("failed to record refund attempt", "refund_id", r.ID, "error", uerr)
		}
		return err
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Refund{}).
			Where("id = ? AND status = ?", r.ID, models.RefundPending).
			Updates(map[string]any{
				"status":             models.RefundSucceeded,
				"provider_refund_id": result.ProviderRefundID,
				"attempts":           gorm.Expr("attempts + 1"),
				"last_error":         nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		var p models.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", r.PaymentID).Error; err != nil {
			return err
		}
		p.RefundedAmount += r.Amount
		p.Status = models.PaymentPartiallyRefunded
		if p.RefundedAmount >= p.Amount {
			p.Status = models.PaymentRefunded
		}
		return tx.Omit(clause.Associations).Save(&p).Error
	})
}

// issueRefund runs once the settling transaction has committed.
func issueRefund(ctx context.Context, r *models.Refund) {
	if r == nil {
		return
	}
	if err := IssueRefund(ctx, r.ID); err != nil {
		logger.Log.Warnw("refund left pending", "refund_id", r.ID, "booking_id", r.BookingID)
	}
}

// RetryPendingRefunds re-sends refunds that have not reached the provider.
// It returns how many succeeded.
func RetryPendingRefunds(ctx context.Context) (int, error) {
	var pending []models.Refund
	if err := database.DB.Where("status = ?", models.RefundPending).Order("created_at").Limit(100).Find(&pending).Error; err != nil {
		return 0, err
	}
	done := 0
	for i := range pending {
		if err := IssueRefund(ctx, pending[i].ID); err == nil {
			done++
		}
	}
	return done, nil
}
