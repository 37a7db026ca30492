package services

import (
	"context"
	"errors"
	"time"

	"github.com/anjiri1684/counsel_hub/apperrors"
	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/events"
	"github.com/anjiri1684/counsel_hub/logger"
	"github.com/anjiri1684/counsel_hub/metrics"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/notifications"
	"github.com/anjiri1684/counsel_hub/payments"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSlotTaken     = apperrors.BadRequest("Slot is no longer available")
	ErrPaymentReused = apperrors.BadRequest("This payment has already been used")
)

type CreateBookingInput struct {
	ClientID          uuid.UUID
	SlotID            uuid.UUID
	Provider          string
	ProviderPaymentID string
}

func sessionData(b *models.Booking) map[string]any {
	loc := config.Location()
	return map[string]any{
		"Date":      b.StartsAt.In(loc).Format("Mon, 02 Jan 2006"),
		"StartTime": b.StartsAt.In(loc).Format("15:04 MST"),
		"Amount":    payments.FormatMinor(b.Amount),
		"Currency":  b.Currency,
	}
}

func publishTransition(ctx context.Context, b *models.Booking, from string) {
	events.Publish(ctx, events.Event{
		Type:        events.TypeBookingStatusChanged,
		BookingID:   b.ID,
		ClientID:    b.ClientID,
		CounselorID: b.CounselorID,
		From:        from,
		To:          b.Status,
	})
}

// lockBooking loads a booking inside tx with its row locked.
func lockBooking(tx *gorm.DB, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Client").Preload("Counselor").
		First(&b, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Booking not found")
		}
		return nil, err
	}
	return &b, nil
}

func saveBooking(tx *gorm.DB, b *models.Booking) error {
	return tx.Omit(clause.Associations).Save(b).Error
}

// CreateBooking captures the client's payment and then claims the slot with a
// compare-and-swap so two clients can never hold the same slot. If the claim
// fails after the money was captured, the capture is refunded.
func CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	now := Now()

	var client models.Client
	if err := database.DB.First(&client, "id = ?", in.ClientID).Error; err != nil {
		return nil, apperrors.NotFound("Client not found")
	}
	if client.IsBlocked {
		return nil, apperrors.Forbidden("Your account has been blocked")
	}

	var slot models.Slot
	if err := database.DB.Preload("Counselor").First(&slot, "id = ?", in.SlotID).Error; err != nil {
		return nil, apperrors.NotFound("Slot not found")
	}
	if slot.Status != models.SlotOpen {
		return nil, apperrors.BadRequest("Slot is not available for booking")
	}
	if !slot.StartsAt.After(now) {
		return nil, apperrors.BadRequest("Slot has already started")
	}
	if slot.Counselor == nil || !slot.Counselor.IsBookable() {
		return nil, apperrors.BadRequest("Counselor is not accepting bookings")
	}

	gateway, err := payments.Get(in.Provider)
	if err != nil {
		return nil, apperrors.BadRequest("Unsupported payment provider %q", in.Provider)
	}

	var used int64
	if err := database.DB.Model(&models.Payment{}).Where("provider_payment_id = ?", in.ProviderPaymentID).Count(&used).Error; err != nil {
		return nil, err
	}
	if used > 0 {
		return nil, ErrPaymentReused
	}

	currency := config.Config("CURRENCY")
	charge, err := gateway.Capture(ctx, in.ProviderPaymentID, slot.BasePrice, currency)
	if err != nil {
		logger.Log.Warnw("payment capture failed", "provider", in.Provider, "payment_id", in.ProviderPaymentID, "error", err)
		return nil, apperrors.BadRequest("Payment could not be verified")
	}

	compensate := func(reason string) {
		if _, err := gateway.Refund(ctx, charge.ProviderCaptureID, charge.Amount, charge.Currency, reason, "reversal-"+charge.ProviderCaptureID); err != nil {
			logger.Log.Errorw("🔥 CRITICAL: failed to refund captured payment", "provider", in.Provider, "payment_id", charge.ProviderPaymentID, "error", err)
		}
	}

	if charge.Currency != currency {
		compensate("currency mismatch")
		return nil, apperrors.BadRequest("Payment currency %s does not match %s", charge.Currency, currency)
	}
	if charge.Amount != slot.BasePrice {
		compensate("amount mismatch")
		return nil, apperrors.BadRequest("Paid amount does not match the session price")
	}

	preview, err := ComputeSettlement(charge.Amount, charge.Fee, ConfiguredCommissionBps(), 0)
	if err != nil {
		compensate("settlement error")
		return nil, err
	}

	booking := models.Booking{
		ClientID:    client.ID,
		CounselorID: slot.CounselorID,
		SlotID:      slot.ID,
		Status:      models.BookingConfirmed,
		Amount:      charge.Amount,
		Currency:    charge.Currency,
		StartsAt:    slot.StartsAt,
		EndsAt:      slot.EndsAt,
		Payout: models.Payout{
			Status:            models.PayoutPending,
			AmountToCounselor: preview.CounselorPayout,
			PlatformFee:       preview.PlatformFee,
		},
		Dispute: models.Dispute{Status: models.DisputeNone},
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Slot{}).
			Where("id = ? AND status = ?", slot.ID, models.SlotOpen).
			Update("status", models.SlotBooked)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrSlotTaken
		}

		payment := models.Payment{
			ClientID:          client.ID,
			Provider:          gateway.Name(),
			ProviderPaymentID: charge.ProviderPaymentID,
			ProviderCaptureID: charge.ProviderCaptureID,
			Method:            charge.Method,
			Amount:            charge.Amount,
			Currency:          charge.Currency,
			ProviderFee:       charge.Fee,
			Status:            models.PaymentCaptured,
		}
		if err := tx.Create(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrPaymentReused
			}
			return err
		}

		booking.PaymentID = payment.ID
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}

		data := sessionData(&booking)
		data["CounselorName"] = slot.Counselor.FullName
		data["ClientName"] = client.FullName
		if err := notifications.Enqueue(tx, notifications.ClientRecipient(&client), notifications.TemplateBookingConfirmed, data); err != nil {
			return err
		}
		return notifications.Enqueue(tx, notifications.CounselorRecipient(slot.Counselor), notifications.TemplateNewBooking, data)
	})
	if errors.Is(err, ErrPaymentReused) {
		// The capture belongs to the booking that inserted this payment first.
		logger.Log.Warnw("payment reused concurrently", "provider", in.Provider, "payment_id", charge.ProviderPaymentID, "slot_id", slot.ID)
		return nil, err
	}
	if err != nil {
		compensate("booking failed")
		return nil, err
	}

	metrics.PaymentsCaptured.WithLabelValues(gateway.Name()).Add(float64(charge.Amount))
	publishTransition(ctx, &booking, "")
	logger.Log.Infow("✅ Booking confirmed", "booking_id", booking.ID, "slot_id", slot.ID, "client_id", client.ID)
	return &booking, nil
}

// SettleBooking fixes the payout of b: refund goes back to the client and the
// rest is split by ComputeSettlement. The refund is recorded as pending in tx
// and must be handed to issueRefund after the transaction commits. A payout
// can only be settled once.
func SettleBooking(tx *gorm.DB, b *models.Booking, refund int64, reason string) (*models.Refund, error) {
	if b.Payout.Status != models.PayoutPending {
		return nil, apperrors.BadRequest("Payout has already been settled")
	}

	var payment models.Payment
	if err := tx.First(&payment, "id = ?", b.PaymentID).Error; err != nil {
		return nil, err
	}

	s, err := ComputeSettlement(payment.Amount, payment.ProviderFee, ConfiguredCommissionBps(), refund)
	if err != nil {
		return nil, err
	}

	now := Now()
	var pending *models.Refund
	if refund > 0 {
		pending = &models.Refund{
			PaymentID:      payment.ID,
			BookingID:      b.ID,
			Amount:         refund,
			Reason:         reason,
			IdempotencyKey: refundKey(b.ID),
			Status:         models.RefundPending,
		}
		if err := tx.Create(pending).Error; err != nil {
			return nil, err
		}
		b.Payout.RefundedAt = &now
	}

	b.Payout.AmountToClient = s.Refund
	b.Payout.AmountToCounselor = s.CounselorPayout
	b.Payout.PlatformFee = s.PlatformFee
	if s.CounselorPayout > 0 {
		b.Payout.Status = models.PayoutReleased
		b.Payout.ReleasedAt = &now
	} else {
		b.Payout.Status = models.PayoutRefunded
	}
	return pending, nil
}

// CancelBooking applies the cancellation policy for the acting participant.
// A client cancellation reopens the slot, a counselor cancellation blocks it.
func CancelBooking(ctx context.Context, bookingID, actorID uuid.UUID, actorRole, reason string) (*models.Booking, error) {
	var booking *models.Booking
	var pending *models.Refund
	var from string
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		b, err := lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if (actorRole == models.RoleClient && b.ClientID != actorID) || (actorRole == models.RoleCounselor && b.CounselorID != actorID) {
			return apperrors.NotFound("Booking not found")
		}
		from = b.Status
		if err := Transition(b, models.BookingCancelled); err != nil {
			return err
		}

		now := Now()
		refund, err := CancellationRefund(b.Amount, b.StartsAt, now, actorRole,
			config.Duration("CANCELLATION_FULL_REFUND_WINDOW"), config.Float("CANCELLATION_LATE_REFUND_RATE"))
		if err != nil {
			return err
		}
		if pending, err = SettleBooking(tx, b, refund, "cancelled by "+actorRole); err != nil {
			return err
		}

		b.CancelledAt = &now
		b.CancelledBy = &actorRole
		if reason != "" {
			b.CancellationReason = &reason
		}
		if err := saveBooking(tx, b); err != nil {
			return err
		}

		slotStatus := models.SlotOpen
		if actorRole == models.RoleCounselor {
			slotStatus = models.SlotBlocked
		}
		if err := tx.Model(&models.Slot{}).Where("id = ?", b.SlotID).Update("status", slotStatus).Error; err != nil {
			return err
		}

		data := sessionData(b)
		data["CancelledBy"] = actorRole
		data["Refund"] = ""
		if refund > 0 {
			data["Refund"] = payments.FormatMinor(refund)
		}
		if err := notifications.Enqueue(tx, notifications.ClientRecipient(b.Client), notifications.TemplateBookingCancelled, data); err != nil {
			return err
		}
		if err := notifications.Enqueue(tx, notifications.CounselorRecipient(b.Counselor), notifications.TemplateBookingCancelled, data); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	issueRefund(ctx, pending)
	publishTransition(ctx, booking, from)
	return booking, nil
}

// CompleteSession is the counselor confirming a session took place. It opens
// the dispute window right away.
func CompleteSession(ctx context.Context, bookingID, counselorID uuid.UUID) (*models.Booking, error) {
	var booking *models.Booking
	var from string
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		b, err := lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if b.CounselorID != counselorID {
			return apperrors.NotFound("Booking not found")
		}
		now := Now()
		if now.Before(b.EndsAt) {
			return apperrors.BadRequest("Session has not ended yet")
		}
		from = b.Status
		if b.Status == models.BookingConfirmed {
			if err := Transition(b, models.BookingCompletedPending); err != nil {
				return err
			}
			b.CompletedAt = &now
		}
		if err := openDisputeWindow(tx, b, now); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	publishTransition(ctx, booking, from)
	return booking, nil
}

func openDisputeWindow(tx *gorm.DB, b *models.Booking, now time.Time) error {
	if err := Transition(b, models.BookingDisputeWindowOpen); err != nil {
		return err
	}
	window := config.Duration("DISPUTE_WINDOW")
	if window <= 0 {
		window = 48 * time.Hour
	}
	ends := now.Add(window)
	b.DisputeWindowEndsAt = &ends
	if err := saveBooking(tx, b); err != nil {
		return err
	}
	data := sessionData(b)
	data["WindowEndsAt"] = ends.In(config.Location()).Format("Mon, 02 Jan 2006 15:04 MST")
	return notifications.Enqueue(tx, notifications.ClientRecipient(b.Client), notifications.TemplateSessionCompleted, data)
}

// MarkSessionEnded moves a confirmed booking whose slot has ended to
// completed_pending. It is a no-op when the booking already moved on.
func MarkSessionEnded(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var from string
	var booking *models.Booking
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		b, err := lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		now := Now()
		if b.Status != models.BookingConfirmed || now.Before(b.EndsAt) {
			return nil
		}
		from = b.Status
		if err := Transition(b, models.BookingCompletedPending); err != nil {
			return err
		}
		b.CompletedAt = &now
		booking = b
		return saveBooking(tx, b)
	})
	if err != nil || booking == nil {
		return false, err
	}
	publishTransition(ctx, booking, from)
	return true, nil
}

// OpenDisputeWindow moves a completed_pending booking to dispute_window_open
// once the completion grace period has passed.
func OpenDisputeWindow(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var booking *models.Booking
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		b, err := lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != models.BookingCompletedPending {
			return nil
		}
		booking = b
		return openDisputeWindow(tx, b, Now())
	})
	if err != nil || booking == nil {
		return false, err
	}
	publishTransition(ctx, booking, models.BookingCompletedPending)
	return true, nil
}

// FinalizeBooking closes a booking that nobody disputed and releases the
// counselor's payout. force skips the dispute window check (admin release).
func FinalizeBooking(ctx context.Context, bookingID uuid.UUID, force bool) (*models.Booking, error) {
	var booking *models.Booking
	var from string
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		b, err := lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		switch b.Status {
		case models.BookingDisputeWindowOpen:
			if !force && b.DisputeWindowEndsAt != nil && Now().Before(*b.DisputeWindowEndsAt) {
				return apperrors.BadRequest("Dispute window is still open")
			}
		case models.BookingCompletedPending:
			if !force {
				return apperrors.BadRequest("Booking has not entered its dispute window")
			}
		default:
			return apperrors.BadRequest("Payout cannot be released for a %s booking", b.Status)
		}
		from = b.Status
		if err := Transition(b, models.BookingCompletedFinal); err != nil {
			return err
		}
		if _, err := SettleBooking(tx, b, 0, ""); err != nil {
			return err
		}
		if err := saveBooking(tx, b); err != nil {
			return err
		}
		data := sessionData(b)
		data["Amount"] = payments.FormatMinor(b.Payout.AmountToCounselor)
		booking = b
		return notifications.Enqueue(tx, notifications.CounselorRecipient(b.Counselor), notifications.TemplatePayoutReleased, data)
	})
	if err != nil {
		return nil, err
	}
	publishTransition(ctx, booking, from)
	return booking, nil
}

// MarkNoShow records which party missed a session that has started. A
// counselor can only report the client; admins can report either side.
func MarkNoShow(ctx context.Context, bookingID, actorID uuid.UUID, actorRole, party string) (*models.Booking, error) {
	if party != models.RoleClient && party != models.RoleCounselor {
		return nil, apperrors.BadRequest("party must be client or counselor")
	}
	var booking *models.Booking
	var pending *models.Refund
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		b, err := lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if actorRole == models.RoleCounselor {
			if b.CounselorID != actorID {
				return apperrors.NotFound("Booking not found")
			}
			if party != models.RoleClient {
				return apperrors.Forbidden("Counselors can only report a client no-show")
			}
		}
		if Now().Before(b.StartsAt) {
			return apperrors.BadRequest("Session has not started yet")
		}
		if err := Transition(b, models.BookingNoShow); err != nil {
			return err
		}

		var refund int64
		if party == models.RoleCounselor {
			refund = b.Amount
		}
		if pending, err = SettleBooking(tx, b, refund, party+" no-show"); err != nil {
			return err
		}
		b.NoShowParty = &party
		if err := saveBooking(tx, b); err != nil {
			return err
		}

		data := sessionData(b)
		data["Party"] = party
		if err := notifications.Enqueue(tx, notifications.ClientRecipient(b.Client), notifications.TemplateNoShowRecorded, data); err != nil {
			return err
		}
		booking = b
		return notifications.Enqueue(tx, notifications.CounselorRecipient(b.Counselor), notifications.TemplateNoShowRecorded, data)
	})
	if err != nil {
		return nil, err
	}
	issueRefund(ctx, pending)
	publishTransition(ctx, booking, models.BookingConfirmed)
	return booking, nil
}
