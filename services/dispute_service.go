package services

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/anjiri1684/counsel_hub/apperrors"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/notifications"
	"github.com/anjiri1684/counsel_hub/payments"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ResolutionRelease = "release"
	ResolutionRefund  = "refund"
	ResolutionSplit   = "split"
)

const (
	MinDisputeDescription = 20
	MaxDisputeDescription = 2000
	MaxDisputeEvidence    = 5
)

// CheckDisputeEligible reports whether the client may still contest b.
func CheckDisputeEligible(b *models.Booking, now time.Time) error {
	if now.Before(b.EndsAt) {
		return apperrors.BadRequest("A dispute can only be raised after the session has ended")
	}
	switch b.Status {
	case models.BookingConfirmed, models.BookingCompletedPending:
		return nil
	case models.BookingDisputeWindowOpen:
		if b.DisputeWindowEndsAt != nil && !now.Before(*b.DisputeWindowEndsAt) {
			return apperrors.BadRequest("The dispute window for this booking has closed")
		}
		return nil
	case models.BookingDisputed:
		return apperrors.BadRequest("A dispute has already been raised for this booking")
	}
	return apperrors.BadRequest("Booking cannot be disputed while %s", b.Status)
}

// LoadDisputableBooking fetches the client's booking and checks it can be
// disputed, before any evidence is uploaded.
func LoadDisputableBooking(bookingID, clientID uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	if err := database.DB.First(&b, "id = ? AND client_id = ?", bookingID, clientID).Error; err != nil {
		return nil, apperrors.NotFound("Booking not found")
	}
	if err := CheckDisputeEligible(&b, Now()); err != nil {
		return nil, err
	}
	return &b, nil
}

func ValidateDisputeDescription(description string) error {
	n := utf8.RuneCountInString(description)
	if n < MinDisputeDescription || n > MaxDisputeDescription {
		return apperrors.BadRequest("Description must be between %d and %d characters", MinDisputeDescription, MaxDisputeDescription)
	}
	return nil
}

// RaiseDispute freezes the payout of a finished session until an admin
// resolves it.
func RaiseDispute(ctx context.Context, bookingID, clientID uuid.UUID, description string, evidence []string) (*models.Booking, error) {
	if err := ValidateDisputeDescription(description); err != nil {
		return nil, err
	}
	if len(evidence) > MaxDisputeEvidence {
		return nil, apperrors.BadRequest("At most %d evidence files are allowed", MaxDisputeEvidence)
	}

	var booking *models.Booking
	var from string
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		b, err := lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if b.ClientID != clientID {
			return apperrors.NotFound("Booking not found")
		}
		now := Now()
		if err := CheckDisputeEligible(b, now); err != nil {
			return err
		}
		from = b.Status
		// The lifecycle job may not have marked the session ended yet.
		if b.Status == models.BookingConfirmed {
			if err := Transition(b, models.BookingCompletedPending); err != nil {
				return err
			}
			b.CompletedAt = &now
		}
		if err := Transition(b, models.BookingDisputed); err != nil {
			return err
		}
		b.Dispute = models.Dispute{
			IsDisputed:  true,
			Status:      models.DisputeOpen,
			Description: description,
			Evidence:    evidence,
			RaisedAt:    &now,
		}
		if err := saveBooking(tx, b); err != nil {
			return err
		}

		data := sessionData(b)
		data["ClientName"] = b.Client.FullName
		if err := notifications.Enqueue(tx, notifications.CounselorRecipient(b.Counselor), notifications.TemplateDisputeRaised, data); err != nil {
			return err
		}
		if err := enqueueForAdmins(tx, notifications.TemplateDisputeRaised, data); err != nil {
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

func enqueueForAdmins(tx *gorm.DB, tmpl string, data map[string]any) error {
	var admins []models.Admin
	if err := tx.Where("is_active = ?", true).Find(&admins).Error; err != nil {
		return err
	}
	for i := range admins {
		to := notifications.Recipient{ID: &admins[i].ID, Email: admins[i].Email, Name: admins[i].FullName}
		if err := notifications.Enqueue(tx, to, tmpl, data); err != nil {
			return err
		}
	}
	return nil
}

type ReviewDisputeInput struct {
	Status       string `json:"status" validate:"required,oneof=under_review resolved"`
	Resolution   string `json:"resolution" validate:"omitempty,oneof=release refund split"`
	RefundAmount int64  `json:"refundAmount" validate:"min=0"`
	Notes        string `json:"notes" validate:"max=5000"`
}

// DisputeRefund turns a resolution into the amount returned to the client.
func DisputeRefund(resolution string, refundAmount, gross int64) (int64, error) {
	switch resolution {
	case ResolutionRelease:
		return 0, nil
	case ResolutionRefund:
		return gross, nil
	case ResolutionSplit:
		if refundAmount <= 0 || refundAmount >= gross {
			return 0, apperrors.BadRequest("Split refund must be greater than 0 and less than %s", payments.FormatMinor(gross))
		}
		return refundAmount, nil
	}
	return 0, apperrors.BadRequest("A resolution of release, refund or split is required")
}

// ReviewDispute records admin progress on a dispute. Resolving it settles the
// payout and closes the booking.
func ReviewDispute(ctx context.Context, bookingID, adminID uuid.UUID, in ReviewDisputeInput) (*models.Booking, error) {
	var booking *models.Booking
	var pending *models.Refund
	var from string
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		b, err := lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if !b.Dispute.IsDisputed {
			return apperrors.NotFound("No dispute found for this booking")
		}
		if b.Dispute.Status == models.DisputeResolved {
			return apperrors.BadRequest("Dispute has already been resolved")
		}
		if in.Notes != "" {
			b.Dispute.Notes = in.Notes
		}

		if in.Status == models.DisputeUnderReview {
			b.Dispute.Status = models.DisputeUnderReview
		} else {
			refund, err := DisputeRefund(in.Resolution, in.RefundAmount, b.Amount)
			if err != nil {
				return err
			}
			from = b.Status
			if err := Transition(b, models.BookingCompletedFinal); err != nil {
				return err
			}
			if pending, err = SettleBooking(tx, b, refund, "dispute resolved: "+in.Resolution); err != nil {
				return err
			}
			now := Now()
			b.Dispute.Status = models.DisputeResolved
			b.Dispute.Resolution = in.Resolution
			b.Dispute.ResolvedAt = &now
			b.Dispute.ResolvedBy = &adminID
		}
		if err := saveBooking(tx, b); err != nil {
			return err
		}

		data := sessionData(b)
		data["Status"] = b.Dispute.Status
		data["Notes"] = b.Dispute.Notes
		if err := notifications.Enqueue(tx, notifications.ClientRecipient(b.Client), notifications.TemplateDisputeUpdated, data); err != nil {
			return err
		}
		booking = b
		return notifications.Enqueue(tx, notifications.CounselorRecipient(b.Counselor), notifications.TemplateDisputeUpdated, data)
	})
	if err != nil {
		return nil, err
	}
	issueRefund(ctx, pending)
	if from != "" {
		publishTransition(ctx, booking, from)
	}
	return booking, nil
}
