package services

import (
	"github.com/anjiri1684/counsel_hub/apperrors"
	"github.com/anjiri1684/counsel_hub/metrics"
	"github.com/anjiri1684/counsel_hub/models"
)

var transitions = map[string][]string{
	models.BookingConfirmed:         {models.BookingCompletedPending, models.BookingCancelled, models.BookingNoShow},
	models.BookingCompletedPending:  {models.BookingDisputeWindowOpen, models.BookingCompletedFinal, models.BookingDisputed},
	models.BookingDisputeWindowOpen: {models.BookingCompletedFinal, models.BookingDisputed},
	models.BookingDisputed:          {models.BookingCompletedFinal},
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a booking in status is archived and immutable.
func IsTerminal(status string) bool {
	switch status {
	case models.BookingCompletedFinal, models.BookingCancelled, models.BookingNoShow:
		return true
	}
	return false
}

// Transition moves b to the next status if the lifecycle allows it.
func Transition(b *models.Booking, to string) error {
	if IsTerminal(b.Status) {
		return apperrors.BadRequest("booking is %s and can no longer change", b.Status)
	}
	if !CanTransition(b.Status, to) {
		return apperrors.BadRequest("cannot move booking from %s to %s", b.Status, to)
	}
	metrics.BookingTransitions.WithLabelValues(b.Status, to).Inc()
	b.Status = to
	return nil
}
