package services

import (
	"testing"

	"github.com/anjiri1684/counsel_hub/models"
)

func TestTransition(t *testing.T) {
	allowed := [][2]string{
		{models.BookingConfirmed, models.BookingCompletedPending},
		{models.BookingConfirmed, models.BookingCancelled},
		{models.BookingConfirmed, models.BookingNoShow},
		{models.BookingCompletedPending, models.BookingDisputeWindowOpen},
		{models.BookingCompletedPending, models.BookingDisputed},
		{models.BookingDisputeWindowOpen, models.BookingCompletedFinal},
		{models.BookingDisputeWindowOpen, models.BookingDisputed},
		{models.BookingDisputed, models.BookingCompletedFinal},
	}
	for _, pair := range allowed {
		b := &models.Booking{Status: pair[0]}
		if err := Transition(b, pair[1]); err != nil {
			t.Fatalf("%s -> %s: unexpected error: %v", pair[0], pair[1], err)
		}
		if b.Status != pair[1] {
			t.Fatalf("expected status %s, got %s", pair[1], b.Status)
		}
	}

	rejected := [][2]string{
		{models.BookingConfirmed, models.BookingCompletedFinal},
		{models.BookingConfirmed, models.BookingDisputed},
		{models.BookingDisputed, models.BookingCancelled},
		{models.BookingCancelled, models.BookingConfirmed},
		{models.BookingCompletedFinal, models.BookingDisputed},
		{models.BookingNoShow, models.BookingCompletedFinal},
	}
	for _, pair := range rejected {
		b := &models.Booking{Status: pair[0]}
		if err := Transition(b, pair[1]); err == nil {
			t.Fatalf("%s -> %s: expected error", pair[0], pair[1])
		}
		if b.Status != pair[0] {
			t.Fatalf("status changed on rejected transition: %s", b.Status)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []string{models.BookingCompletedFinal, models.BookingCancelled, models.BookingNoShow} {
		if !IsTerminal(s) {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	if IsTerminal(models.BookingDisputed) {
		t.Fatal("disputed is not terminal")
	}
}
