package services

import (
	"strings"
	"testing"
	"time"

	"github.com/anjiri1684/counsel_hub/models"
)

func TestCheckDisputeEligible(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	open := now.Add(time.Hour)
	closed := now.Add(-time.Minute)

	cases := []struct {
		name    string
		booking models.Booking
		ok      bool
	}{
		{"completed pending", models.Booking{Status: models.BookingCompletedPending, EndsAt: now.Add(-time.Hour)}, true},
		{"window open", models.Booking{Status: models.BookingDisputeWindowOpen, EndsAt: now.Add(-time.Hour), DisputeWindowEndsAt: &open}, true},
		{"window closed", models.Booking{Status: models.BookingDisputeWindowOpen, EndsAt: now.Add(-time.Hour), DisputeWindowEndsAt: &closed}, false},
		{"already disputed", models.Booking{Status: models.BookingDisputed, EndsAt: now.Add(-time.Hour)}, false},
		{"session not over", models.Booking{Status: models.BookingConfirmed, EndsAt: now.Add(time.Hour)}, false},
		{"ended but not yet advanced", models.Booking{Status: models.BookingConfirmed, EndsAt: now.Add(-time.Minute)}, true},
		{"cancelled", models.Booking{Status: models.BookingCancelled, EndsAt: now.Add(-time.Hour)}, false},
		{"final", models.Booking{Status: models.BookingCompletedFinal, EndsAt: now.Add(-time.Hour)}, false},
	}
	for _, tc := range cases {
		err := CheckDisputeEligible(&tc.booking, now)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestDisputeRefund(t *testing.T) {
	if got, err := DisputeRefund(ResolutionRelease, 0, 5000); err != nil || got != 0 {
		t.Fatalf("release: expected 0, got %d (%v)", got, err)
	}
	if got, err := DisputeRefund(ResolutionRefund, 0, 5000); err != nil || got != 5000 {
		t.Fatalf("refund: expected 5000, got %d (%v)", got, err)
	}
	if got, err := DisputeRefund(ResolutionSplit, 1500, 5000); err != nil || got != 1500 {
		t.Fatalf("split: expected 1500, got %d (%v)", got, err)
	}
	for _, amount := range []int64{0, 5000, 6000} {
		if _, err := DisputeRefund(ResolutionSplit, amount, 5000); err == nil {
			t.Fatalf("split %d: expected error", amount)
		}
	}
	if _, err := DisputeRefund("", 0, 5000); err == nil {
		t.Fatal("expected error without a resolution")
	}
}

func TestValidateDisputeDescription(t *testing.T) {
	if err := ValidateDisputeDescription("too short"); err == nil {
		t.Fatal("expected error for short description")
	}
	if err := ValidateDisputeDescription(strings.Repeat("ü", 20)); err != nil {
		t.Fatalf("20 runes should be accepted: %v", err)
	}
	if err := ValidateDisputeDescription(strings.Repeat("a", 2001)); err == nil {
		t.Fatal("expected error for long description")
	}
}

func TestExperienceLevel(t *testing.T) {
	cases := map[int]string{0: models.LevelEntry, 2: models.LevelEntry, 3: models.LevelIntermediate, 10: models.LevelSenior, 11: models.LevelExpert}
	for years, want := range cases {
		if got := ExperienceLevel(years); got != want {
			t.Fatalf("ExperienceLevel(%d): expected %s, got %s", years, want, got)
		}
	}
}
