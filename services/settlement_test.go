package services

import (
	"testing"
	"time"
)

func TestComputeSettlement(t *testing.T) {
	cases := []struct {
		name                          string
		gross, fee, bps, refund       int64
		platformFee, payout, platform int64
	}{
		{"no refund", 5000, 145, 2000, 0, 1000, 4000, 855},
		{"half refund", 5000, 145, 2000, 2500, 500, 2000, 355},
		{"full refund", 5000, 145, 2000, 5000, 0, 0, -145},
		{"rounds half up", 333, 0, 2000, 0, 67, 266, 67},
		{"zero commission", 5000, 145, 0, 0, 0, 5000, -145},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := ComputeSettlement(tc.gross, tc.fee, tc.bps, tc.refund)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.PlatformFee != tc.platformFee || s.CounselorPayout != tc.payout || s.PlatformNet != tc.platform {
				t.Fatalf("expected fee %d payout %d net %d, got %+v", tc.platformFee, tc.payout, tc.platform, s)
			}
			if s.Refund+s.PlatformFee+s.CounselorPayout != tc.gross {
				t.Fatalf("settlement does not add up to gross: %+v", s)
			}
		})
	}
}

func TestComputeSettlementRejectsBadInput(t *testing.T) {
	if _, err := ComputeSettlement(5000, 0, 2000, 5001); err == nil {
		t.Fatal("expected error for refund above gross")
	}
	if _, err := ComputeSettlement(-1, 0, 2000, 0); err == nil {
		t.Fatal("expected error for negative gross")
	}
	if _, err := ComputeSettlement(5000, 0, 10001, 0); err == nil {
		t.Fatal("expected error for commission above 100%")
	}
}

func TestCommissionBps(t *testing.T) {
	if got := CommissionBps(0.2); got != 2000 {
		t.Fatalf("expected 2000, got %d", got)
	}
	if got := CommissionBps(0.175); got != 1750 {
		t.Fatalf("expected 1750, got %d", got)
	}
}

func TestCancellationRefund(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	cases := []struct {
		name     string
		startsAt time.Time
		by       string
		want     int64
	}{
		{"client early", now.Add(48 * time.Hour), "client", 5000},
		{"client exactly at window", now.Add(24 * time.Hour), "client", 5000},
		{"client late", now.Add(2 * time.Hour), "client", 2500},
		{"counselor late", now.Add(time.Hour), "counselor", 5000},
	}
	for _, tc := range cases {
		got, err := CancellationRefund(5000, tc.startsAt, now, tc.by, window, 0.5)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}

	if _, err := CancellationRefund(5000, now, now, "client", window, 0.5); err == nil {
		t.Fatal("expected error once the session has started")
	}
}
