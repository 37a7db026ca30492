package payments

import (
	"context"
	"errors"
	"testing"
)

func TestToMinor(t *testing.T) {
	cases := map[string]int64{
		"12.34": 1234,
		"12.5":  1250,
		"7":     700,
		"0.09":  9,
		".5":    50,
		"-3.10": -310,
	}
	for in, want := range cases {
		got, err := ToMinor(in)
		if err != nil {
			t.Fatalf("ToMinor(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ToMinor(%q): expected %d, got %d", in, want, got)
		}
	}

	for _, bad := range []string{"", "1.234", "abc", "1.x"} {
		if _, err := ToMinor(bad); err == nil {
			t.Fatalf("ToMinor(%q): expected error", bad)
		}
	}
}

func TestFormatMinor(t *testing.T) {
	if got := FormatMinor(1234); got != "12.34" {
		t.Fatalf("expected 12.34, got %s", got)
	}
	if got := FormatMinor(5); got != "0.05" {
		t.Fatalf("expected 0.05, got %s", got)
	}
	if got := FormatMinor(-250); got != "-2.50" {
		t.Fatalf("expected -2.50, got %s", got)
	}
}

func TestSandboxGateway(t *testing.T) {
	g := NewSandboxGateway()

	charge, err := g.Capture(context.Background(), "pay_1", 10000, "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if charge.Amount != 10000 || charge.Fee != 290 {
		t.Fatalf("expected amount 10000 fee 290, got %d fee %d", charge.Amount, charge.Fee)
	}
	if charge.ProviderCaptureID != "cap_pay_1" {
		t.Fatalf("unexpected capture id %s", charge.ProviderCaptureID)
	}

	if _, err := g.Capture(context.Background(), "fail_1", 10000, "USD"); !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}
}

func TestSandboxRefundIsIdempotent(t *testing.T) {
	g := NewSandboxGateway()
	ctx := context.Background()

	first, err := g.Refund(ctx, "cap_pay_1", 2500, "USD", "cancelled", "booking-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again, err := g.Refund(ctx, "cap_pay_1", 2500, "USD", "cancelled", "booking-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.ProviderRefundID != first.ProviderRefundID || g.Refunded() != 2500 {
		t.Fatalf("replayed refund moved money again: ids %s/%s total %d", first.ProviderRefundID, again.ProviderRefundID, g.Refunded())
	}

	if _, err := g.Refund(ctx, "cap_pay_1", 1000, "USD", "dispute", "booking-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Refunded() != 3500 {
		t.Fatalf("expected 3500 refunded, got %d", g.Refunded())
	}

	g.RefundErr = errors.New("provider down")
	if _, err := g.Refund(ctx, "cap_pay_1", 1000, "USD", "", "booking-3"); err == nil {
		t.Fatal("expected refund error")
	}
}

func TestRegistry(t *testing.T) {
	Register(NewSandboxGateway())
	if _, err := Get("sandbox"); err != nil {
		t.Fatalf("expected sandbox gateway, got %v", err)
	}
	if _, err := Get("nope"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}
