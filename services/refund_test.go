package services_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/payments"
	"github.com/anjiri1684/counsel_hub/services"
	"github.com/anjiri1684/counsel_hub/testsupport"
)

// stubGateway is the sandbox under another name, with the captured currency
// overridable and a hook that runs after each capture.
type stubGateway struct {
	*payments.SandboxGateway
	name      string
	currency  string
	onCapture func(providerPaymentID string)
}

func (g *stubGateway) Name() string { return g.name }

func (g *stubGateway) Capture(ctx context.Context, providerPaymentID string, expectedAmount int64, currency string) (*payments.Charge, error) {
	charge, err := g.SandboxGateway.Capture(ctx, providerPaymentID, expectedAmount, currency)
	if err != nil {
		return nil, err
	}
	if g.currency != "" {
		charge.Currency = g.currency
	}
	if g.onCapture != nil {
		g.onCapture(providerPaymentID)
	}
	return charge, nil
}

func registerStub(g *stubGateway) *stubGateway {
	g.SandboxGateway = payments.NewSandboxGateway()
	payments.Register(g)
	return g
}

func sandbox(t *testing.T) *payments.SandboxGateway {
	t.Helper()
	g, err := payments.Get("sandbox")
	if err != nil {
		t.Fatalf("sandbox gateway: %v", err)
	}
	return g.(*payments.SandboxGateway)
}

func slotStatus(t *testing.T, slot *models.Slot) string {
	t.Helper()
	var s models.Slot
	if err := database.DB.First(&s, "id = ?", slot.ID).Error; err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	return s.Status
}

func TestCreateBookingRejectsForeignCurrency(t *testing.T) {
	testsupport.Setup(t)
	testsupport.FreezeClock(t, t0)
	gw := registerStub(&stubGateway{name: "stub_jpy", currency: "JPY"})
	client := testsupport.CreateClient(t)
	slot := testsupport.CreateSlot(t, testsupport.CreateCounselor(t), t0.Add(48*time.Hour))

	_, err := services.CreateBooking(t.Context(), services.CreateBookingInput{
		ClientID:          client.ID,
		SlotID:            slot.ID,
		Provider:          gw.Name(),
		ProviderPaymentID: "order_jpy",
	})
	expectStatus(t, err, http.StatusBadRequest)

	if gw.Refunded() != 5000 {
		t.Fatalf("foreign currency capture should be reversed, refunded %d", gw.Refunded())
	}
	if got := slotStatus(t, slot); got != models.SlotOpen {
		t.Fatalf("slot should stay open, got %s", got)
	}
	var bookings int64
	database.DB.Model(&models.Booking{}).Count(&bookings)
	if bookings != 0 {
		t.Fatalf("expected no booking, got %d", bookings)
	}
}

func TestCreateBookingKeepsCaptureOwnedByConcurrentBooking(t *testing.T) {
	testsupport.Setup(t)
	testsupport.FreezeClock(t, t0)
	client := testsupport.CreateClient(t)
	slot := testsupport.CreateSlot(t, testsupport.CreateCounselor(t), t0.Add(48*time.Hour))

	// Another request with the same order commits its payment while this
	// one is capturing.
	gw := registerStub(&stubGateway{name: "stub_race"})
	gw.onCapture = func(providerPaymentID string) {
		winner := models.Payment{
			ClientID:          client.ID,
			Provider:          gw.Name(),
			ProviderPaymentID: providerPaymentID,
			ProviderCaptureID: "cap_" + providerPaymentID,
			Amount:            5000,
			Currency:          "USD",
			Status:            models.PaymentCaptured,
		}
		if err := database.DB.Create(&winner).Error; err != nil {
			t.Errorf("insert concurrent payment: %v", err)
		}
	}

	_, err := services.CreateBooking(t.Context(), services.CreateBookingInput{
		ClientID:          client.ID,
		SlotID:            slot.ID,
		Provider:          gw.Name(),
		ProviderPaymentID: "order_shared",
	})
	if !errors.Is(err, services.ErrPaymentReused) {
		t.Fatalf("expected ErrPaymentReused, got %v", err)
	}
	expectStatus(t, err, http.StatusBadRequest)

	if gw.Refunded() != 0 {
		t.Fatalf("shared capture must not be refunded, refunded %d", gw.Refunded())
	}
	if got := slotStatus(t, slot); got != models.SlotOpen {
		t.Fatalf("slot claim should roll back, got %s", got)
	}
}

func TestRolledBackCancellationMovesNoMoney(t *testing.T) {
	f := bookedFixture(t)
	gw := sandbox(t)

	if err := database.DB.Migrator().DropTable(&models.Notification{}); err != nil {
		t.Fatalf("drop notifications: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := services.CancelBooking(t.Context(), f.booking.ID, f.client.ID, models.RoleClient, ""); err == nil {
			t.Fatal("expected cancellation to fail without the outbox table")
		}
	}
	if gw.Refunded() != 0 {
		t.Fatalf("failed cancellations refunded %d", gw.Refunded())
	}
	b := reload(t, f.booking.ID)
	if b.Status != models.BookingConfirmed || b.Payout.Status != models.PayoutPending {
		t.Fatalf("booking should be untouched, got %s / %s", b.Status, b.Payout.Status)
	}

	if err := database.DB.AutoMigrate(&models.Notification{}); err != nil {
		t.Fatalf("restore notifications: %v", err)
	}
	if _, err := services.CancelBooking(t.Context(), f.booking.ID, f.client.ID, models.RoleClient, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if gw.Refunded() != 5000 {
		t.Fatalf("expected exactly one 5000 refund, got %d", gw.Refunded())
	}
}

func TestFailedRefundStaysPendingUntilRetried(t *testing.T) {
	f := bookedFixture(t)
	gw := sandbox(t)
	gw.RefundErr = errors.New("provider unavailable")

	if _, err := services.CancelBooking(t.Context(), f.booking.ID, f.client.ID, models.RoleClient, ""); err != nil {
		t.Fatalf("cancel should commit even if the provider is down: %v", err)
	}
	b := reload(t, f.booking.ID)
	if b.Status != models.BookingCancelled || b.Payment.Status != models.PaymentCaptured || b.Payment.RefundedAmount != 0 {
		t.Fatalf("unexpected state %s / payment %s refunded %d", b.Status, b.Payment.Status, b.Payment.RefundedAmount)
	}
	var r models.Refund
	database.DB.First(&r, "booking_id = ?", f.booking.ID)
	if r.Status != models.RefundPending || r.Attempts != 1 || r.LastError == nil {
		t.Fatalf("unexpected refund %+v", r)
	}

	gw.RefundErr = nil
	for i := 0; i < 2; i++ {
		if _, err := services.RetryPendingRefunds(t.Context()); err != nil {
			t.Fatalf("retry: %v", err)
		}
	}
	b = reload(t, f.booking.ID)
	if b.Payment.Status != models.PaymentRefunded || b.Payment.RefundedAmount != 5000 {
		t.Fatalf("unexpected payment %s refunded %d", b.Payment.Status, b.Payment.RefundedAmount)
	}
	database.DB.First(&r, "id = ?", r.ID)
	if r.Status != models.RefundSucceeded || r.ProviderRefundID == "" {
		t.Fatalf("unexpected refund %+v", r)
	}
	if gw.Refunded() != 5000 {
		t.Fatalf("expected 5000 refunded once, got %d", gw.Refunded())
	}
}
