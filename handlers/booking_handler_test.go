package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/testsupport"
	"github.com/gofiber/fiber/v2"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func bookViaAPI(t *testing.T, app *fiber.App, token string, slot *models.Slot, paymentID string) (int, testsupport.Envelope) {
	t.Helper()
	return testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/bookings", token, fiber.Map{
		"slotId":            slot.ID.String(),
		"provider":          "sandbox",
		"providerPaymentId": paymentID,
	})
}

func TestDoubleBookingIsRejected(t *testing.T) {
	app := testsupport.NewApp(t)
	testsupport.FreezeClock(t, t0)
	counselor := testsupport.CreateCounselor(t)
	slot := testsupport.CreateSlot(t, counselor, t0.Add(48*time.Hour))
	first := testsupport.CreateClient(t)
	second := testsupport.CreateClient(t)

	status, env := bookViaAPI(t, app, testsupport.Token(t, first.ID, models.RoleClient), slot, "pay_first")
	if status != http.StatusCreated {
		t.Fatalf("first booking: %d %s", status, env.Message)
	}
	var booking models.Booking
	env.Into(t, &booking)
	if booking.Status != models.BookingConfirmed || booking.Amount != 5000 {
		t.Fatalf("unexpected booking %+v", booking)
	}

	status, env = bookViaAPI(t, app, testsupport.Token(t, second.ID, models.RoleClient), slot, "pay_second")
	if status != http.StatusBadRequest {
		t.Fatalf("second booking: expected 400, got %d %s", status, env.Message)
	}

	var payments int64
	database.DB.Model(&models.Payment{}).Count(&payments)
	if payments != 1 {
		t.Fatalf("expected exactly one payment, got %d", payments)
	}
}

func TestBookingVisibility(t *testing.T) {
	app := testsupport.NewApp(t)
	testsupport.FreezeClock(t, t0)
	counselor := testsupport.CreateCounselor(t)
	client := testsupport.CreateClient(t)
	stranger := testsupport.CreateClient(t)
	booking := testsupport.CreateBooking(t, client, testsupport.CreateSlot(t, counselor, t0.Add(48*time.Hour)))
	path := "/api/v1/clients/bookings/" + booking.ID.String()

	status, env := testsupport.JSON(t, app, http.MethodGet, path, testsupport.Token(t, client.ID, models.RoleClient), nil)
	if status != http.StatusOK {
		t.Fatalf("owner: %d %s", status, env.Message)
	}
	var got models.Booking
	env.Into(t, &got)
	if got.Counselor == nil || got.Counselor.Email != "" {
		t.Fatalf("counselor contact details must be redacted for clients: %+v", got.Counselor)
	}

	if status, _ := testsupport.JSON(t, app, http.MethodGet, path, testsupport.Token(t, stranger.ID, models.RoleClient), nil); status != http.StatusNotFound {
		t.Fatalf("stranger: expected 404, got %d", status)
	}

	status, env = testsupport.JSON(t, app, http.MethodGet, "/api/v1/clients/bookings", testsupport.Token(t, client.ID, models.RoleClient), nil)
	if status != http.StatusOK || env.Meta["total"] != float64(1) {
		t.Fatalf("list: %d %v", status, env.Meta)
	}
}

func TestClientCancelViaAPI(t *testing.T) {
	app := testsupport.NewApp(t)
	testsupport.FreezeClock(t, t0)
	counselor := testsupport.CreateCounselor(t)
	client := testsupport.CreateClient(t)
	booking := testsupport.CreateBooking(t, client, testsupport.CreateSlot(t, counselor, t0.Add(48*time.Hour)))

	status, env := testsupport.JSON(t, app, http.MethodPost, "/api/v1/clients/bookings/"+booking.ID.String()+"/cancel",
		testsupport.Token(t, client.ID, models.RoleClient), fiber.Map{"reason": "travelling"})
	if status != http.StatusOK {
		t.Fatalf("cancel: %d %s", status, env.Message)
	}
	var got models.Booking
	env.Into(t, &got)
	if got.Status != models.BookingCancelled || got.Payout.AmountToClient != 5000 {
		t.Fatalf("unexpected cancellation %s %+v", got.Status, got.Payout)
	}
}

func TestDisputeFlow(t *testing.T) {
	app := testsupport.NewApp(t)
	testsupport.FreezeClock(t, t0)
	counselor := testsupport.CreateCounselor(t)
	client := testsupport.CreateClient(t)
	admin := testsupport.CreateAdmin(t, models.RoleAdmin)
	slot := testsupport.CreateSlot(t, counselor, t0.Add(24*time.Hour))
	booking := testsupport.CreateBooking(t, client, slot)

	clientToken := testsupport.Token(t, client.ID, models.RoleClient)
	counselorToken := testsupport.Token(t, counselor.ID, models.RoleCounselor)
	disputePath := "/api/v1/dispute/" + booking.ID.String()
	description := "The counselor joined thirty minutes late and left early."

	status, env := testsupport.Multipart(t, app, http.MethodPost, disputePath, clientToken, map[string]string{"description": description}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("dispute before the session: expected 400, got %d %s", status, env.Message)
	}

	testsupport.FreezeClock(t, slot.EndsAt.Add(5*time.Minute))
	status, env = testsupport.JSON(t, app, http.MethodPost, "/api/v1/counselors/me/bookings/"+booking.ID.String()+"/complete", counselorToken, nil)
	if status != http.StatusOK {
		t.Fatalf("complete: %d %s", status, env.Message)
	}

	status, _ = testsupport.Multipart(t, app, http.MethodPost, disputePath, clientToken, map[string]string{"description": "too short"}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("short description: expected 400, got %d", status)
	}

	status, env = testsupport.Multipart(t, app, http.MethodPost, disputePath, clientToken,
		map[string]string{"description": description},
		[]testsupport.Upload{{Field: "evidence", Filename: "chat.pdf", Data: testsupport.PDF}})
	if status != http.StatusCreated {
		t.Fatalf("raise dispute: %d %s", status, env.Message)
	}
	var dispute models.Dispute
	env.Into(t, &dispute)
	if dispute.Status != models.DisputeOpen || len(dispute.Evidence) != 1 {
		t.Fatalf("unexpected dispute %+v", dispute)
	}

	status, _ = testsupport.Multipart(t, app, http.MethodPost, disputePath, clientToken, map[string]string{"description": description}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("second dispute: expected 400, got %d", status)
	}

	if status, _ := testsupport.JSON(t, app, http.MethodGet, disputePath, counselorToken, nil); status != http.StatusOK {
		t.Fatalf("counselor view: %d", status)
	}

	adminToken := testsupport.Token(t, admin.ID, models.RoleAdmin)
	reviewPath := "/api/v1/admin/disputes/" + booking.ID.String()
	status, env = testsupport.JSON(t, app, http.MethodPut, reviewPath, adminToken, fiber.Map{
		"status": "resolved", "resolution": "split", "refundAmount": 5000,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("split of the full amount: expected 400, got %d %s", status, env.Message)
	}

	status, env = testsupport.JSON(t, app, http.MethodPut, reviewPath, adminToken, fiber.Map{
		"status": "resolved", "resolution": "split", "refundAmount": 1500, "notes": "Partial refund for lateness",
	})
	if status != http.StatusOK {
		t.Fatalf("resolve: %d %s", status, env.Message)
	}

	var final models.Booking
	database.DB.First(&final, "id = ?", booking.ID)
	if final.Status != models.BookingCompletedFinal || final.Payout.AmountToClient != 1500 || final.Payout.AmountToCounselor != 2800 {
		t.Fatalf("unexpected resolution %s %+v", final.Status, final.Payout)
	}

	status, _ = testsupport.JSON(t, app, http.MethodPut, reviewPath, adminToken, fiber.Map{"status": "resolved", "resolution": "refund"})
	if status != http.StatusBadRequest {
		t.Fatalf("re-resolve: expected 400, got %d", status)
	}
}

func TestCounselorNoShowReport(t *testing.T) {
	app := testsupport.NewApp(t)
	testsupport.FreezeClock(t, t0)
	counselor := testsupport.CreateCounselor(t)
	booking := testsupport.CreateBooking(t, testsupport.CreateClient(t), testsupport.CreateSlot(t, counselor, t0.Add(24*time.Hour)))
	token := testsupport.Token(t, counselor.ID, models.RoleCounselor)
	path := "/api/v1/counselors/me/bookings/" + booking.ID.String() + "/no-show"

	testsupport.FreezeClock(t, t0.Add(24*time.Hour+20*time.Minute))
	if status, _ := testsupport.JSON(t, app, http.MethodPost, path, token, fiber.Map{"party": "counselor"}); status != http.StatusForbidden {
		t.Fatalf("counselor reporting themselves: expected 403, got %d", status)
	}
	status, env := testsupport.JSON(t, app, http.MethodPost, path, token, fiber.Map{"party": "client"})
	if status != http.StatusOK {
		t.Fatalf("no-show: %d %s", status, env.Message)
	}
	var got models.Booking
	env.Into(t, &got)
	if got.Status != models.BookingNoShow || got.Payout.Status != models.PayoutReleased {
		t.Fatalf("unexpected state %s %s", got.Status, got.Payout.Status)
	}
}
