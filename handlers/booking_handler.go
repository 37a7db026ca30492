package handlers

import (
	"github.com/anjiri1684/counsel_hub/apperrors"
	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/middleware"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/services"
	"github.com/anjiri1684/counsel_hub/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func currency() string {
	return config.Config("CURRENCY")
}

type CreateBookingRequest struct {
	SlotID            string `json:"slotId" validate:"required,uuid"`
	Provider          string `json:"provider" validate:"required"`
	ProviderPaymentID string `json:"providerPaymentId" validate:"required,max=255"`
}

func CreateBooking(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)

	var req CreateBookingRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	booking, err := services.CreateBooking(c.UserContext(), services.CreateBookingInput{
		ClientID:          userID,
		SlotID:            uuid.MustParse(req.SlotID),
		Provider:          req.Provider,
		ProviderPaymentID: req.ProviderPaymentID,
	})
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusCreated, "Booking confirmed", booking)
}

func GetClientBookings(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	p := utils.ParsePage(c)

	query := database.DB.Model(&models.Booking{}).Where("client_id = ?", userID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}
	var bookings []models.Booking
	err := query.Preload("Counselor").Order("starts_at desc").Offset(p.Offset()).Limit(p.Limit).Find(&bookings).Error
	if err != nil {
		return err
	}
	for i := range bookings {
		if bookings[i].Counselor != nil {
			bookings[i].Counselor = bookings[i].Counselor.Redacted()
		}
	}
	return utils.RespondPage(c, "Bookings fetched", bookings, p, total)
}

// GetBooking returns one booking to its participants and to admins.
func GetBooking(c *fiber.Ctx) error {
	userID, role := middleware.CurrentUser(c)
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var booking models.Booking
	err = database.DB.Preload("Client").Preload("Counselor").Preload("Slot").Preload("Payment").
		First(&booking, "id = ?", id).Error
	if err != nil {
		return apperrors.NotFound("Booking not found")
	}
	if !middleware.IsAdminRole(role) && !booking.IsParticipant(userID) {
		return apperrors.NotFound("Booking not found")
	}
	if role == models.RoleClient && booking.Counselor != nil {
		booking.Counselor = booking.Counselor.Redacted()
	}
	return utils.Respond(c, fiber.StatusOK, "Booking fetched", booking)
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

func cancelAs(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := middleware.CurrentUser(c)
		id, err := paramUUID(c, "id")
		if err != nil {
			return err
		}
		var req CancelBookingRequest
		if len(c.Body()) > 0 {
			if err := parseBody(c, &req); err != nil {
				return err
			}
		}
		booking, err := services.CancelBooking(c.UserContext(), id, userID, role, req.Reason)
		if err != nil {
			return err
		}
		return utils.Respond(c, fiber.StatusOK, "Booking cancelled", booking)
	}
}

var (
	ClientCancelBooking    = cancelAs(models.RoleClient)
	CounselorCancelBooking = cancelAs(models.RoleCounselor)
)
