package handlers

import (
	"github.com/anjiri1684/counsel_hub/apperrors"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/middleware"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/services"
	"github.com/anjiri1684/counsel_hub/storage"
	"github.com/anjiri1684/counsel_hub/utils"
	"github.com/gofiber/fiber/v2"
)

// RaiseDispute takes a multipart form with a description and up to five
// evidence files. Eligibility is checked before anything is uploaded.
func RaiseDispute(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	bookingID, err := paramUUID(c, "bookingId")
	if err != nil {
		return err
	}

	description := c.FormValue("description")
	if err := services.ValidateDisputeDescription(description); err != nil {
		return err
	}
	if _, err := services.LoadDisputableBooking(bookingID, userID); err != nil {
		return err
	}

	var evidence []string
	if form, err := c.MultipartForm(); err == nil {
		files := form.File["evidence"]
		if len(files) > services.MaxDisputeEvidence {
			return apperrors.BadRequest("At most %d evidence files are allowed", services.MaxDisputeEvidence)
		}
		checked := make([]*storage.File, 0, len(files))
		for _, fh := range files {
			f, err := storage.ReadFile(fh, storage.Evidence)
			if err != nil {
				return err
			}
			checked = append(checked, f)
		}
		for _, f := range checked {
			url, err := storage.Put(c.UserContext(), "disputes/"+bookingID.String(), userID, f)
			if err != nil {
				return apperrors.Internal("Failed to upload evidence")
			}
			evidence = append(evidence, url)
		}
	}

	booking, err := services.RaiseDispute(c.UserContext(), bookingID, userID, description, evidence)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusCreated, "Dispute raised", booking.Dispute)
}

func GetDispute(c *fiber.Ctx) error {
	userID, role := middleware.CurrentUser(c)
	bookingID, err := paramUUID(c, "bookingId")
	if err != nil {
		return err
	}

	var booking models.Booking
	if err := database.DB.First(&booking, "id = ?", bookingID).Error; err != nil {
		return apperrors.NotFound("Booking not found")
	}
	if !middleware.IsAdminRole(role) && !booking.IsParticipant(userID) {
		return apperrors.NotFound("Booking not found")
	}
	if !booking.Dispute.IsDisputed {
		return apperrors.NotFound("No dispute found for this booking")
	}
	return utils.Respond(c, fiber.StatusOK, "Dispute fetched", fiber.Map{
		"booking_id":     booking.ID,
		"booking_status": booking.Status,
		"dispute":        booking.Dispute,
		"payout":         booking.Payout,
	})
}
