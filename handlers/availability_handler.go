package handlers

import (
	"errors"
	"time"

	"github.com/anjiri1684/counsel_hub/apperrors"
	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/middleware"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/services"
	"github.com/anjiri1684/counsel_hub/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type TemplateRequest struct {
	SessionMinutes int                       `json:"sessionMinutes" validate:"omitempty,min=15,max=240"`
	Rules          []models.AvailabilityRule `json:"rules" validate:"required,max=50,dive"`
}

func GetMyTemplate(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	var tmpl models.AvailabilityTemplate
	if err := database.DB.First(&tmpl, "counselor_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Respond(c, fiber.StatusOK, "No template set", models.AvailabilityTemplate{
				CounselorID:    userID,
				SessionMinutes: config.Int("DEFAULT_SESSION_MINUTES"),
				Rules:          []models.AvailabilityRule{},
			})
		}
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Template fetched", tmpl)
}

// PutMyTemplate replaces the weekly template. Slots already generated are
// not changed.
func PutMyTemplate(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	var req TemplateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.SessionMinutes == 0 {
		req.SessionMinutes = config.Int("DEFAULT_SESSION_MINUTES")
	}
	if err := services.ValidateRules(req.Rules, req.SessionMinutes); err != nil {
		return err
	}

	var tmpl models.AvailabilityTemplate
	err := database.DB.First(&tmpl, "counselor_id = ?", userID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	tmpl.CounselorID = userID
	tmpl.SessionMinutes = req.SessionMinutes
	tmpl.Rules = req.Rules
	if err := database.DB.Save(&tmpl).Error; err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Template saved", tmpl)
}

type GenerateSlotsRequest struct {
	Days int `json:"days" validate:"omitempty,min=1,max=90"`
}

func GenerateMySlots(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	var req GenerateSlotsRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	counselor, err := loadCounselor(userID)
	if err != nil {
		return err
	}
	created, err := services.GenerateSlots(database.DB, counselor, req.Days)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusCreated, "Slots generated", fiber.Map{"created": created})
}

// dateRange reads optional from/to (YYYY-MM-DD) query params.
func dateRange(c *fiber.Ctx) (string, string, error) {
	from, to := c.Query("from"), c.Query("to")
	for _, v := range []string{from, to} {
		if v == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return "", "", apperrors.BadRequest("dates must be formatted as YYYY-MM-DD")
		}
	}
	return from, to, nil
}

func GetMySlots(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	from, to, err := dateRange(c)
	if err != nil {
		return err
	}

	query := database.DB.Where("counselor_id = ?", userID)
	if from != "" {
		query = query.Where("date >= ?", from)
	}
	if to != "" {
		query = query.Where("date <= ?", to)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var slots []models.Slot
	if err := query.Order("starts_at asc").Limit(500).Find(&slots).Error; err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Slots fetched", slots)
}

type UpdateSlotRequest struct {
	Status string `json:"status" validate:"required,oneof=open blocked"`
}

func loadOwnSlot(c *fiber.Ctx) (*models.Slot, error) {
	userID, _ := middleware.CurrentUser(c)
	id, err := paramUUID(c, "slotId")
	if err != nil {
		return nil, err
	}
	var slot models.Slot
	if err := database.DB.First(&slot, "id = ? AND counselor_id = ?", id, userID).Error; err != nil {
		return nil, apperrors.NotFound("Slot not found")
	}
	return &slot, nil
}

// UpdateMySlot toggles a slot between open and blocked. The update is
// conditional so a slot booked in the meantime is never touched.
func UpdateMySlot(c *fiber.Ctx) error {
	var req UpdateSlotRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	slot, err := loadOwnSlot(c)
	if err != nil {
		return err
	}
	if req.Status == models.SlotOpen && !slot.StartsAt.After(services.Now()) {
		return apperrors.BadRequest("Past slots cannot be reopened")
	}

	res := database.DB.Model(&models.Slot{}).
		Where("id = ? AND status <> ?", slot.ID, models.SlotBooked).
		Update("status", req.Status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.BadRequest("Booked slots cannot be changed")
	}
	slot.Status = req.Status
	return utils.Respond(c, fiber.StatusOK, "Slot updated", slot)
}

func DeleteMySlot(c *fiber.Ctx) error {
	slot, err := loadOwnSlot(c)
	if err != nil {
		return err
	}
	res := database.DB.Where("id = ? AND status <> ?", slot.ID, models.SlotBooked).Delete(&models.Slot{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.BadRequest("Booked slots cannot be deleted")
	}
	return utils.Respond(c, fiber.StatusOK, "Slot deleted", nil)
}

// GetCounselorAvailability lists future open slots of a bookable counselor.
func GetCounselorAvailability(c *fiber.Ctx) error {
	id, err := paramUUID(c, "counselorId")
	if err != nil {
		return err
	}
	counselor, err := loadCounselor(id)
	if err != nil {
		return err
	}
	if !counselor.IsBookable() {
		return apperrors.NotFound("Counselor not found")
	}
	from, to, err := dateRange(c)
	if err != nil {
		return err
	}

	query := database.DB.Where("counselor_id = ? AND status = ? AND starts_at > ?", id, models.SlotOpen, services.Now())
	if from != "" {
		query = query.Where("date >= ?", from)
	}
	if to != "" {
		query = query.Where("date <= ?", to)
	}
	var slots []models.Slot
	if err := query.Order("starts_at asc").Limit(500).Find(&slots).Error; err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Availability fetched", slots)
}
