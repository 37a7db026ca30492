package handlers

import (
	"errors"

	"github.com/anjiri1684/counsel_hub/apperrors"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/middleware"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/services"
	"github.com/anjiri1684/counsel_hub/storage"
	"github.com/anjiri1684/counsel_hub/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UpdateClientProfileRequest struct {
	FullName    *string           `json:"fullName" validate:"omitempty,min=3,max=255"`
	Phone       *string           `json:"phone" validate:"omitempty,e164"`
	Preferences map[string]string `json:"preferences"`
}

type UpdateCounselorProfileRequest struct {
	FullName        *string  `json:"fullName" validate:"omitempty,min=3,max=255"`
	Phone           *string  `json:"phone" validate:"omitempty,e164"`
	Bio             *string  `json:"bio" validate:"omitempty,max=5000"`
	Specializations []string `json:"specializations" validate:"omitempty,max=20,dive,min=2,max=100"`
	ExperienceYears *int     `json:"experienceYears" validate:"omitempty,min=0,max=70"`
	SessionPrice    *int64   `json:"sessionPrice" validate:"omitempty,gt=0"`
}

func loadClient(id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := database.DB.First(&client, "id = ?", id).Error; err != nil {
		return nil, apperrors.NotFound("Client not found")
	}
	return &client, nil
}

func loadCounselor(id uuid.UUID) (*models.Counselor, error) {
	var counselor models.Counselor
	if err := database.DB.First(&counselor, "id = ?", id).Error; err != nil {
		return nil, apperrors.NotFound("Counselor not found")
	}
	return &counselor, nil
}

func saveProfile(value any) error {
	if err := database.DB.Omit(clause.Associations).Save(value).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.BadRequest("Phone number is already in use")
		}
		return err
	}
	return nil
}

func GetClientProfile(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	client, err := loadClient(userID)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Profile fetched", client)
}

func UpdateClientProfile(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	var req UpdateClientProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	client, err := loadClient(userID)
	if err != nil {
		return err
	}

	if req.FullName != nil {
		client.FullName = *req.FullName
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}
	if req.Preferences != nil {
		client.Preferences = req.Preferences
	}
	if err := saveProfile(client); err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Profile updated", client)
}

func GetCounselorProfile(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	counselor, err := loadCounselor(userID)
	if err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Profile fetched", counselor)
}

// UpdateCounselorProfile re-derives the experience level and re-checks the
// session price against that level's bounds.
func UpdateCounselorProfile(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	var req UpdateCounselorProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	counselor, err := loadCounselor(userID)
	if err != nil {
		return err
	}

	if req.FullName != nil {
		counselor.FullName = *req.FullName
	}
	if req.Phone != nil {
		counselor.Phone = *req.Phone
	}
	if req.Bio != nil {
		counselor.Bio = *req.Bio
	}
	if req.Specializations != nil {
		counselor.Specializations = req.Specializations
	}
	if req.ExperienceYears != nil {
		counselor.ExperienceYears = *req.ExperienceYears
		counselor.ExperienceLevel = services.ExperienceLevel(*req.ExperienceYears)
	}
	if req.SessionPrice != nil {
		counselor.SessionPrice = *req.SessionPrice
	}
	if counselor.SessionPrice > 0 && (req.SessionPrice != nil || req.ExperienceYears != nil) {
		if err := services.ValidateSessionPrice(database.DB, counselor.ExperienceLevel, counselor.SessionPrice); err != nil {
			return err
		}
	}

	if err := saveProfile(counselor); err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Profile updated", counselor)
}

// uploadProfilePicture validates, resizes and stores the profilePicture form
// file and returns its URL.
func uploadProfilePicture(c *fiber.Ctx, owner uuid.UUID) (string, error) {
	fh, err := c.FormFile("profilePicture")
	if err != nil {
		return "", apperrors.BadRequest("profilePicture file is required")
	}
	f, err := storage.ReadFile(fh, storage.ProfileImage)
	if err != nil {
		return "", err
	}
	if f, err = storage.PrepareProfileImage(f); err != nil {
		return "", err
	}
	url, err := storage.Put(c.UserContext(), "profile-pictures", owner, f)
	if err != nil {
		return "", apperrors.Internal("Failed to upload profile picture")
	}
	return url, nil
}

func UploadClientPicture(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	url, err := uploadProfilePicture(c, userID)
	if err != nil {
		return err
	}
	if err := database.DB.Model(&models.Client{}).Where("id = ?", userID).Update("profile_picture_url", url).Error; err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Profile picture updated", fiber.Map{"profile_picture_url": url})
}

func UploadCounselorPicture(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	url, err := uploadProfilePicture(c, userID)
	if err != nil {
		return err
	}
	if err := database.DB.Model(&models.Counselor{}).Where("id = ?", userID).Update("profile_picture_url", url).Error; err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Profile picture updated", fiber.Map{"profile_picture_url": url})
}
