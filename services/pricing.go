package services

import (
	"errors"

	"github.com/anjiri1684/counsel_hub/apperrors"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/payments"
	"gorm.io/gorm"
)

// ExperienceLevel buckets years of practice into a price level.
func ExperienceLevel(years int) string {
	switch {
	case years <= 2:
		return models.LevelEntry
	case years <= 5:
		return models.LevelIntermediate
	case years <= 10:
		return models.LevelSenior
	default:
		return models.LevelExpert
	}
}

func ValidateSessionPrice(db *gorm.DB, level string, price int64) error {
	var bounds models.Price
	if err := db.First(&bounds, "level = ?", level).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.BadRequest("No price bounds configured for %s counselors", level)
		}
		return err
	}
	if !bounds.Contains(price) {
		return apperrors.BadRequest("Session price must be between %s and %s for %s counselors",
			payments.FormatMinor(bounds.MinPrice), payments.FormatMinor(bounds.MaxPrice), level)
	}
	return nil
}
