package handlers

import (
	"github.com/anjiri1684/counsel_hub/apperrors"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/utils"
	"github.com/gofiber/fiber/v2"
)

type UpdatePriceRequest struct {
	MinPrice int64 `json:"minPrice" validate:"required,gt=0"`
	MaxPrice int64 `json:"maxPrice" validate:"required,gtefield=MinPrice"`
}

func ListPrices(c *fiber.Ctx) error {
	var prices []models.Price
	if err := database.DB.Order("min_price asc").Find(&prices).Error; err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Prices fetched", prices)
}

func UpdatePrice(c *fiber.Ctx) error {
	level := c.Params("level")
	var req UpdatePriceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var price models.Price
	if err := database.DB.First(&price, "level = ?", level).Error; err != nil {
		return apperrors.NotFound("Unknown experience level %q", level)
	}
	price.MinPrice = req.MinPrice
	price.MaxPrice = req.MaxPrice
	if err := database.DB.Save(&price).Error; err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Price updated", price)
}
