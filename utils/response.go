package utils

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Respond writes the standard {success, message, data} envelope.
func Respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": status < fiber.StatusBadRequest,
		"message": message,
		"data":    data,
	})
}

func Fail(c *fiber.Ctx, status int, message string) error {
	return Respond(c, status, message, nil)
}

type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// ParsePage reads page and limit query params, clamping limit to 100.
func ParsePage(c *fiber.Ctx) Page {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return Page{Page: page, Limit: limit}
}

func RespondPage(c *fiber.Ctx, message string, data any, p Page, total int64) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
		"meta": fiber.Map{
			"total":       total,
			"page":        p.Page,
			"limit":       p.Limit,
			"total_pages": int(math.Ceil(float64(total) / float64(p.Limit))),
		},
	})
}
