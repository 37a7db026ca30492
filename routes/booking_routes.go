package routes

import (
	"github.com/anjiri1684/counsel_hub/handlers"
	"github.com/anjiri1684/counsel_hub/middleware"
	"github.com/gofiber/fiber/v2"
)

func BookingRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	bookings := api.Group("/clients/bookings", clientAuth()...)
	bookings.Post("", handlers.CreateBooking)
	bookings.Get("", handlers.GetClientBookings)
	bookings.Get("/:id", handlers.GetBooking)
	bookings.Post("/:id/cancel", handlers.ClientCancelBooking)

	dispute := api.Group("/dispute", middleware.Protected(), middleware.ActiveAccount())
	dispute.Post("/:bookingId", middleware.ClientRequired(), handlers.RaiseDispute)
	dispute.Get("/:bookingId", handlers.GetDispute)
}
