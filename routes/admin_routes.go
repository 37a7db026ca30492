package routes

import (
	"github.com/anjiri1684/counsel_hub/handlers"
	"github.com/anjiri1684/counsel_hub/middleware"
	"github.com/gofiber/fiber/v2"
)

func adminAuth() []fiber.Handler {
	return []fiber.Handler{middleware.Protected(), middleware.AdminRequired(), middleware.ActiveAccount()}
}

func AdminRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	price := api.Group("/price")
	price.Get("", handlers.ListPrices)
	price.Put("/:level", append(adminAuth(), handlers.UpdatePrice)...)

	admin := api.Group("/admin", adminAuth()...)
	admin.Get("/dashboard", handlers.GetDashboard)

	admins := admin.Group("/admins", middleware.SuperAdminRequired())
	admins.Post("", handlers.CreateAdmin)
	admins.Patch("/:adminId/status", handlers.SetAdminStatus)

	applications := admin.Group("/applications")
	applications.Get("", handlers.ListApplications)
	applications.Put("/:counselorId", handlers.DecideApplication)

	clients := admin.Group("/clients")
	clients.Get("", handlers.ListClients)
	clients.Patch("/:id/block", handlers.BlockClient)

	counselors := admin.Group("/counselors")
	counselors.Get("", handlers.AdminListCounselors)
	counselors.Patch("/:id/block", handlers.BlockCounselor)

	bookings := admin.Group("/bookings")
	bookings.Get("", handlers.AdminListBookings)
	bookings.Get("/:id", handlers.GetBooking)
	bookings.Post("/:bookingId/no-show", handlers.AdminReportNoShow)
	bookings.Post("/:bookingId/release-payout", handlers.AdminReleasePayout)

	disputes := admin.Group("/disputes")
	disputes.Get("", handlers.AdminListDisputes)
	disputes.Put("/:bookingId", handlers.AdminReviewDispute)

	notifications := admin.Group("/notifications")
	notifications.Get("", handlers.ListNotifications)
	notifications.Post("/:id/retry", handlers.RetryNotification)
	notifications.Post("/:id/abandon", handlers.AbandonNotification)

	reports := admin.Group("/reports")
	reports.Get("/transactions", handlers.GenerateTransactionReport)

	admin.Delete("/blogs/:blogId", handlers.AdminDeleteBlog)
}
