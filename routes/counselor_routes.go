package routes

import (
	"github.com/anjiri1684/counsel_hub/handlers"
	"github.com/anjiri1684/counsel_hub/middleware"
	"github.com/gofiber/fiber/v2"
)

func counselorAuth() []fiber.Handler {
	return []fiber.Handler{middleware.Protected(), middleware.CounselorRequired(), middleware.ActiveAccount()}
}

func CounselorRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	me := api.Group("/counselors/me", counselorAuth()...)
	me.Get("/profile", handlers.GetCounselorProfile)
	me.Put("/profile", handlers.UpdateCounselorProfile)
	me.Put("/picture", handlers.UploadCounselorPicture)
	me.Post("/application", handlers.SubmitApplication)
	me.Get("/application", handlers.GetMyApplication)
	me.Get("/earnings", handlers.GetEarnings)

	bookings := me.Group("/bookings")
	bookings.Get("", handlers.GetCounselorBookings)
	bookings.Get("/:id", handlers.GetBooking)
	bookings.Post("/:id/complete", handlers.CompleteBooking)
	bookings.Post("/:id/no-show", handlers.CounselorReportNoShow)
	bookings.Post("/:id/cancel", handlers.CounselorCancelBooking)

	availability := api.Group("/availability/me", counselorAuth()...)
	availability.Get("/template", handlers.GetMyTemplate)
	availability.Put("/template", handlers.PutMyTemplate)
	availability.Post("/generate", handlers.GenerateMySlots)
	availability.Get("/slots", handlers.GetMySlots)
	availability.Patch("/slots/:slotId", handlers.UpdateMySlot)
	availability.Delete("/slots/:slotId", handlers.DeleteMySlot)

	blogs := api.Group("/blogs")
	blogs.Get("", handlers.ListBlogs)
	blogs.Get("/:slug", handlers.GetBlog)
	blogs.Post("", append(counselorAuth(), handlers.CreateBlog)...)
	blogs.Put("/:blogId", append(counselorAuth(), handlers.UpdateBlog)...)
	blogs.Delete("/:blogId", append(counselorAuth(), handlers.DeleteBlog)...)

	api.Get("/counselors", handlers.ListCounselors)
	api.Get("/counselors/:counselorId", handlers.GetCounselor)
	api.Get("/availability/:counselorId", handlers.GetCounselorAvailability)
}
