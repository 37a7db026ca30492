package routes

import (
	"github.com/anjiri1684/counsel_hub/handlers"
	"github.com/anjiri1684/counsel_hub/middleware"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/gofiber/fiber/v2"
)

// AuthRoutes registers the OTP, registration and login endpoints of clients
// and counselors. Both roles share the same flow under their own prefix.
func AuthRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	for prefix, role := range map[string]string{"/clients": models.RoleClient, "/counselors": models.RoleCounselor} {
		group := api.Group(prefix)
		group.Post("/send-otp", middleware.RateLimit(role+":send-otp"), handlers.SendOTP(role))
		group.Post("/verify-otp", middleware.RateLimit(role+":verify-otp"), handlers.VerifyOTP(role))
		group.Post("/login", middleware.RateLimit(role+":login"), handlers.Login(role))
		group.Post("/reset-password", middleware.RateLimit(role+":reset-password"), handlers.ResetPassword(role))
		group.Post("/logout", handlers.Logout)
	}

	api.Post("/clients/register", handlers.RegisterClient)
	api.Post("/counselors/register", handlers.RegisterCounselor)
	api.Post("/admin/login", middleware.RateLimit("admin:login"), handlers.AdminLogin)
}
