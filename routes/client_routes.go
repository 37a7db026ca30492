package routes

import (
	"github.com/anjiri1684/counsel_hub/handlers"
	"github.com/anjiri1684/counsel_hub/middleware"
	"github.com/gofiber/fiber/v2"
)

func clientAuth() []fiber.Handler {
	return []fiber.Handler{middleware.Protected(), middleware.ClientRequired(), middleware.ActiveAccount()}
}

func ClientRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	me := api.Group("/clients/me", clientAuth()...)
	me.Get("", handlers.GetClientProfile)
	me.Put("", handlers.UpdateClientProfile)
	me.Put("/picture", handlers.UploadClientPicture)
}
