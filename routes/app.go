package routes

import (
	"errors"
	"time"

	"github.com/anjiri1684/counsel_hub/apperrors"
	config "github.com/anjiri1684/counsel_hub/configs"
	applog "github.com/anjiri1684/counsel_hub/logger"
	"github.com/anjiri1684/counsel_hub/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// ErrorHandler renders every error as the standard envelope. Errors that are
// not apperrors or fiber errors are logged and reported as a plain 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if appErr, ok := apperrors.As(err); ok {
		return utils.Fail(c, appErr.Status, appErr.Message)
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return utils.Fail(c, fiberErr.Code, fiberErr.Message)
	}
	applog.Log.Errorw("[ERROR] unhandled", "error", err, "path", c.Path(), "method", c.Method())
	return utils.Fail(c, fiber.StatusInternalServerError, "Internal server error")
}

// NewApp builds the Fiber app with middleware and every route group.
func NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:       false,
		AppName:       "Counsel Hub",
		CaseSensitive: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		BodyLimit:     130 * 1024 * 1024,
		ErrorHandler:  ErrorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.Config("FRONTEND_ORIGIN"),
		AllowCredentials: config.Config("FRONTEND_ORIGIN") != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Disposition",
		MaxAge:           86400,
	}))
	app.Use(recover.New())
	if !config.Bool("DISABLE_ACCESS_LOG") {
		app.Use(logger.New(logger.Config{
			TimeFormat: "2006-01-02 15:04:05",
			TimeZone:   config.Config("APP_TIMEZONE"),
			Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return utils.Respond(c, fiber.StatusOK, "Welcome to Counsel Hub API", nil)
	})

	PublicRoutes(app)
	AuthRoutes(app)
	ClientRoutes(app)
	CounselorRoutes(app)
	BookingRoutes(app)
	AdminRoutes(app)

	return app
}
