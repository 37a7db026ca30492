package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/events"
	"github.com/anjiri1684/counsel_hub/jobs"
	"github.com/anjiri1684/counsel_hub/logger"
	"github.com/anjiri1684/counsel_hub/metrics"
	"github.com/anjiri1684/counsel_hub/notifications"
	"github.com/anjiri1684/counsel_hub/payments"
	"github.com/anjiri1684/counsel_hub/routes"
	"github.com/anjiri1684/counsel_hub/storage"
	"github.com/anjiri1684/counsel_hub/websocket"
	"github.com/robfig/cron/v3"
)

func main() {
	if err := logger.Init(!config.IsProduction()); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if config.Config("JWT_SECRET") == "" {
		logger.Log.Fatal("🔥 JWT_SECRET is not set")
	}

	database.ConnectDB()
	if err := database.Migrate(); err != nil {
		logger.Log.Fatalw("🔥 Migration failed", "error", err)
	}
	if err := database.SeedPrices(); err != nil {
		logger.Log.Fatalw("🔥 Failed to seed price bounds", "error", err)
	}
	if err := database.SeedAdmin(); err != nil {
		logger.Log.Errorw("Failed to seed super admin", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	payments.Init()
	if err := storage.Init(ctx); err != nil {
		logger.Log.Fatalw("🔥 Storage misconfigured", "error", err)
	}
	events.Init()
	defer events.Default.Close()
	metrics.Init()
	websocket.Start()

	dispatcher := notifications.NewDispatcher(database.DB, notifications.InitMailer())
	dispatcher.Notify = websocket.Notify

	c := cron.New()
	c.AddFunc("* * * * *", jobs.DispatchNotifications(dispatcher))
	c.AddFunc("*/5 * * * *", jobs.AdvanceEndedSessions)
	c.AddFunc("*/5 * * * *", jobs.SendSessionReminders)
	c.AddFunc("*/15 * * * *", jobs.OpenDisputeWindows)
	c.AddFunc("*/15 * * * *", jobs.FinalizeExpiredDisputeWindows)
	c.AddFunc("*/10 * * * *", jobs.RetryPendingRefunds)
	c.AddFunc("@hourly", jobs.PurgeExpiredOTPs)
	c.AddFunc("30 0 * * *", jobs.GenerateRollingSlots)
	c.Start()
	logger.Log.Info("✅ Cron jobs scheduled successfully.")

	app := routes.NewApp()

	go func() {
		<-ctx.Done()
		logger.Log.Info("Shutting down...")
		<-c.Stop().Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Errorw("shutdown error", "error", err)
		}
	}()

	port := config.Config("PORT")
	logger.Log.Infof("✅ Server is running on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		logger.Log.Fatalw("🔥 Server failed to start", "error", err)
	}
}
