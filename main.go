// File: classbook/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classbook/config"
	"classbook/cron"
	"classbook/database"
	bookingRepo "classbook/database/repository/booking"
	classRepo "classbook/database/repository/class"
	creditRepo "classbook/database/repository/credit"
	deviceRepo "classbook/database/repository/device"
	scheduleRepo "classbook/database/repository/schedule"
	"classbook/handlers"
	"classbook/middleware"
	"classbook/routes"
	"classbook/services/booking"
	"classbook/services/notification"
	"classbook/services/scheduling"
	"classbook/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.FirebaseInit()
	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	bookings := bookingRepo.NewMongoBookingRepo()
	schedules := scheduleRepo.NewMongoScheduleRepo()
	classes := classRepo.NewMongoClassRepo()
	credits := creditRepo.NewMongoCreditRepo()
	devices := deviceRepo.NewMongoDeviceRepo()

	if err := bookings.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: booking indexes: %v", err)
	}
	if err := schedules.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: schedule indexes: %v", err)
	}
	if err := credits.EnsureIndexes(context.Background()); err != nil {
		logger.Sugar().Fatalf("main: credit indexes: %v", err)
	}

	// services.
	availabilityService := &scheduling.DefaultAvailabilityService{
		Schedules: schedules,
		Bookings:  bookings,
		Classes:   classes,
		Cache:     utils.GetCacheClient(),
		CacheTTL:  utils.AvailabilityCacheTTL,
	}

	notificationService, err := notification.NewDefaultNotificationService(devices)
	if err != nil {
		logger.Sugar().Fatalf("main: notification service: %v", err)
	}

	taskClient := cron.NewTaskClient()
	defer taskClient.Close()

	admissionService := &booking.DefaultAdmissionService{
		Bookings:  bookings,
		Schedules: schedules,
		Classes:   classes,
		Payments:  &booking.StripePayments{Currency: config.AppConfig.StripeCurrency},
		Credits:   credits,
		Cache:     availabilityService,
		Scheduler: taskClient,
		Notifier:  notificationService,
	}

	// Background worker for hold expiry sweeps and session reminders.
	cron.InitWorker(bookings, availabilityService, notificationService)
	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetCacheClient()},
		database.MongoClient,
	)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(cors.Default())

	routes.Register(router, &routes.Handlers{
		Availability: handlers.NewAvailabilityHandler(availabilityService),
		Booking:      handlers.NewBookingHandler(admissionService, bookings),
		Schedule:     handlers.NewScheduleHandler(schedules, availabilityService),
		Credits:      handlers.NewCreditHandler(credits),
		Devices:      handlers.NewDeviceHandler(devices),
		Webhook:      handlers.NewStripeWebhookHandler(admissionService),
	})

	srv := &http.Server{
		Addr:    ":" + config.AppConfig.AppPort,
		Handler: router,
	}

	go func() {
		logger.Sugar().Infof("main: listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server error: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("main: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: forced shutdown: %v", err)
	}
	if err := database.MongoClient.Disconnect(ctx); err != nil {
		logger.Sugar().Errorf("main: mongo disconnect: %v", err)
	}
}
