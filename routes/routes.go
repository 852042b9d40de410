package routes

import (
	"classbook/handlers"
	"classbook/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router needs.
type Handlers struct {
	Availability *handlers.AvailabilityHandler
	Booking      *handlers.BookingHandler
	Schedule     *handlers.ScheduleHandler
	Credits      *handlers.CreditHandler
	Devices      *handlers.DeviceHandler
	Webhook      *handlers.StripeWebhookHandler
}

// Register wires all endpoints onto the router.
func Register(r *gin.Engine, h *Handlers) {
	r.GET("/health", handlers.Health)

	// Stripe calls this; it authenticates with its signature, not a JWT.
	r.POST("/api/webhooks/stripe", h.Webhook.Handle)

	api := r.Group("/api", middleware.JWTAuthMiddleware())
	{
		availability := api.Group("/availability")
		{
			availability.GET("/:instructorID/day", h.Availability.GetDayAvailability)
			availability.GET("/:instructorID/blackouts", h.Availability.GetBlackoutDays)
			availability.GET("/:instructorID/next", h.Availability.GetNextAvailableDay)
		}

		bookings := api.Group("/bookings")
		{
			bookings.POST("", h.Booking.Reserve)
			bookings.GET("", h.Booking.ListMyBookings)
			bookings.GET("/:bookingID", h.Booking.GetBooking)
			bookings.POST("/:bookingID/confirm", h.Booking.Confirm)
			bookings.POST("/:bookingID/complete", middleware.RequireRole("instructor"), h.Booking.Complete)
			bookings.DELETE("/:bookingID", h.Booking.Cancel)
		}

		schedule := api.Group("/schedule")
		{
			schedule.GET("/:instructorID", h.Schedule.GetSchedule)

			manage := schedule.Group("", middleware.RequireRole("instructor"))
			{
				manage.PUT("", h.Schedule.UpsertSchedule)
				manage.PUT("/overrides", h.Schedule.SetOverride)
				manage.DELETE("/overrides/:date", h.Schedule.RemoveOverride)
			}
		}

		credits := api.Group("/credits")
		{
			credits.GET("/:classID", h.Credits.GetBalance)
			credits.POST("/grant", middleware.RequireRole("instructor"), h.Credits.GrantCredits)
		}

		api.PUT("/devices/token", h.Devices.RegisterToken)
	}
}
