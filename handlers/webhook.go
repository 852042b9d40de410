package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"classbook/config"
	"classbook/services/booking"
	"classbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// StripeWebhookHandler routes payment events back into the admission
// controller. Stripe retries on non-2xx, so transient failures return 500 and
// permanent ones return 200 with a logged error.
type StripeWebhookHandler struct {
	Admission booking.AdmissionService
}

func NewStripeWebhookHandler(admission booking.AdmissionService) *StripeWebhookHandler {
	return &StripeWebhookHandler{Admission: admission}
}

// Handle verifies the event signature and dispatches it.
// POST /api/webhooks/stripe
func (h *StripeWebhookHandler) Handle(c *gin.Context) {
	logger := utils.GetLogger()

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "unreadable payload", err.Error())
		return
	}
	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), config.AppConfig.StripeWebhookSecret)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid webhook signature", err.Error())
		return
	}

	var intent stripe.PaymentIntent
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "malformed payment intent", err.Error())
			return
		}
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	bookingID := intent.Metadata["bookingId"]
	if bookingID == "" {
		logger.Warn("payment event without bookingId metadata", zap.String("intentId", intent.ID))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx := c.Request.Context()
	if event.Type == "payment_intent.succeeded" {
		err = h.Admission.HandlePaymentSucceeded(ctx, bookingID, intent.ID)
	} else {
		err = h.Admission.HandlePaymentFailed(ctx, bookingID)
	}
	if err != nil {
		// Lapsed holds are terminal; retrying the event cannot fix them.
		if respondTerminalWebhookError(c, err, bookingID, intent.ID) {
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to process payment event", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

func respondTerminalWebhookError(c *gin.Context, err error, bookingID, intentID string) bool {
	var be *booking.BookingError
	if !errors.As(err, &be) {
		return false
	}
	utils.GetLogger().Error("payment event could not be applied",
		zap.String("bookingId", bookingID),
		zap.String("intentId", intentID),
		zap.String("code", be.Code))
	c.JSON(http.StatusOK, gin.H{"status": "unapplicable", "code": be.Code})
	return true
}
