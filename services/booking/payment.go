package booking

import (
	"context"
	"fmt"

	"classbook/models"
	"classbook/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"
)

// StripePayments creates one PaymentIntent per hold, sized to the booking's
// AmountDue. The booking id travels in the intent metadata so the webhook can
// route success/failure events back to the admission controller.
type StripePayments struct {
	Currency string // ISO code, e.g. "usd"
}

func (p *StripePayments) CreateIntent(ctx context.Context, b *models.Booking) (string, error) {
	currency := p.Currency
	if currency == "" {
		currency = "usd"
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toCents(b.AmountDue)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("bookingId", b.ID)
	params.AddMetadata("instructorId", b.InstructorID)

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}
	utils.GetLogger().Info("payment intent created",
		zap.String("bookingId", b.ID), zap.String("intentId", intent.ID))
	return intent.ClientSecret, nil
}

// toCents converts a decimal amount to Stripe's integer minor units.
func toCents(amount float64) int64 {
	return int64(amount*100 + 0.5)
}
