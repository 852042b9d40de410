package booking

import (
	"context"
	"time"

	"classbook/models"
)

// ReserveRequest is everything the admission controller needs to claim a
// slot. Actor ids arrive explicitly; the engine reads nothing from ambient
// request state.
type ReserveRequest struct {
	StudentID    string `json:"studentId"`
	InstructorID string `json:"instructorId"`
	ClassID      string `json:"classId"`
	Date         string `json:"date"`      // "YYYY-MM-DD", instructor timezone
	StartTime    string `json:"startTime"` // "HH:mm"
	Mode         string `json:"mode"`      // "individual" or "group"
	GroupSize    int    `json:"groupSize"` // seats requested; defaults to 1
	UseCredits   bool   `json:"useCredits"`
}

// ReserveResult is the outcome of a successful admission: the pending
// booking plus whatever the client needs to complete payment. ClientSecret
// is empty when the booking was instantly confirmed via package credits.
type ReserveResult struct {
	Booking      *models.Booking `json:"booking"`
	ClientSecret string          `json:"clientSecret,omitempty"`
}

// AdmissionService is the booking state machine: Requested → Pending →
// {Confirmed | Released}. Released bookings cease to exist.
type AdmissionService interface {
	// Reserve re-validates the slot against a fresh store read and creates a
	// pending booking with a 5-minute hold, atomically per occupancy key.
	Reserve(ctx context.Context, req ReserveRequest) (*ReserveResult, error)
	// Confirm promotes a pending booking after payment capture. Idempotent.
	Confirm(ctx context.Context, bookingID, paymentRef string) (*models.Booking, error)
	// Cancel releases a pending booking before payment. Idempotent.
	Cancel(ctx context.Context, bookingID string) error
	// HandlePaymentSucceeded and HandlePaymentFailed consume the payment
	// collaborator's events.
	HandlePaymentSucceeded(ctx context.Context, bookingID, paymentRef string) error
	HandlePaymentFailed(ctx context.Context, bookingID string) error
}

// PaymentIntenter starts a payment for a pending booking and returns the
// client secret the frontend needs to capture it.
type PaymentIntenter interface {
	CreateIntent(ctx context.Context, b *models.Booking) (clientSecret string, err error)
}

// CreditLedger is the package-credit collaborator. Deduct must be atomic per
// student; Refund compensates a deduction whose booking could not stand.
type CreditLedger interface {
	Deduct(ctx context.Context, studentID, classID string, seats int) error
	Refund(ctx context.Context, studentID, classID string, seats int) error
}

// CacheInvalidator drops cached availability for one instructor/date after a
// reservation or release changes the answer. The scheduling service satisfies
// this.
type CacheInvalidator interface {
	InvalidateDay(ctx context.Context, instructorID, date string)
}

// Notifier delivers booking lifecycle pushes. Calls are fire-and-forget; a
// failed push never fails the booking.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b *models.Booking)
}

// HoldScheduler enqueues delayed booking tasks. The expiry sweep is a backup:
// lazy expiry on reads keeps the engine correct without it, the sweep just
// stops abandoned holds from lingering until the next read. Session reminders
// fire shortly before a confirmed booking starts.
type HoldScheduler interface {
	ScheduleHoldExpiry(ctx context.Context, b *models.Booking, at time.Time) error
	ScheduleSessionReminder(ctx context.Context, b *models.Booking, at time.Time) error
}
