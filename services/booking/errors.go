package booking

import "fmt"

// BookingError is a coded, user-facing admission error. Codes are stable;
// the HTTP layer maps them onto status codes.
type BookingError struct {
	Code    string
	Message string
}

func (e *BookingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any BookingError with the same code, so errors.Is works against
// the sentinels below regardless of message.
func (e *BookingError) Is(target error) bool {
	t, ok := target.(*BookingError)
	return ok && t.Code == e.Code
}

var (
	// ErrSlotUnavailable: the individual slot is already taken. Terminal for
	// this slot; the user picks another.
	ErrSlotUnavailable = &BookingError{Code: "slotUnavailable", Message: "this time slot has just been booked"}
	// ErrSlotFull: the group slot has no seats left for the requested size.
	ErrSlotFull = &BookingError{Code: "slotFull", Message: "this group slot is at capacity"}
	// ErrExpiredHold: the pending hold lapsed before the operation landed.
	ErrExpiredHold = &BookingError{Code: "expiredHold", Message: "the reservation hold has expired"}
	// ErrUpstream: a collaborator (payment, credits) failed; the hold was
	// released and the user should reselect a slot.
	ErrUpstream = &BookingError{Code: "upstreamFailure", Message: "a payment service error occurred, please try again"}
	// ErrBookingNotFound: the referenced booking does not exist (possibly
	// already released).
	ErrBookingNotFound = &BookingError{Code: "bookingNotFound", Message: "booking not found"}
)

// NewValidationError reports a malformed reservation request. Raised before
// any store access.
func NewValidationError(format string, args ...interface{}) error {
	return &BookingError{Code: "validationError", Message: fmt.Sprintf(format, args...)}
}

// ErrValidation is the sentinel for errors.Is checks against validation
// failures.
var ErrValidation = &BookingError{Code: "validationError", Message: "invalid booking request"}
