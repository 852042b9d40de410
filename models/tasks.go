package models

// HoldExpirePayload is the queue payload for the backup hold-expiry sweep.
// The instructor/date pair lets the handler invalidate the right cache entry
// without a second lookup when the booking is already gone.
type HoldExpirePayload struct {
	BookingID    string `json:"bookingId"`
	InstructorID string `json:"instructorId"`
	Date         string `json:"date"`
}

// ReminderPayload is the queue payload for a pre-session reminder push.
type ReminderPayload struct {
	BookingID string `json:"bookingId"`
}
