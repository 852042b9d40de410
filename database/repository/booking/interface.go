package bookingRepo

import (
	"context"
	"errors"

	"classbook/models"
)

// Storage-level admission outcomes. The booking service maps these onto its
// user-facing error taxonomy.
var (
	// ErrSlotTaken means the individual occupancy key already holds a live
	// booking (pending-not-expired or confirmed).
	ErrSlotTaken = errors.New("slot already booked")
	// ErrCapacityExceeded means the group seat counter could not admit the
	// requested seats without exceeding class capacity.
	ErrCapacityExceeded = errors.New("group slot capacity exceeded")
	// ErrNotFound means no booking with the given id exists.
	ErrNotFound = errors.New("booking not found")
	// ErrHoldExpired means the pending hold lapsed before the operation.
	ErrHoldExpired = errors.New("booking hold expired")
)

// Repository is the booking store. Reservations are atomic per occupancy
// key: two concurrent Reserve calls for the same key can never both succeed
// beyond what capacity allows, regardless of interleaving.
type Repository interface {
	// ReserveIndividual atomically claims a 1:1 occupancy key by inserting a
	// pending booking. A live conflicting booking yields ErrSlotTaken; a
	// stale expired hold on the key is reclaimed and the insert retried once.
	ReserveIndividual(ctx context.Context, b *models.Booking) error

	// ReserveGroup atomically claims seats on a group occupancy key, bounded
	// by capacity. Overflow yields ErrCapacityExceeded after expired holds on
	// the key have been reclaimed.
	ReserveGroup(ctx context.Context, b *models.Booking, capacity int) error

	// Confirm promotes a pending booking, clearing its expiry and attaching
	// the payment reference. Confirming an already-confirmed booking is a
	// no-op. A lapsed hold yields ErrHoldExpired.
	Confirm(ctx context.Context, id, paymentRef string) (*models.Booking, error)

	// Release deletes a pending booking and refunds its group seats.
	// Releasing a booking that no longer exists is a no-op.
	Release(ctx context.Context, id string) error

	// ReleaseExpired releases the booking only if it is still pending and its
	// expiry has passed. Safe to call concurrently with reads and reserves.
	ReleaseExpired(ctx context.Context, id string) error

	// MarkCompleted transitions a confirmed booking after the session ends.
	MarkCompleted(ctx context.Context, id string) error

	// GetByID fetches one booking.
	GetByID(ctx context.Context, id string) (*models.Booking, error)

	// ByInstructorAndDate returns the live bookings for an instructor on a
	// local date. As a documented side effect, expired pending rows found by
	// the read are released before the result is returned.
	ByInstructorAndDate(ctx context.Context, instructorID, date string) ([]models.Booking, error)

	// ByInstructorDateRange returns the live bookings for an instructor with
	// fromDate <= date < toDate ("YYYY-MM-DD"), in one query. Expired pending
	// rows found by the read are released, as with ByInstructorAndDate.
	ByInstructorDateRange(ctx context.Context, instructorID, fromDate, toDate string) ([]models.Booking, error)

	// ByStudent lists a student's bookings, newest first.
	ByStudent(ctx context.Context, studentID string) ([]models.Booking, error)
}
