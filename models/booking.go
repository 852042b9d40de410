package models

import (
	"strings"
	"time"
)

// Booking statuses. A pending booking holds its slot until Expiry passes;
// confirmed and completed bookings occupy the slot permanently. There is no
// "released" status stored: released bookings are deleted. Cancelled is
// reserved for a cancel-after-confirm flow (refund-backed); no current write
// path assigns it, but occupancy checks already treat it as vacated.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Booking modes.
const (
	ModeIndividual = "individual"
	ModeGroup      = "group"
)

// HoldTTL is how long a pending booking keeps its slot reserved.
const HoldTTL = 5 * time.Minute

// Booking is one reservation of a slot. Times are stored twice: as absolute
// UTC instants, and as the instructor-local date/start strings used for
// occupancy queries and display.
type Booking struct {
	ID           string     `bson:"id" json:"id"`
	StudentID    string     `bson:"studentId" json:"studentId"`
	InstructorID string     `bson:"instructorId" json:"instructorId"`
	ClassID      string     `bson:"classId" json:"classId"`
	Date         string     `bson:"date" json:"date"`           // "YYYY-MM-DD", instructor timezone
	StartTime    string     `bson:"startTime" json:"startTime"` // "HH:mm", instructor timezone
	EndTime      string     `bson:"endTime" json:"endTime"`
	StartUTC     time.Time  `bson:"startUtc" json:"startUtc"`
	EndUTC       time.Time  `bson:"endUtc" json:"endUtc"`
	Status       string     `bson:"status" json:"status"`
	Mode         string     `bson:"mode" json:"mode"`
	GroupSize    int        `bson:"groupSize" json:"groupSize"` // seats consumed, 1 for individual
	Expiry       *time.Time `bson:"expiry,omitempty" json:"expiry,omitempty"`
	OccupancyKey string     `bson:"occupancyKey" json:"-"`
	PaymentRef   string     `bson:"paymentRef,omitempty" json:"paymentRef,omitempty"`
	AmountDue    float64    `bson:"amountDue" json:"amountDue"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"`
}

// Expired reports whether a pending hold has lapsed. Non-pending bookings
// never expire.
func (b *Booking) Expired(now time.Time) bool {
	return b.Status == StatusPending && b.Expiry != nil && b.Expiry.Before(now)
}

// Occupies reports whether the booking counts toward slot occupancy at the
// given instant. Expired pending rows are treated as absent everywhere.
func (b *Booking) Occupies(now time.Time) bool {
	switch b.Status {
	case StatusCancelled:
		return false
	case StatusPending:
		return !b.Expired(now)
	default:
		return true
	}
}

// individualMarker tags individual occupancy keys so a 1:1 booking and a
// group class at the same wall-clock time never contend.
const individualMarker = "1:1"

// BuildOccupancyKey identifies the contended resource for a reservation:
// (instructor, date, start) for individual bookings, plus the class id for
// group bookings.
func BuildOccupancyKey(instructorID, date, startTime, classID string) string {
	marker := individualMarker
	if classID != "" {
		marker = classID
	}
	return strings.Join([]string{instructorID, date, startTime, marker}, "|")
}
