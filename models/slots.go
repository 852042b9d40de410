package models

// CandidateSlot is one fixed-duration window produced by the slot generator.
// It is ephemeral and never persisted. ClassID set means the window belongs
// to a group class; empty means a 1:1 slot.
type CandidateSlot struct {
	Date      string `json:"date"`      // "YYYY-MM-DD", instructor timezone
	StartTime string `json:"startTime"` // "HH:mm"
	EndTime   string `json:"endTime"`
	ClassID   string `json:"classId,omitempty"`
}

// IsGroup reports whether the slot is scoped to a group class.
func (s CandidateSlot) IsGroup() bool { return s.ClassID != "" }

// AvailableSlot is a candidate slot that survived the availability filter,
// annotated with what a booker needs to pick it.
type AvailableSlot struct {
	Date           string  `json:"date"`
	StartTime      string  `json:"startTime"`
	EndTime        string  `json:"endTime"`
	ClassID        string  `json:"classId,omitempty"`
	RemainingSeats int     `json:"remainingSeats"` // 1 for an open individual slot
	PricePerSeat   float64 `json:"pricePerSeat,omitempty"`
}

// DayAvailability is the bookable view of one date, split the way the
// booking UI consumes it.
type DayAvailability struct {
	Date       string          `json:"date"`
	Individual []AvailableSlot `json:"individual"`
	Group      []AvailableSlot `json:"group"`
}

// HasSlots reports whether anything on the day is bookable.
func (d DayAvailability) HasSlots() bool {
	return len(d.Individual) > 0 || len(d.Group) > 0
}
