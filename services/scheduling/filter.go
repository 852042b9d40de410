package scheduling

import (
	"sort"
	"time"

	"classbook/models"
)

// FilterBookable reconciles generated candidate slots against the bookings
// currently known for the instructor and date, and routes the survivors into
// the individual and group lists of a DayAvailability.
//
// Occupancy is keyed by (instructor, date, startTime, class-or-individual),
// so an individual booking never blocks a group slot at the same time and
// vice versa. Expired pending bookings never count. This filter is a display
// layer: the authoritative check happens again inside the booking store at
// reservation time, so a stale bookings snapshot can at worst offer a slot
// that admission will then reject.
func FilterBookable(
	instructorID string,
	candidates []models.CandidateSlot,
	bookings []models.Booking,
	classes map[string]models.Class,
	now time.Time,
) models.DayAvailability {
	occupied := make(map[string]int, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		if !b.Occupies(now) {
			continue
		}
		key := b.OccupancyKey
		if key == "" {
			classID := ""
			if b.Mode == models.ModeGroup {
				classID = b.ClassID
			}
			key = models.BuildOccupancyKey(b.InstructorID, b.Date, b.StartTime, classID)
		}
		seats := b.GroupSize
		if seats <= 0 {
			seats = 1
		}
		occupied[key] += seats
	}

	var out models.DayAvailability
	for _, c := range candidates {
		if out.Date == "" {
			out.Date = c.Date
		}

		if !c.IsGroup() {
			key := models.BuildOccupancyKey(instructorID, c.Date, c.StartTime, "")
			if occupied[key] > 0 {
				continue
			}
			out.Individual = append(out.Individual, models.AvailableSlot{
				Date:           c.Date,
				StartTime:      c.StartTime,
				EndTime:        c.EndTime,
				RemainingSeats: 1,
			})
			continue
		}

		cls, ok := classes[c.ClassID]
		if !ok || cls.GroupSize <= 0 {
			// Group slot without a resolvable class config is not offerable.
			continue
		}
		key := models.BuildOccupancyKey(instructorID, c.Date, c.StartTime, c.ClassID)
		remaining := cls.GroupSize - occupied[key]
		if remaining <= 0 {
			continue
		}
		out.Group = append(out.Group, models.AvailableSlot{
			Date:           c.Date,
			StartTime:      c.StartTime,
			EndTime:        c.EndTime,
			ClassID:        c.ClassID,
			RemainingSeats: remaining,
			PricePerSeat:   cls.GroupPrice,
		})
	}

	sort.Slice(out.Individual, func(i, j int) bool { return out.Individual[i].StartTime < out.Individual[j].StartTime })
	sort.Slice(out.Group, func(i, j int) bool { return out.Group[i].StartTime < out.Group[j].StartTime })
	return out
}
