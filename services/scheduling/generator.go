package scheduling

import (
	"fmt"
	"sort"
	"time"

	"classbook/models"
)

const dateLayout = "2006-01-02"

// GenerateDaySlots expands an instructor's schedule template into the ordered
// list of fixed-length candidate slots for one date.
//
// Source selection follows override semantics: when the template carries an
// adjusted-availability entry for the exact date, that entry is used
// exclusively, even if its slot list is empty (the instructor closed the
// day). Otherwise the weekly pattern for the date's weekday applies.
//
// Each raw window is partitioned into consecutive AppointmentDuration-minute
// slots; a trailing remainder shorter than the full duration is dropped, not
// an error. Slots starting before now+MinDays hours, or on a date past the
// now+MaxDays horizon, are filtered out. All wall-clock arithmetic happens in
// the template's timezone.
func GenerateDaySlots(tpl *models.ScheduleTemplate, date string, now time.Time) ([]models.CandidateSlot, error) {
	if tpl.AppointmentDuration <= 0 {
		return nil, fmt.Errorf("schedule template for %s has invalid appointment duration %d", tpl.InstructorID, tpl.AppointmentDuration)
	}
	loc, err := tpl.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tpl.Timezone, err)
	}
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	localNow := now.In(loc)
	horizon := localNow.AddDate(0, 0, tpl.MaxDays)
	if day.After(horizon) {
		return nil, nil
	}
	leadCutoff := now.Add(time.Duration(tpl.MinDays) * time.Hour)

	var windows []models.SlotWindow
	if override, ok := tpl.OverrideFor(date); ok {
		windows = override.Slots
	} else {
		windows = tpl.PatternFor(day.Weekday().String())
	}

	var slots []models.CandidateSlot
	for _, w := range windows {
		startMin, err := parseClock(w.StartTime)
		if err != nil {
			return nil, fmt.Errorf("window start %q: %w", w.StartTime, err)
		}
		endMin, err := parseClock(w.EndTime)
		if err != nil {
			return nil, fmt.Errorf("window end %q: %w", w.EndTime, err)
		}

		for cur := startMin; cur+tpl.AppointmentDuration <= endMin; cur += tpl.AppointmentDuration {
			startAt := day.Add(time.Duration(cur) * time.Minute)
			if startAt.Before(leadCutoff) {
				continue
			}
			slot := models.CandidateSlot{
				Date:      date,
				StartTime: formatClock(cur),
				EndTime:   formatClock(cur + tpl.AppointmentDuration),
			}
			if w.GroupSlot {
				slot.ClassID = w.ClassID
			}
			slots = append(slots, slot)
		}
	}

	// Zero-padded "HH:mm" compares lexicographically in chronological order.
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime < slots[j].StartTime })
	return slots, nil
}

// parseClock converts "HH:mm" into minutes from midnight.
func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return 0, fmt.Errorf("malformed clock time: %w", err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return h*60 + m, nil
}

// formatClock renders minutes from midnight as zero-padded "HH:mm".
func formatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}
