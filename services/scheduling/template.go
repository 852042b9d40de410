package scheduling

import (
	"fmt"
	"time"

	"classbook/models"
)

var weekdays = map[string]bool{
	"Monday": true, "Tuesday": true, "Wednesday": true,
	"Thursday": true, "Friday": true, "Saturday": true, "Sunday": true,
}

// ValidateTemplate checks a schedule template before it is persisted, so the
// generator never has to cope with a malformed stored template.
func ValidateTemplate(tpl *models.ScheduleTemplate) error {
	if tpl.InstructorID == "" {
		return fmt.Errorf("instructorId is required")
	}
	if tpl.AppointmentDuration <= 0 {
		return fmt.Errorf("appointmentDuration must be positive, got %d", tpl.AppointmentDuration)
	}
	if tpl.MaxDays <= 0 {
		return fmt.Errorf("maxDays must be positive, got %d", tpl.MaxDays)
	}
	if tpl.MinDays < 0 {
		return fmt.Errorf("minDays cannot be negative, got %d", tpl.MinDays)
	}
	if _, err := tpl.Location(); err != nil {
		return fmt.Errorf("unknown timezone %q", tpl.Timezone)
	}

	seen := map[string]bool{}
	for _, p := range tpl.GeneralAvailability {
		if !weekdays[p.Day] {
			return fmt.Errorf("unknown weekday %q", p.Day)
		}
		if seen[p.Day] {
			return fmt.Errorf("duplicate weekday %q", p.Day)
		}
		seen[p.Day] = true
		if err := validateWindows(p.Slots); err != nil {
			return fmt.Errorf("%s: %w", p.Day, err)
		}
	}

	dates := map[string]bool{}
	for _, o := range tpl.AdjustedAvailability {
		if _, err := time.Parse(dateLayout, o.Date); err != nil {
			return fmt.Errorf("override date %q is not YYYY-MM-DD", o.Date)
		}
		if dates[o.Date] {
			return fmt.Errorf("duplicate override for %s", o.Date)
		}
		dates[o.Date] = true
		if err := validateWindows(o.Slots); err != nil {
			return fmt.Errorf("override %s: %w", o.Date, err)
		}
	}
	return nil
}

func validateWindows(windows []models.SlotWindow) error {
	for _, w := range windows {
		start, err := parseClock(w.StartTime)
		if err != nil {
			return fmt.Errorf("window start %q: %w", w.StartTime, err)
		}
		end, err := parseClock(w.EndTime)
		if err != nil {
			return fmt.Errorf("window end %q: %w", w.EndTime, err)
		}
		if end <= start {
			return fmt.Errorf("window %s-%s ends before it starts", w.StartTime, w.EndTime)
		}
		if w.GroupSlot && w.ClassID == "" {
			return fmt.Errorf("group window %s-%s is missing a classId", w.StartTime, w.EndTime)
		}
	}
	return nil
}
