package scheduling

import (
	"fmt"
	"time"

	"classbook/models"
)

// ErrNoAvailableDay is returned by NextAvailableDay when the forward scan
// exhausts the booking horizon without finding a bookable date.
var ErrNoAvailableDay = fmt.Errorf("no slots available within the booking horizon")

// BlackoutDays scans [today, today+MaxDays) in the instructor's timezone and
// returns the dates on which the availability filter yields no bookable
// slots at all, individual or group. The booking UI greys these out.
//
// bookingsByDate carries the instructor's known bookings keyed by local
// "YYYY-MM-DD" date; dates with no bookings may simply be absent.
func BlackoutDays(
	tpl *models.ScheduleTemplate,
	bookingsByDate map[string][]models.Booking,
	classes map[string]models.Class,
	now time.Time,
) ([]string, error) {
	loc, err := tpl.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tpl.Timezone, err)
	}
	localNow := now.In(loc)
	today := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc)

	var blackout []string
	for offset := 0; offset < tpl.MaxDays; offset++ {
		date := today.AddDate(0, 0, offset).Format(dateLayout)
		bookable, err := dayHasSlots(tpl, date, bookingsByDate[date], classes, now)
		if err != nil {
			return nil, err
		}
		if !bookable {
			blackout = append(blackout, date)
		}
	}
	return blackout, nil
}

// NextAvailableDay scans forward from the date after `from`, stopping at the
// first date with at least one bookable slot. Exhausting the horizon returns
// ErrNoAvailableDay.
func NextAvailableDay(
	tpl *models.ScheduleTemplate,
	bookingsByDate map[string][]models.Booking,
	classes map[string]models.Class,
	from string,
	now time.Time,
) (string, error) {
	loc, err := tpl.Location()
	if err != nil {
		return "", fmt.Errorf("invalid timezone %q: %w", tpl.Timezone, err)
	}
	start, err := time.ParseInLocation(dateLayout, from, loc)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", from, err)
	}
	localNow := now.In(loc)
	horizon := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, tpl.MaxDays)

	for d := start.AddDate(0, 0, 1); d.Before(horizon); d = d.AddDate(0, 0, 1) {
		date := d.Format(dateLayout)
		bookable, err := dayHasSlots(tpl, date, bookingsByDate[date], classes, now)
		if err != nil {
			return "", err
		}
		if bookable {
			return date, nil
		}
	}
	return "", ErrNoAvailableDay
}

func dayHasSlots(
	tpl *models.ScheduleTemplate,
	date string,
	bookings []models.Booking,
	classes map[string]models.Class,
	now time.Time,
) (bool, error) {
	candidates, err := GenerateDaySlots(tpl, date, now)
	if err != nil {
		return false, err
	}
	if len(candidates) == 0 {
		return false, nil
	}
	day := FilterBookable(tpl.InstructorID, candidates, bookings, classes, now)
	return day.HasSlots(), nil
}
