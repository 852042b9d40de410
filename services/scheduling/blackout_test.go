package scheduling

import (
	"errors"
	"testing"
	"time"

	"classbook/models"
)

// A template only open Mondays, horizon of 7 days from testNow (a Tuesday),
// so 2026-09-14 is the single open date in the window.
func mondayOnlyTemplate() *models.ScheduleTemplate {
	tpl := utcTemplate()
	tpl.MinDays = 0
	tpl.MaxDays = 7
	return tpl
}

func TestBlackoutDaysMarksClosedAndFullDays(t *testing.T) {
	tpl := mondayOnlyTemplate()
	_, classes := filterFixtures()

	days, err := BlackoutDays(tpl, nil, classes, testNow)
	if err != nil {
		t.Fatalf("BlackoutDays: %v", err)
	}

	// Every day except the Monday should be blacked out.
	if len(days) != 6 {
		t.Fatalf("got %d blackout days, want 6: %v", len(days), days)
	}
	for _, d := range days {
		if d == testMonday {
			t.Fatalf("open Monday %s reported as blackout", testMonday)
		}
	}
}

func TestBlackoutDaysFullyBookedDayIncluded(t *testing.T) {
	tpl := mondayOnlyTemplate()
	_, classes := filterFixtures()

	// Occupy every individual slot and fill the class.
	bookings := []models.Booking{
		liveBooking("09:00", models.ModeIndividual, "", 1),
		liveBooking("10:00", models.ModeIndividual, "", 1),
		liveBooking("11:00", models.ModeIndividual, "", 1),
		liveBooking("14:00", models.ModeGroup, "yoga-101", 5),
	}
	byDate := map[string][]models.Booking{testMonday: bookings}

	days, err := BlackoutDays(tpl, byDate, classes, testNow)
	if err != nil {
		t.Fatalf("BlackoutDays: %v", err)
	}
	found := false
	for _, d := range days {
		if d == testMonday {
			found = true
		}
	}
	if !found {
		t.Fatalf("fully booked %s missing from blackout days %v", testMonday, days)
	}
}

func TestNextAvailableDaySkipsToOpenDate(t *testing.T) {
	tpl := mondayOnlyTemplate()
	_, classes := filterFixtures()

	from := testNow.Format("2006-01-02") // the Tuesday before
	next, err := NextAvailableDay(tpl, nil, classes, from, testNow)
	if err != nil {
		t.Fatalf("NextAvailableDay: %v", err)
	}
	if next != testMonday {
		t.Errorf("next available = %s, want %s", next, testMonday)
	}
}

func TestNextAvailableDayExhaustedHorizon(t *testing.T) {
	tpl := mondayOnlyTemplate()
	tpl.MaxDays = 5 // horizon ends before the next Monday
	_, classes := filterFixtures()

	from := testNow.Format("2006-01-02")
	_, err := NextAvailableDay(tpl, nil, classes, from, testNow)
	if !errors.Is(err, ErrNoAvailableDay) {
		t.Fatalf("err = %v, want ErrNoAvailableDay", err)
	}
}

func TestNextAvailableDayScansPastFullDay(t *testing.T) {
	tpl := mondayOnlyTemplate()
	tpl.MaxDays = 15 // two Mondays in the window
	_, classes := filterFixtures()

	full := []models.Booking{
		liveBooking("09:00", models.ModeIndividual, "", 1),
		liveBooking("10:00", models.ModeIndividual, "", 1),
		liveBooking("11:00", models.ModeIndividual, "", 1),
		liveBooking("14:00", models.ModeGroup, "yoga-101", 5),
	}
	byDate := map[string][]models.Booking{testMonday: full}

	from := testNow.Format("2006-01-02")
	next, err := NextAvailableDay(tpl, byDate, classes, from, testNow)
	if err != nil {
		t.Fatalf("NextAvailableDay: %v", err)
	}
	wantNext := time.Date(2026, 9, 21, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	if next != wantNext {
		t.Errorf("next available = %s, want the following Monday %s", next, wantNext)
	}
}
