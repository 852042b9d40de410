package models

import (
	"time"
)

// SlotWindow is one raw availability window as configured by the instructor,
// expressed as wall-clock times in the template's timezone.
type SlotWindow struct {
	StartTime string `bson:"startTime" json:"startTime" binding:"required"` // "HH:mm"
	EndTime   string `bson:"endTime" json:"endTime" binding:"required"`     // "HH:mm"
	GroupSlot bool   `bson:"groupSlot" json:"groupSlot"`
	ClassID   string `bson:"classId,omitempty" json:"classId,omitempty"` // set when GroupSlot is true
}

// DayPattern holds the recurring windows for one weekday ("Monday".."Sunday").
type DayPattern struct {
	Day   string       `bson:"day" json:"day"`
	Slots []SlotWindow `bson:"slots" json:"slots"`
}

// DateOverride replaces the weekly pattern entirely for one calendar date.
// An override with an empty slot list closes the day.
type DateOverride struct {
	Date  string       `bson:"date" json:"date"` // "YYYY-MM-DD"
	Slots []SlotWindow `bson:"slots" json:"slots"`
}

// ScheduleTemplate is an instructor's availability configuration: the weekly
// recurring pattern plus date-specific overrides. One template per instructor.
type ScheduleTemplate struct {
	InstructorID         string         `bson:"instructorId" json:"instructorId"`
	GeneralAvailability  []DayPattern   `bson:"generalAvailability" json:"generalAvailability"`
	AdjustedAvailability []DateOverride `bson:"adjustedAvailability,omitempty" json:"adjustedAvailability,omitempty"`
	MinDays              int            `bson:"minDays" json:"minDays"` // minimum lead time in hours, despite the name
	MaxDays              int            `bson:"maxDays" json:"maxDays"` // booking horizon in days
	AppointmentDuration  int            `bson:"appointmentDuration" json:"appointmentDuration"` // minutes per bookable unit
	Timezone             string         `bson:"timezone" json:"timezone"`                       // IANA zone, e.g. "America/Toronto"
	UpdatedAt            time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// Location resolves the template's IANA timezone.
func (t *ScheduleTemplate) Location() (*time.Location, error) {
	return time.LoadLocation(t.Timezone)
}

// OverrideFor returns the date override for the given "YYYY-MM-DD" date, if any.
func (t *ScheduleTemplate) OverrideFor(date string) (DateOverride, bool) {
	for _, o := range t.AdjustedAvailability {
		if o.Date == date {
			return o, true
		}
	}
	return DateOverride{}, false
}

// PatternFor returns the recurring windows for a weekday name ("Monday"...).
func (t *ScheduleTemplate) PatternFor(weekday string) []SlotWindow {
	for _, p := range t.GeneralAvailability {
		if p.Day == weekday {
			return p.Slots
		}
	}
	return nil
}
