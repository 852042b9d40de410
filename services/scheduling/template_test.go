package scheduling

import (
	"testing"

	"classbook/models"
)

func TestValidateTemplate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.ScheduleTemplate)
		wantErr bool
	}{
		{"valid", func(*models.ScheduleTemplate) {}, false},
		{"zero duration", func(tpl *models.ScheduleTemplate) { tpl.AppointmentDuration = 0 }, true},
		{"zero horizon", func(tpl *models.ScheduleTemplate) { tpl.MaxDays = 0 }, true},
		{"negative lead", func(tpl *models.ScheduleTemplate) { tpl.MinDays = -1 }, true},
		{"bad timezone", func(tpl *models.ScheduleTemplate) { tpl.Timezone = "Nowhere/Here" }, true},
		{"unknown weekday", func(tpl *models.ScheduleTemplate) {
			tpl.GeneralAvailability[0].Day = "Funday"
		}, true},
		{"inverted window", func(tpl *models.ScheduleTemplate) {
			tpl.GeneralAvailability[0].Slots = []models.SlotWindow{{StartTime: "12:00", EndTime: "09:00"}}
		}, true},
		{"group window without class", func(tpl *models.ScheduleTemplate) {
			tpl.GeneralAvailability[0].Slots = []models.SlotWindow{{StartTime: "09:00", EndTime: "10:00", GroupSlot: true}}
		}, true},
		{"bad override date", func(tpl *models.ScheduleTemplate) {
			tpl.AdjustedAvailability = []models.DateOverride{{Date: "next tuesday"}}
		}, true},
		{"duplicate override", func(tpl *models.ScheduleTemplate) {
			tpl.AdjustedAvailability = []models.DateOverride{{Date: testMonday}, {Date: testMonday}}
		}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tpl := utcTemplate()
			tc.mutate(tpl)
			err := ValidateTemplate(tpl)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateTemplate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
