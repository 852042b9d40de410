package scheduleRepo

import (
	"context"
	"errors"

	"classbook/models"
)

// ErrNotFound means the instructor has no schedule template yet.
var ErrNotFound = errors.New("schedule template not found")

// Repository stores instructor schedule templates. Templates are read-mostly
// and hold no live booking state, so reads need no coordination with the
// booking store.
type Repository interface {
	// Upsert replaces the instructor's template (one template per instructor).
	Upsert(ctx context.Context, tpl *models.ScheduleTemplate) error
	// GetByInstructor fetches the instructor's template.
	GetByInstructor(ctx context.Context, instructorID string) (*models.ScheduleTemplate, error)
	// SetOverride adds or replaces the adjusted-availability entry for one
	// date. An empty slot list closes the day.
	SetOverride(ctx context.Context, instructorID string, override models.DateOverride) error
	// RemoveOverride deletes the adjusted-availability entry for one date,
	// restoring the weekly pattern.
	RemoveOverride(ctx context.Context, instructorID, date string) error
}
