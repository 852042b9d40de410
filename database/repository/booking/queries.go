package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"classbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ByInstructorAndDate returns the live bookings for an instructor on a local
// date. Expired pending rows discovered by the read are released before the
// result is returned: soft expiry rides on the queries every availability
// computation already makes, so no scheduled job is required for
// correctness. Racing reclaims are fine because the underlying delete is
// conditional.
func (repo *MongoBookingRepo) ByInstructorAndDate(ctx context.Context, instructorID, date string) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return repo.liveBookings(ctx, bson.M{
		"instructorId": instructorID,
		"date":         date,
	})
}

// ByInstructorDateRange returns the live bookings across a half-open local
// date range in one query. Zero-padded "YYYY-MM-DD" compares
// lexicographically, so a plain string range filter is correct.
func (repo *MongoBookingRepo) ByInstructorDateRange(ctx context.Context, instructorID, fromDate, toDate string) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return repo.liveBookings(ctx, bson.M{
		"instructorId": instructorID,
		"date":         bson.M{"$gte": fromDate, "$lt": toDate},
	})
}

func (repo *MongoBookingRepo) liveBookings(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	cursor, err := repo.bookingColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var all []models.Booking
	if err := cursor.All(ctx, &all); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}

	now := time.Now().UTC()
	live := all[:0]
	for i := range all {
		if all[i].Expired(now) {
			// Best effort: a failed reclaim just means the row waits for the
			// next read or the background sweep.
			_ = repo.ReleaseExpired(ctx, all[i].ID)
			continue
		}
		live = append(live, all[i])
	}
	return live, nil
}

// ByStudent lists a student's bookings, newest first.
func (repo *MongoBookingRepo) ByStudent(ctx context.Context, studentID string) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := repo.bookingColl.Find(ctx, bson.M{"studentId": studentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query bookings for student %s: %w", studentID, err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}
	return bookings, nil
}
