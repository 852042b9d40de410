package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"classbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the booking store relies on. The partial
// unique index on occupancyKey is load-bearing: it is the storage-level
// guarantee that two individual reservations for the same slot cannot both
// commit. Group bookings share their occupancy key by design and are
// excluded from the uniqueness constraint; their serialization happens in
// the slot_seats counter instead.
func (repo *MongoBookingRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys: bson.D{{Key: "occupancyKey", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"mode": models.ModeIndividual}).
				SetName("unique_individual_occupancy"),
		},
		// Primary availability query pattern.
		{
			Keys:    bson.D{{Key: "instructorId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("instructor_date_idx"),
		},
		{
			Keys:    bson.D{{Key: "studentId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("student_created_idx"),
		},
		// Lets the reclaim scan walk holds on one key cheaply.
		{
			Keys:    bson.D{{Key: "occupancyKey", Value: 1}, {Key: "status", Value: 1}, {Key: "expiry", Value: 1}},
			Options: options.Index().SetName("occupancy_status_expiry_idx"),
		},
	}

	_, err := repo.bookingColl.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}
