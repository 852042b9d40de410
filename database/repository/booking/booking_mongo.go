package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"classbook/database"
	"classbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoBookingRepo implements Repository using MongoDB. Bookings live in the
// bookings collection; group seat usage is tracked in a slot_seats counter
// collection keyed by occupancy key, updated with capacity-checked
// conditional writes so admission never races past capacity.
type MongoBookingRepo struct {
	bookingColl *mongo.Collection
	seatColl    *mongo.Collection
}

// NewMongoBookingRepo constructs a new instance of MongoBookingRepo.
func NewMongoBookingRepo() *MongoBookingRepo {
	db := database.MongoClient.Database(database.DatabaseName)
	return &MongoBookingRepo{
		bookingColl: db.Collection("bookings"),
		seatColl:    db.Collection("slot_seats"),
	}
}

// GetByID fetches one booking by its id.
func (repo *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var b models.Booking
	if err := repo.bookingColl.FindOne(ctx, bson.M{"id": id}).Decode(&b); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching booking %s: %w", id, err)
	}
	return &b, nil
}
