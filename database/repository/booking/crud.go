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

// Confirm promotes a pending booking to confirmed, clearing its expiry and
// attaching the payment reference. The conditional update only matches a
// live pending row; a miss is then disambiguated so that re-confirming an
// already-confirmed booking stays a no-op.
func (repo *MongoBookingRepo) Confirm(ctx context.Context, id, paymentRef string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	filter := bson.M{
		"id":     id,
		"status": models.StatusPending,
		"expiry": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set":   bson.M{"status": models.StatusConfirmed, "paymentRef": paymentRef},
		"$unset": bson.M{"expiry": ""},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var b models.Booking
	err := repo.bookingColl.FindOneAndUpdate(ctx, filter, update, opts).Decode(&b)
	if err == nil {
		return &b, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("confirm booking %s: %w", id, err)
	}

	existing, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch existing.Status {
	case models.StatusConfirmed, models.StatusCompleted:
		return existing, nil
	case models.StatusPending:
		return nil, ErrHoldExpired
	default:
		return nil, ErrNotFound
	}
}

// Release deletes a pending booking and refunds its group seats. A booking
// that was already released (or never existed) is a no-op.
func (repo *MongoBookingRepo) Release(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := repo.releaseMatching(ctx, bson.M{"id": id, "status": models.StatusPending})
	return err
}

// ReleaseExpired releases the booking only if it is still a lapsed pending
// hold. Used by the background sweep; racing a lazy-expiry read is safe.
func (repo *MongoBookingRepo) ReleaseExpired(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := repo.releaseMatching(ctx, bson.M{
		"id":     id,
		"status": models.StatusPending,
		"expiry": bson.M{"$lt": time.Now().UTC()},
	})
	return err
}

// MarkCompleted transitions a confirmed booking once the session is over.
func (repo *MongoBookingRepo) MarkCompleted(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := repo.bookingColl.UpdateOne(ctx,
		bson.M{"id": id, "status": models.StatusConfirmed},
		bson.M{"$set": bson.M{"status": models.StatusCompleted}},
	)
	if err != nil {
		return fmt.Errorf("mark booking %s completed: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
