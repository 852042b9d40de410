package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReserveIndividual claims a 1:1 occupancy key by inserting the pending
// booking. The unique partial index on occupancyKey is what serializes
// concurrent requests: the second insert fails with a duplicate-key error.
// A duplicate caused by a stale expired hold is reclaimed and the insert
// retried once; a second conflict means the slot is genuinely taken.
func (repo *MongoBookingRepo) ReserveIndividual(ctx context.Context, b *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for attempt := 0; attempt < 2; attempt++ {
		_, err := repo.bookingColl.InsertOne(ctx, b)
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert booking failed: %w", err)
		}
		freed, rerr := repo.reclaimExpired(ctx, b.OccupancyKey)
		if rerr != nil {
			return fmt.Errorf("reclaiming expired hold on %s: %w", b.OccupancyKey, rerr)
		}
		if freed == 0 {
			return ErrSlotTaken
		}
	}
	return ErrSlotTaken
}

// ReserveGroup claims seats on a group occupancy key. The booking insert and
// the capacity-checked seat increment run in one Mongo transaction; the
// conditional update matches only while seats+n stays within capacity, so a
// MatchedCount of zero aborts the transaction and reports a full slot.
func (repo *MongoBookingRepo) ReserveGroup(ctx context.Context, b *models.Booking, capacity int) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := repo.ensureSeatCounter(ctx, b.OccupancyKey, capacity); err != nil {
		return err
	}

	for attempt := 0; attempt < 2; attempt++ {
		err := repo.reserveGroupTxn(ctx, b, capacity)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrCapacityExceeded) {
			return err
		}
		freed, rerr := repo.reclaimExpired(ctx, b.OccupancyKey)
		if rerr != nil {
			return fmt.Errorf("reclaiming expired holds on %s: %w", b.OccupancyKey, rerr)
		}
		if freed == 0 {
			return ErrCapacityExceeded
		}
	}
	return ErrCapacityExceeded
}

// ensureSeatCounter creates the per-key seat counter on first use. The
// upsert is idempotent; concurrent creators collapse into one document.
func (repo *MongoBookingRepo) ensureSeatCounter(ctx context.Context, key string, capacity int) error {
	_, err := repo.seatColl.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$setOnInsert": bson.M{"seats": 0, "capacity": capacity}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("ensure seat counter for %s: %w", key, err)
	}
	return nil
}

func (repo *MongoBookingRepo) reserveGroupTxn(ctx context.Context, b *models.Booking, capacity int) error {
	client := repo.bookingColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		if _, err := repo.bookingColl.InsertOne(sc, b); err != nil {
			return fmt.Errorf("insert booking failed: %w", err)
		}

		filter := bson.M{
			"_id":   b.OccupancyKey,
			"seats": bson.M{"$lte": capacity - b.GroupSize},
		}
		res, err := repo.seatColl.UpdateOne(sc, filter, bson.M{"$inc": bson.M{"seats": b.GroupSize}})
		if err != nil {
			return fmt.Errorf("seat increment failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrCapacityExceeded
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		if errors.Is(err, ErrCapacityExceeded) {
			return ErrCapacityExceeded
		}
		return fmt.Errorf("group reservation transaction failed: %w", err)
	}
	return nil
}

// reclaimExpired releases every expired pending hold sitting on an occupancy
// key and reports how many were freed. Each release is a conditional delete,
// so a concurrent sweep or read reclaiming the same row is a harmless no-op.
func (repo *MongoBookingRepo) reclaimExpired(ctx context.Context, key string) (int, error) {
	now := time.Now().UTC()
	cursor, err := repo.bookingColl.Find(ctx, bson.M{
		"occupancyKey": key,
		"status":       models.StatusPending,
		"expiry":       bson.M{"$lt": now},
	})
	if err != nil {
		return 0, fmt.Errorf("query expired holds: %w", err)
	}
	defer cursor.Close(ctx)

	var stale []models.Booking
	if err := cursor.All(ctx, &stale); err != nil {
		return 0, fmt.Errorf("decode expired holds: %w", err)
	}

	freed := 0
	for i := range stale {
		released, err := repo.releaseMatching(ctx, bson.M{
			"id":     stale[i].ID,
			"status": models.StatusPending,
			"expiry": bson.M{"$lt": now},
		})
		if err != nil {
			return freed, err
		}
		if released {
			freed++
		}
	}
	return freed, nil
}

// releaseMatching deletes at most one booking matching the filter and, for a
// group booking, refunds its seats. Only the caller whose delete actually
// matched performs the refund, which keeps racing releases exactly-once.
func (repo *MongoBookingRepo) releaseMatching(ctx context.Context, filter bson.M) (bool, error) {
	var b models.Booking
	err := repo.bookingColl.FindOneAndDelete(ctx, filter).Decode(&b)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("release delete failed: %w", err)
	}

	if b.Mode == models.ModeGroup && b.GroupSize > 0 {
		_, err := repo.seatColl.UpdateOne(ctx,
			bson.M{"_id": b.OccupancyKey, "seats": bson.M{"$gte": b.GroupSize}},
			bson.M{"$inc": bson.M{"seats": -b.GroupSize}},
		)
		if err != nil {
			return true, fmt.Errorf("seat refund for %s failed: %w", b.ID, err)
		}
	}
	return true, nil
}
