package scheduleRepo

import (
	"context"
	"fmt"
	"time"

	"classbook/database"
	"classbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoScheduleRepo implements Repository using MongoDB.
type MongoScheduleRepo struct {
	coll *mongo.Collection
}

// NewMongoScheduleRepo constructs a new instance of MongoScheduleRepo.
func NewMongoScheduleRepo() *MongoScheduleRepo {
	db := database.MongoClient.Database(database.DatabaseName)
	return &MongoScheduleRepo{coll: db.Collection("schedules")}
}

func (repo *MongoScheduleRepo) Upsert(ctx context.Context, tpl *models.ScheduleTemplate) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tpl.UpdatedAt = time.Now().UTC()
	_, err := repo.coll.ReplaceOne(ctx,
		bson.M{"instructorId": tpl.InstructorID},
		tpl,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert schedule for %s: %w", tpl.InstructorID, err)
	}
	return nil
}

func (repo *MongoScheduleRepo) GetByInstructor(ctx context.Context, instructorID string) (*models.ScheduleTemplate, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var tpl models.ScheduleTemplate
	err := repo.coll.FindOne(ctx, bson.M{"instructorId": instructorID}).Decode(&tpl)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch schedule for %s: %w", instructorID, err)
	}
	return &tpl, nil
}

// SetOverride removes any existing entry for the date, then pushes the new
// one. Two steps keep the update simple; the window between them only ever
// shows the weekly pattern, never a half-written override.
func (repo *MongoScheduleRepo) SetOverride(ctx context.Context, instructorID string, override models.DateOverride) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := repo.removeOverride(ctx, instructorID, override.Date); err != nil {
		return err
	}
	res, err := repo.coll.UpdateOne(ctx,
		bson.M{"instructorId": instructorID},
		bson.M{
			"$push": bson.M{"adjustedAvailability": override},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("set override for %s on %s: %w", instructorID, override.Date, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (repo *MongoScheduleRepo) RemoveOverride(ctx context.Context, instructorID, date string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return repo.removeOverride(ctx, instructorID, date)
}

func (repo *MongoScheduleRepo) removeOverride(ctx context.Context, instructorID, date string) error {
	res, err := repo.coll.UpdateOne(ctx,
		bson.M{"instructorId": instructorID},
		bson.M{"$pull": bson.M{"adjustedAvailability": bson.M{"date": date}}},
	)
	if err != nil {
		return fmt.Errorf("remove override for %s on %s: %w", instructorID, date, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureIndexes creates the unique instructor index (one template each).
func (repo *MongoScheduleRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "instructorId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_instructor"),
	})
	if err != nil {
		return fmt.Errorf("failed to create schedule indexes: %w", err)
	}
	return nil
}
