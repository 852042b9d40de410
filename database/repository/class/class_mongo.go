package classRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classbook/database"
	"classbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound means no class with the given id exists.
var ErrNotFound = errors.New("class not found")

// Repository is the read-only class config collaborator: it supplies group
// capacity and pricing to the availability filter and admission controller.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.Class, error)
	ByInstructor(ctx context.Context, instructorID string) (map[string]models.Class, error)
}

// MongoClassRepo implements Repository using MongoDB.
type MongoClassRepo struct {
	coll *mongo.Collection
}

// NewMongoClassRepo constructs a new instance of MongoClassRepo.
func NewMongoClassRepo() *MongoClassRepo {
	db := database.MongoClient.Database(database.DatabaseName)
	return &MongoClassRepo{coll: db.Collection("classes")}
}

func (repo *MongoClassRepo) GetByID(ctx context.Context, id string) (*models.Class, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var cls models.Class
	err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&cls)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch class %s: %w", id, err)
	}
	return &cls, nil
}

// ByInstructor returns the instructor's classes keyed by class id, the shape
// the availability filter consumes.
func (repo *MongoClassRepo) ByInstructor(ctx context.Context, instructorID string) (map[string]models.Class, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := repo.coll.Find(ctx, bson.M{"instructorId": instructorID})
	if err != nil {
		return nil, fmt.Errorf("query classes for %s: %w", instructorID, err)
	}
	defer cursor.Close(ctx)

	classes := make(map[string]models.Class)
	for cursor.Next(ctx) {
		var cls models.Class
		if err := cursor.Decode(&cls); err != nil {
			return nil, fmt.Errorf("decode class: %w", err)
		}
		classes[cls.ID] = cls
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate classes: %w", err)
	}
	return classes, nil
}
