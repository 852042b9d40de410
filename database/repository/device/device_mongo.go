package deviceRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classbook/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoToken means the account has no registered push target.
var ErrNoToken = errors.New("no device token registered")

// Repository maps accounts (students and instructors alike) to their current
// FCM device token. One token per account; re-registering replaces it.
type Repository interface {
	SaveToken(ctx context.Context, accountID, token string) error
	GetToken(ctx context.Context, accountID string) (string, error)
}

// MongoDeviceRepo implements Repository using MongoDB.
type MongoDeviceRepo struct {
	coll *mongo.Collection
}

// NewMongoDeviceRepo constructs a new instance of MongoDeviceRepo.
func NewMongoDeviceRepo() *MongoDeviceRepo {
	db := database.MongoClient.Database(database.DatabaseName)
	return &MongoDeviceRepo{coll: db.Collection("device_tokens")}
}

func (repo *MongoDeviceRepo) SaveToken(ctx context.Context, accountID, token string) error {
	if token == "" {
		return fmt.Errorf("device token cannot be empty")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := repo.coll.UpdateOne(ctx,
		bson.M{"accountId": accountID},
		bson.M{"$set": bson.M{"token": token, "updatedAt": time.Now()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save device token: %w", err)
	}
	return nil
}

func (repo *MongoDeviceRepo) GetToken(ctx context.Context, accountID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc struct {
		Token string `bson:"token"`
	}
	err := repo.coll.FindOne(ctx, bson.M{"accountId": accountID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read device token: %w", err)
	}
	return doc.Token, nil
}
