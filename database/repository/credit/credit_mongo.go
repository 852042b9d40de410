package creditRepo

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

// ErrInsufficientCredits means the student's balance cannot cover the
// requested deduction.
var ErrInsufficientCredits = errors.New("insufficient credits")

// Repository is the package-credit ledger. Deduct is atomic per
// (student, class): two concurrent deductions can never drive a balance
// negative.
type Repository interface {
	Grant(ctx context.Context, studentID, classID string, credits int) error
	Deduct(ctx context.Context, studentID, classID string, seats int) error
	Refund(ctx context.Context, studentID, classID string, seats int) error
	Balance(ctx context.Context, studentID, classID string) (int, error)
}

// MongoCreditRepo implements Repository using MongoDB. One document per
// (student, class) pair holds the live balance.
type MongoCreditRepo struct {
	coll *mongo.Collection
}

// NewMongoCreditRepo constructs a new instance of MongoCreditRepo.
func NewMongoCreditRepo() *MongoCreditRepo {
	db := database.MongoClient.Database(database.DatabaseName)
	return &MongoCreditRepo{coll: db.Collection("credits")}
}

// EnsureIndexes creates the unique (student, class) index.
func (repo *MongoCreditRepo) EnsureIndexes(ctx context.Context) error {
	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "classId", Value: 1}},
		Options: options.Index().
			SetName("unique_student_class").
			SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create credit indexes: %w", err)
	}
	return nil
}

// Grant adds purchased credits, creating the ledger row on first purchase.
func (repo *MongoCreditRepo) Grant(ctx context.Context, studentID, classID string, credits int) error {
	if credits <= 0 {
		return fmt.Errorf("grant amount must be positive, got %d", credits)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := repo.coll.UpdateOne(ctx,
		bson.M{"studentId": studentID, "classId": classID},
		bson.M{
			"$inc": bson.M{"balance": credits},
			"$set": bson.M{"updatedAt": time.Now()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("grant credits: %w", err)
	}
	return nil
}

// Deduct spends seats credits if and only if the balance covers them. The
// balance guard in the filter makes the check-and-decrement a single atomic
// document update.
func (repo *MongoCreditRepo) Deduct(ctx context.Context, studentID, classID string, seats int) error {
	if seats <= 0 {
		return fmt.Errorf("deduct amount must be positive, got %d", seats)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := repo.coll.UpdateOne(ctx,
		bson.M{"studentId": studentID, "classId": classID, "balance": bson.M{"$gte": seats}},
		bson.M{
			"$inc": bson.M{"balance": -seats},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("deduct credits: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrInsufficientCredits
	}
	return nil
}

// Refund returns seats credits after a booking the deduction paid for could
// not stand.
func (repo *MongoCreditRepo) Refund(ctx context.Context, studentID, classID string, seats int) error {
	if seats <= 0 {
		return fmt.Errorf("refund amount must be positive, got %d", seats)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := repo.coll.UpdateOne(ctx,
		bson.M{"studentId": studentID, "classId": classID},
		bson.M{
			"$inc": bson.M{"balance": seats},
			"$set": bson.M{"updatedAt": time.Now()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("refund credits: %w", err)
	}
	return nil
}

// Balance reads the current credit balance; a missing ledger row is zero.
func (repo *MongoCreditRepo) Balance(ctx context.Context, studentID, classID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc struct {
		Balance int `bson:"balance"`
	}
	err := repo.coll.FindOne(ctx, bson.M{"studentId": studentID, "classId": classID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read credit balance: %w", err)
	}
	return doc.Balance, nil
}
