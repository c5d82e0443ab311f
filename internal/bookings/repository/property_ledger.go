package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentals/pkg/config"
	mongotx "rentals/pkg/db/mongo"
)

const LedgerCollectionName = "Property_ledgers"

// PropertyLedgerRepository manages the per-property document that booking writes
// for one property contend on.
type PropertyLedgerRepository interface {
	// Ensure creates the ledger document if missing. Runs outside any transaction
	// so that the first booking of a property does not race on the insert.
	Ensure(ctx context.Context, propertyID string) error
	// Touch increments the ledger version. Inside a transaction it takes the
	// document's write lock until commit.
	Touch(ctx context.Context, propertyID string) error
}

type mongoPropertyLedgerRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPropertyLedgerRepository(cfg *config.Config) PropertyLedgerRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPropertyLedgerRepository{
		cfg:        cfg,
		collection: db.Collection(LedgerCollectionName),
	}
}

func (r *mongoPropertyLedgerRepository) Ensure(ctx context.Context, propertyID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$setOnInsert": bson.M{
			"version":    int64(0),
			"updated_at": time.Now().UTC(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": propertyID}, update, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to ensure property ledger: %w", err)
	}
	return nil
}

func (r *mongoPropertyLedgerRepository) Touch(ctx context.Context, propertyID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"version": int64(1)},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": propertyID}, update)
	if err != nil {
		return fmt.Errorf("failed to touch property ledger: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("property ledger %s missing", propertyID)
	}
	return nil
}
