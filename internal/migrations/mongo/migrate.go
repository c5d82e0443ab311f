package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingsrepo "rentals/internal/bookings/repository"
	conversationsrepo "rentals/internal/conversations/repository"
	"rentals/internal/migrations/mongo/validators"
	"rentals/pkg/logger"
)

var (
	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "property_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "check_in", Value: 1},
		}},
		{Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "check_in", Value: 1}}},
		{Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "status", Value: 1}, {Key: "check_in", Value: 1}}},
	}

	ConversationsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "pair_key", Value: 1},
				{Key: "property_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_pair_property"),
		},
		{Keys: bson.D{{Key: "participant_ids", Value: 1}, {Key: "updated_at", Value: -1}}},
	}

	MessagesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "created_at", Value: 1},
			{Key: "seq", Value: 1},
		}},
		{
			Keys: bson.D{
				{Key: "conversation_id", Value: 1},
				{Key: "seq", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_conversation_seq"),
		},
		{Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "is_read", Value: 1},
			{Key: "sender_id", Value: 1},
		}},
	}
)

type CollectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections lists every collection this service owns. Properties belongs to
// the catalog and is only read.
func Collections() map[string]CollectionDef {
	return map[string]CollectionDef{
		bookingsrepo.CollectionName: {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		bookingsrepo.LedgerCollectionName: {
			Validator: validators.PropertyLedgerValidator,
		},
		conversationsrepo.ConversationsCollectionName: {
			Indexes:   ConversationsIndexes,
			Validator: validators.ConversationValidator,
		},
		conversationsrepo.MessagesCollectionName: {
			Indexes:   MessagesIndexes,
			Validator: validators.MessageValidator,
		},
	}
}

// RunMigration creates or updates collections, validators and indexes. It is
// safe to run repeatedly.
func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for name, def := range Collections() {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if len(def.Indexes) == 0 {
			continue
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied successfully", "database", dbName)
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	names, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", names)
	return nil
}
