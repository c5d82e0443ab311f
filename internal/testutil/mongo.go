// Package testutil holds shared test helpers: a migrated MongoDB per integration test
// and an in-memory event publisher.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoMigration "rentals/internal/migrations/mongo"
	"rentals/pkg/client"
	"rentals/pkg/config"
	"rentals/pkg/logger"
)

// EnvMongoTestURI must point at a replica set; transactions need one.
const EnvMongoTestURI = "MONGO_TEST_URI"

const connectionTimeout = 10 * time.Second

// MongoConfig returns a config bound to a fresh, migrated database. The test is
// skipped when EnvMongoTestURI is unset and the database is dropped on cleanup.
func MongoConfig(t *testing.T) *config.Config {
	t.Helper()

	uri := os.Getenv(EnvMongoTestURI)
	if uri == "" {
		t.Skipf("%s not set, skipping MongoDB integration test", EnvMongoTestURI)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	log := logger.Discard()
	dbName := fmt.Sprintf("rentals_test_%s", uuid.NewString()[:8])
	if err := mongoMigration.RunMigration(ctx, mc, dbName, log); err != nil {
		t.Fatalf("failed to migrate %s: %v", dbName, err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
		defer cancel()
		if err := mc.Database(dbName).Drop(ctx); err != nil {
			t.Logf("warning: failed to drop %s: %v", dbName, err)
		}
		if err := mc.Disconnect(ctx); err != nil {
			t.Logf("warning: failed to disconnect from MongoDB: %v", err)
		}
	})

	return &config.Config{
		MongoURI:          uri,
		MongoDatabaseName: dbName,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		Log:               log,
		Client:            &client.Client{Mongo: mc},
	}
}

// Insert writes raw documents, for collections this service only reads.
func Insert(t *testing.T, cfg *config.Config, collection string, docs ...any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(collection).InsertMany(ctx, docs); err != nil {
		t.Fatalf("failed to seed %s: %v", collection, err)
	}
}
