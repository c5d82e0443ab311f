package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentals/pkg/config"
	"rentals/pkg/model"
)

const CollectionName = "Properties"

var ErrNotFound = errors.New("property not found")

// PropertyRepository is the read-only view of the listing catalog.
type PropertyRepository interface {
	FindByID(ctx context.Context, id string) (*model.Property, error)
}

// propertyDocument mirrors the catalog's storage shape, where prices are stored as
// floating point major units.
type propertyDocument struct {
	ID            string  `bson:"id"`
	HostID        string  `bson:"host_id"`
	PricePerNight float64 `bson:"price_per_night"`
	MaxGuests     int     `bson:"max_guests"`
}

type mongoPropertyRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPropertyRepository(cfg *config.Config) PropertyRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPropertyRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoPropertyRepository) FindByID(ctx context.Context, id string) (*model.Property, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.FindOne().SetProjection(bson.M{
		"id":              1,
		"host_id":         1,
		"price_per_night": 1,
		"max_guests":      1,
	})

	var doc propertyDocument
	err := r.collection.FindOne(ctx, bson.M{"id": id}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find property: %w", err)
	}

	return &model.Property{
		ID:            doc.ID,
		HostID:        doc.HostID,
		PricePerNight: model.MoneyFromFloat(doc.PricePerNight),
		MaxGuests:     doc.MaxGuests,
	}, nil
}

// MemoryPropertyRepository keeps properties in a map. Used by tests and local runs.
type MemoryPropertyRepository struct {
	mu         sync.RWMutex
	properties map[string]model.Property
}

func NewMemoryPropertyRepository(properties ...model.Property) *MemoryPropertyRepository {
	r := &MemoryPropertyRepository{properties: make(map[string]model.Property)}
	for _, p := range properties {
		r.properties[p.ID] = p
	}
	return r
}

func (r *MemoryPropertyRepository) Put(p model.Property) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[p.ID] = p
}

func (r *MemoryPropertyRepository) FindByID(ctx context.Context, id string) (*model.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.properties[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}
