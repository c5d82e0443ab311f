package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	conversationserrors "rentals/internal/conversations/errors"
	"rentals/pkg/config"
	mongotx "rentals/pkg/db/mongo"
	"rentals/pkg/model"
)

type MessageRepository interface {
	Create(ctx context.Context, message *model.Message) error
	FindByID(ctx context.Context, id string) (*model.Message, error)
	// FindByConversation returns every message ordered by (created_at, seq).
	FindByConversation(ctx context.Context, conversationID string) ([]*model.Message, error)
	// LatestByConversation returns the newest message of each listed conversation
	// that has one.
	LatestByConversation(ctx context.Context, conversationIDs []string) (map[string]*model.Message, error)
	// MarkRead sets is_read on an unread message. Reports whether it changed it.
	MarkRead(ctx context.Context, id string) (bool, error)
	// MarkConversationRead marks every unread message not sent by readerID as read
	// and returns how many changed.
	MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error)
}

type mongoMessageRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoMessageRepository(cfg *config.Config) MessageRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoMessageRepository{
		cfg:        cfg,
		collection: db.Collection(MessagesCollectionName),
	}
}

var messageOrder = bson.D{{Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}

func (r *mongoMessageRepository) Create(ctx context.Context, message *model.Message) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, message); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *mongoMessageRepository) FindByID(ctx context.Context, id string) (*model.Message, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var message model.Message
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&message)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, conversationserrors.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return &message, nil
}

func (r *mongoMessageRepository) FindByConversation(ctx context.Context, conversationID string) ([]*model.Message, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"conversation_id": conversationID}, options.Find().SetSort(messageOrder))
	if err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := []*model.Message{}
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return messages, nil
}

func (r *mongoMessageRepository) LatestByConversation(ctx context.Context, conversationIDs []string) (map[string]*model.Message, error) {
	latest := make(map[string]*model.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return latest, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"conversation_id": bson.M{"$in": conversationIDs}}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$conversation_id",
			"message": bson.M{"$first": "$$ROOT"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate latest messages: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			ConversationID string        `bson:"_id"`
			Message        model.Message `bson:"message"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode latest message: %w", err)
		}
		msg := row.Message
		latest[row.ConversationID] = &msg
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to read latest messages: %w", err)
	}
	return latest, nil
}

func (r *mongoMessageRepository) MarkRead(ctx context.Context, id string) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark message read: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *mongoMessageRepository) MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateMany(ctx,
		bson.M{
			"conversation_id": conversationID,
			"sender_id":       bson.M{"$ne": readerID},
			"is_read":         false,
		},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark conversation read: %w", err)
	}
	return result.ModifiedCount, nil
}
