package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	conversationserrors "rentals/internal/conversations/errors"
	"rentals/pkg/config"
	mongotx "rentals/pkg/db/mongo"
	"rentals/pkg/model"
)

const (
	ConversationsCollectionName = "Conversations"
	MessagesCollectionName      = "Messages"
)

type ConversationRepository interface {
	// Create inserts a conversation. Returns ErrDuplicateConversation when one
	// already exists for the same pair key and property.
	Create(ctx context.Context, conversation *model.Conversation) error
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	FindByPair(ctx context.Context, pairKey, propertyID string) (*model.Conversation, error)
	FindByParticipant(ctx context.Context, userID string) ([]*model.Conversation, error)
	// NextMessageSeq increments the conversation's message counter, bumps
	// updated_at and returns the new value.
	NextMessageSeq(ctx context.Context, id string, at time.Time) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoConversationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoConversationRepository(cfg *config.Config) ConversationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoConversationRepository{
		cfg:        cfg,
		collection: db.Collection(ConversationsCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoConversationRepository) Create(ctx context.Context, conversation *model.Conversation) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, conversation); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return conversationserrors.ErrDuplicateConversation
		}
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (r *mongoConversationRepository) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoConversationRepository) FindByPair(ctx context.Context, pairKey, propertyID string) (*model.Conversation, error) {
	return r.findOne(ctx, bson.M{"pair_key": pairKey, "property_id": propertyID})
}

func (r *mongoConversationRepository) findOne(ctx context.Context, filter bson.M) (*model.Conversation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var conversation model.Conversation
	err := r.collection.FindOne(ctx, filter).Decode(&conversation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, conversationserrors.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	return &conversation, nil
}

func (r *mongoConversationRepository) FindByParticipant(ctx context.Context, userID string) ([]*model.Conversation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"participant_ids": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find conversations: %w", err)
	}
	defer cursor.Close(ctx)

	var conversations []*model.Conversation
	if err = cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return conversations, nil
}

func (r *mongoConversationRepository) NextMessageSeq(ctx context.Context, id string, at time.Time) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"message_seq": int64(1)},
		"$set": bson.M{"updated_at": at},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"message_seq": 1})

	var result struct {
		MessageSeq int64 `bson:"message_seq"`
	}
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, conversationserrors.ErrConversationNotFound
		}
		return 0, fmt.Errorf("failed to advance message sequence: %w", err)
	}
	return result.MessageSeq, nil
}

func (r *mongoConversationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
