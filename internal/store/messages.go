package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campuslink/campuslink/internal/model"
)

const messagesCollection = "messages"

// MessageStore persists chat messages for one tenant.
type MessageStore struct {
	coll *mongo.Collection
}

// Insert persists a message, assigning the server timestamp and id. The
// returned message is the durable record that fan-out serializes.
func (s *MessageStore) Insert(ctx context.Context, m *model.Message) (*model.Message, error) {
	m.Timestamp = time.Now().UTC()
	m.IsRead = false

	res, err := s.coll.InsertOne(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		m.ID = id
	}
	return m, nil
}

// FindByID fetches a message by its id.
func (s *MessageStore) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Message, error) {
	var m model.Message
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding message: %w", err)
	}
	return &m, nil
}

// ListBetween returns the direct conversation between two users, newest
// first.
func (s *MessageStore) ListBetween(ctx context.Context, a, b primitive.ObjectID, skip, limit int64) ([]model.Message, error) {
	query := bson.M{"$or": bson.A{
		bson.M{"senderId": a, "receiverId": b},
		bson.M{"senderId": b, "receiverId": a},
	}}
	return s.list(ctx, query, skip, limit)
}

// ListGroup returns a group's messages, newest first.
func (s *MessageStore) ListGroup(ctx context.Context, groupID primitive.ObjectID, skip, limit int64) ([]model.Message, error) {
	return s.list(ctx, bson.M{"groupId": groupID}, skip, limit)
}

// ListForUser returns every message a user sent or received, newest first.
func (s *MessageStore) ListForUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]model.Message, error) {
	query := bson.M{"$or": bson.A{
		bson.M{"senderId": userID},
		bson.M{"receiverId": userID},
	}}
	return s.list(ctx, query, skip, limit)
}

func (s *MessageStore) list(ctx context.Context, query bson.M, skip, limit int64) ([]model.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := []model.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decoding messages: %w", err)
	}
	return messages, nil
}
