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

const groupsCollection = "groups"

// GroupStore persists group membership for one tenant. The message router
// only reads from it; membership changes come through the group endpoints.
type GroupStore struct {
	coll *mongo.Collection
}

// Insert creates a group. The creator becomes both an admin and a member.
func (s *GroupStore) Insert(ctx context.Context, g *model.Group, createdBy primitive.ObjectID) (*model.Group, error) {
	g.CreatedAt = time.Now().UTC()
	g.CreatedBy = createdBy
	g.Admins = []primitive.ObjectID{createdBy}
	g.Members = append([]primitive.ObjectID{createdBy}, g.Members...)

	res, err := s.coll.InsertOne(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("inserting group: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		g.ID = id
	}
	return g, nil
}

// FindByID fetches a group by id without any membership scoping.
func (s *GroupStore) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Group, error) {
	var g model.Group
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding group: %w", err)
	}
	return &g, nil
}

// FindForMember fetches a group only if the user belongs to it.
func (s *GroupStore) FindForMember(ctx context.Context, id, memberID primitive.ObjectID) (*model.Group, error) {
	var g model.Group
	err := s.coll.FindOne(ctx, bson.M{"_id": id, "members": memberID}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding group: %w", err)
	}
	return &g, nil
}

// ListForMember returns the groups a user belongs to.
func (s *GroupStore) ListForMember(ctx context.Context, memberID primitive.ObjectID, skip, limit int64) ([]model.Group, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"members": memberID},
		options.Find().SetSkip(skip).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer cursor.Close(ctx)

	groups := []model.Group{}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("decoding groups: %w", err)
	}
	return groups, nil
}

// AddMember adds memberID to the group, provided adminID administers it.
// $addToSet keeps repeated additions idempotent.
func (s *GroupStore) AddMember(ctx context.Context, groupID, adminID, memberID primitive.ObjectID) error {
	err := s.coll.FindOne(ctx, bson.M{"_id": groupID, "admins": adminID}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.ErrNotGroupAdmin
	}
	if err != nil {
		return fmt.Errorf("checking group admin: %w", err)
	}

	if _, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": groupID},
		bson.M{"$addToSet": bson.M{"members": memberID}},
	); err != nil {
		return fmt.Errorf("adding group member: %w", err)
	}
	return nil
}
