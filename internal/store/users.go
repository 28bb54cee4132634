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

// UserStore reads and writes the role-keyed user collections of one tenant.
type UserStore struct {
	db *mongo.Database
}

func (s *UserStore) collection(role model.Role) *mongo.Collection {
	return s.db.Collection(role.Collection())
}

// Insert creates a user in the collection matching its role. The password
// must already be hashed. Duplicate email within the role is rejected.
func (s *UserStore) Insert(ctx context.Context, u *model.User) (*model.User, error) {
	coll := s.collection(u.Role)

	err := coll.FindOne(ctx, bson.M{"email": u.Email}).Err()
	if err == nil {
		return nil, model.ErrEmailTaken
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("checking email uniqueness: %w", err)
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.LastSeen = now
	u.Status = model.StatusOffline

	res, err := coll.InsertOne(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = id
	}
	return u, nil
}

// FindByEmail looks up a user by email within one role collection.
func (s *UserStore) FindByEmail(ctx context.Context, role model.Role, email string) (*model.User, error) {
	var u model.User
	err := s.collection(role).FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding user by email: %w", err)
	}
	u.Role = role
	return &u, nil
}

// FindByID searches every role collection for a user id.
func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	for _, role := range model.Roles() {
		var u model.User
		err := s.collection(role).FindOne(ctx, bson.M{"_id": id}).Decode(&u)
		if err == nil {
			u.Role = role
			return &u, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("finding user by id: %w", err)
		}
	}
	return nil, model.ErrUserNotFound
}

// List returns users across all role collections with skip/limit applied
// per collection, matching the directory endpoint's paging behavior.
func (s *UserStore) List(ctx context.Context, skip, limit int64) ([]model.User, error) {
	users := []model.User{}
	for _, role := range model.Roles() {
		cursor, err := s.collection(role).Find(ctx, bson.M{}, options.Find().SetSkip(skip).SetLimit(limit))
		if err != nil {
			return nil, fmt.Errorf("listing %s users: %w", role, err)
		}
		var batch []model.User
		if err := cursor.All(ctx, &batch); err != nil {
			return nil, fmt.Errorf("decoding %s users: %w", role, err)
		}
		for i := range batch {
			batch[i].Role = role
		}
		users = append(users, batch...)
	}
	return users, nil
}

// SetPresence writes a user's durable presence status. lastSeen is always
// updated alongside the status so peers re-querying presence see a
// consistent pair.
func (s *UserStore) SetPresence(ctx context.Context, role model.Role, id primitive.ObjectID, status string, lastSeen time.Time) error {
	_, err := s.collection(role).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "lastSeen": lastSeen}},
	)
	if err != nil {
		return fmt.Errorf("updating presence: %w", err)
	}
	return nil
}
