package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campuslink/campuslink/internal/model"
)

const collegesCollection = "colleges"

// Collections provisioned in a tenant database on approval.
var tenantCollections = []string{
	model.RoleStudent.Collection(),
	model.RoleAlumni.Collection(),
	model.RoleAdmin.Collection(),
	messagesCollection,
	groupsCollection,
	"userchats",
}

// TenantStore manages the college registry in the management database and
// resolves tenant identifiers into partition handles.
type TenantStore struct {
	client   *mongo.Client
	colleges *mongo.Collection
	log      zerolog.Logger
}

// NewTenantStore builds a TenantStore on top of the management database.
func NewTenantStore(client *mongo.Client, logger zerolog.Logger) *TenantStore {
	return &TenantStore{
		client:   client,
		colleges: client.Database(ManagementDatabase).Collection(collegesCollection),
		log:      logger.With().Str("component", "tenants").Logger(),
	}
}

// Create registers a new college as pending. The password must already be
// hashed. Duplicate collegeId or collegeName is rejected.
func (s *TenantStore) Create(ctx context.Context, c *model.College) error {
	if err := s.ensureUnique(ctx, "collegeId", c.CollegeID); err != nil {
		return err
	}
	if err := s.ensureUnique(ctx, "collegeName", c.CollegeName); err != nil {
		return err
	}

	c.DatabaseName = fmt.Sprintf("%s_campuslink", c.CollegeID)
	c.Status = model.CollegeStatusPending
	c.CreatedAt = time.Now().UTC()

	if _, err := s.colleges.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("inserting college: %w", err)
	}
	s.log.Info().Str("college", c.CollegeID).Msg("college registration submitted")
	return nil
}

func (s *TenantStore) ensureUnique(ctx context.Context, field, value string) error {
	err := s.colleges.FindOne(ctx, bson.M{field: value}).Err()
	if err == nil {
		return model.ErrCollegeExists
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("checking %s uniqueness: %w", field, err)
}

// FindByID returns the college record for a public identifier.
func (s *TenantStore) FindByID(ctx context.Context, collegeID string) (*model.College, error) {
	var c model.College
	err := s.colleges.FindOne(ctx, bson.M{"collegeId": collegeID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding college %s: %w", collegeID, err)
	}
	return &c, nil
}

// List returns colleges filtered by status and/or a case-insensitive name
// search.
func (s *TenantStore) List(ctx context.Context, status, search string, skip, limit int64) ([]model.College, error) {
	query := bson.M{}
	if status != "" {
		query["status"] = status
	}
	if search != "" {
		query["collegeName"] = bson.M{"$regex": search, "$options": "i"}
	}

	cursor, err := s.colleges.Find(ctx, query, options.Find().SetSkip(skip).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("listing colleges: %w", err)
	}
	defer cursor.Close(ctx)

	colleges := []model.College{}
	if err := cursor.All(ctx, &colleges); err != nil {
		return nil, fmt.Errorf("decoding colleges: %w", err)
	}
	return colleges, nil
}

// Approve transitions a pending college to approved and provisions its
// database: the role-keyed user collections, messages, groups, and the
// indexes the chat queries rely on. Returns true if the college was already
// approved. Rejected colleges cannot be approved.
func (s *TenantStore) Approve(ctx context.Context, collegeID string) (bool, error) {
	c, err := s.FindByID(ctx, collegeID)
	if err != nil {
		return false, err
	}
	switch c.Status {
	case model.CollegeStatusApproved:
		return true, nil
	case model.CollegeStatusRejected:
		return false, errors.New("college has been rejected and cannot be approved")
	}

	if _, err := s.colleges.UpdateOne(ctx,
		bson.M{"collegeId": collegeID},
		bson.M{"$set": bson.M{"status": model.CollegeStatusApproved}},
	); err != nil {
		return false, fmt.Errorf("approving college: %w", err)
	}

	db := s.client.Database(c.DatabaseName)
	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, fmt.Errorf("listing tenant collections: %w", err)
	}
	present := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		present[name] = struct{}{}
	}
	for _, name := range tenantCollections {
		if _, ok := present[name]; ok {
			continue
		}
		if err := db.CreateCollection(ctx, name); err != nil {
			return false, fmt.Errorf("creating collection %s: %w", name, err)
		}
	}

	if err := s.createIndexes(ctx, db); err != nil {
		return false, err
	}

	s.log.Info().Str("college", collegeID).Str("database", c.DatabaseName).Msg("college approved")
	return false, nil
}

func (s *TenantStore) createIndexes(ctx context.Context, db *mongo.Database) error {
	messageIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "receiverId", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "groupId", Value: 1}, {Key: "timestamp", Value: -1}}},
	}
	if _, err := db.Collection(messagesCollection).Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return fmt.Errorf("creating message indexes: %w", err)
	}
	groupIndex := mongo.IndexModel{Keys: bson.D{{Key: "members", Value: 1}}}
	if _, err := db.Collection(groupsCollection).Indexes().CreateOne(ctx, groupIndex); err != nil {
		return fmt.Errorf("creating group index: %w", err)
	}
	return nil
}

// Resolve maps a tenant identifier to its partition handle. Called on every
// authenticated operation and every WebSocket handshake.
func (s *TenantStore) Resolve(ctx context.Context, collegeID string) (*Tenant, error) {
	c, err := s.FindByID(ctx, collegeID)
	if err != nil {
		return nil, err
	}

	tz := c.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn().Str("college", collegeID).Str("timezone", tz).Msg("unknown timezone, falling back to UTC")
		loc = time.UTC
	}

	return &Tenant{
		college: c,
		db:      s.client.Database(c.DatabaseName),
		loc:     loc,
	}, nil
}
