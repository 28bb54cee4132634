package store

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/campuslink/campuslink/internal/model"
)

// defaultTimezone matches the deployment region; colleges can override it
// with their own IANA zone name.
const defaultTimezone = "Asia/Kolkata"

// Tenant is the partition handle for one college: its database plus the
// timezone its timestamps render in. All stores derived from it operate on
// the same isolated database.
type Tenant struct {
	college *model.College
	db      *mongo.Database
	loc     *time.Location
}

// ID returns the public college identifier.
func (t *Tenant) ID() string {
	return t.college.CollegeID
}

// Location returns the tenant's timezone for rendering timestamps.
func (t *Tenant) Location() *time.Location {
	return t.loc
}

// Users returns the tenant's user store.
func (t *Tenant) Users() *UserStore {
	return &UserStore{db: t.db}
}

// Messages returns the tenant's message store.
func (t *Tenant) Messages() *MessageStore {
	return &MessageStore{coll: t.db.Collection(messagesCollection)}
}

// Groups returns the tenant's group store.
func (t *Tenant) Groups() *GroupStore {
	return &GroupStore{coll: t.db.Collection(groupsCollection)}
}
