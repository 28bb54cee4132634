package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group types recognized by the API.
const (
	GroupTypeClass      = "class"
	GroupTypeDepartment = "department"
	GroupTypeCommittee  = "committee"
	GroupTypeCommunity  = "community"
)

// Group is a named member set inside a tenant. Membership is managed by the
// group endpoints; the message router only reads it.
type Group struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"_id,omitempty"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description" json:"description"`
	Type        string               `bson:"type" json:"type"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	CreatedBy   primitive.ObjectID   `bson:"createdBy" json:"createdBy"`
	Admins      []primitive.ObjectID `bson:"admins" json:"admins"`
	Members     []primitive.ObjectID `bson:"members" json:"members"`
	ImageURL    string               `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
}

// HasMember reports whether id belongs to the group.
func (g *Group) HasMember(id primitive.ObjectID) bool {
	for _, m := range g.Members {
		if m == id {
			return true
		}
	}
	return false
}

// HasAdmin reports whether id administers the group.
func (g *Group) HasAdmin(id primitive.ObjectID) bool {
	for _, a := range g.Admins {
		if a == id {
			return true
		}
	}
	return false
}
