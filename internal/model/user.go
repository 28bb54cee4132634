package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Presence status values stored on user documents.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// User is a member of a college, stored in the tenant collection named
// after its role. Password never serializes to JSON.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Password   string             `bson:"password" json:"-"`
	Role       Role               `bson:"role" json:"role"`
	CollegeID  string             `bson:"collegeId" json:"collegeId"`
	Department string             `bson:"department,omitempty" json:"department,omitempty"`
	Location   string             `bson:"location,omitempty" json:"location,omitempty"`
	Status     string             `bson:"status,omitempty" json:"status,omitempty"`
	LastSeen   time.Time          `bson:"lastSeen,omitempty" json:"lastSeen,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`

	// Role-specific profile fields. Students and alumni share the academic
	// set; admins carry permissions.
	PRN              string   `bson:"prn,omitempty" json:"prn,omitempty"`
	GradYear         int      `bson:"gradYear,omitempty" json:"gradYear,omitempty"`
	Degree           string   `bson:"degree,omitempty" json:"degree,omitempty"`
	CurrentRole      string   `bson:"currentRole,omitempty" json:"currentRole,omitempty"`
	MentorshipStatus string   `bson:"mentorshipStatus,omitempty" json:"mentorshipStatus,omitempty"`
	Skills           []string `bson:"skills,omitempty" json:"skills,omitempty"`
	Permissions      []string `bson:"permissions,omitempty" json:"permissions,omitempty"`
}
