package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// College approval lifecycle. A college signs up as pending and can only
// log in or host users once approved.
const (
	CollegeStatusPending  = "pending"
	CollegeStatusApproved = "approved"
	CollegeStatusRejected = "rejected"
)

// College is a tenant record in the management database. DatabaseName points
// at the tenant's isolated database; Timezone controls how timestamps are
// rendered for its users.
type College struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	CollegeID     string             `bson:"collegeId" json:"collegeId"`
	CollegeName   string             `bson:"collegeName" json:"collegeName"`
	Password      string             `bson:"password" json:"-"`
	DatabaseName  string             `bson:"databaseName" json:"databaseName"`
	Timezone      string             `bson:"timezone,omitempty" json:"timezone,omitempty"`
	Location      string             `bson:"location,omitempty" json:"location,omitempty"`
	Established   int                `bson:"established,omitempty" json:"established,omitempty"`
	Website       string             `bson:"website,omitempty" json:"website,omitempty"`
	Email         string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone         string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	LogoURL       string             `bson:"logo_url,omitempty" json:"logo_url,omitempty"`
	Departments   []string           `bson:"departments,omitempty" json:"departments,omitempty"`
	Accreditation string             `bson:"accreditation,omitempty" json:"accreditation,omitempty"`
	SocialMedia   map[string]string  `bson:"social_media,omitempty" json:"social_media,omitempty"`
	Status        string             `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}
