package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Attachment is a file reference carried alongside a message. The upload
// itself happens elsewhere; messages only store the pointer.
type Attachment struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name,omitempty" json:"name,omitempty"`
	URL  string `bson:"url" json:"url"`
	Mime string `bson:"mime,omitempty" json:"mime,omitempty"`
	Size int64  `bson:"size,omitempty" json:"size,omitempty"`
}

// Message is a chat message in a tenant's messages collection. Exactly one
// of ReceiverID (direct) or GroupID (group) is set. Immutable after insert
// except for IsRead, which the read-tracking endpoints toggle.
type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Content     string             `bson:"content" json:"content"`
	Attachments []Attachment       `bson:"attachments,omitempty" json:"attachments,omitempty"`
	SenderID    primitive.ObjectID `bson:"senderId" json:"senderId"`
	ReceiverID  primitive.ObjectID `bson:"receiverId,omitempty" json:"receiverId,omitempty"`
	GroupID     primitive.ObjectID `bson:"groupId,omitempty" json:"groupId,omitempty"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
	IsRead      bool               `bson:"isRead" json:"isRead"`
}

// IsGroup reports whether the message targets a group rather than a user.
func (m *Message) IsGroup() bool {
	return !m.GroupID.IsZero()
}
