package chat

import (
	"encoding/json"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campuslink/campuslink/internal/model"
)

// Frame type discriminators. Unrecognized inbound types are ignored so
// newer clients can speak to older servers.
const (
	FrameTypeMessage      = "message"
	FrameTypeGroupMessage = "group_message"
	FrameTypeUserOffline  = "user_offline"
	FrameTypeError        = "error"
)

// InboundFrame is the decoded shape of a client text frame. Which fields
// are required depends on Type.
type InboundFrame struct {
	Type       string `json:"type"`
	Content    string `json:"content"`
	ReceiverID string `json:"receiverId,omitempty"`
	GroupID    string `json:"groupId,omitempty"`
	SenderName string `json:"senderName,omitempty"`
}

// DecodeFrame parses a raw text frame. A decode failure only drops this
// frame; the caller keeps the channel open.
func DecodeFrame(raw []byte) (*InboundFrame, error) {
	var f InboundFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return &f, nil
}

// Validate checks the recipient fields required by the frame's type.
func (f *InboundFrame) Validate() error {
	var err error
	switch f.Type {
	case FrameTypeMessage:
		err = validation.ValidateStruct(f,
			validation.Field(&f.ReceiverID, validation.Required),
		)
	case FrameTypeGroupMessage:
		err = validation.ValidateStruct(f,
			validation.Field(&f.GroupID, validation.Required),
		)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}

// messageData is the outbound serialization of a persisted message. Ids are
// hex strings and the timestamp is ISO-8601 in the tenant's timezone.
type messageData struct {
	ID         string `json:"_id"`
	Content    string `json:"content"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId,omitempty"`
	GroupID    string `json:"groupId,omitempty"`
	SenderName string `json:"senderName,omitempty"`
	Timestamp  string `json:"timestamp"`
	IsRead     bool   `json:"isRead"`
}

type outboundFrame struct {
	Type    string       `json:"type"`
	Data    *messageData `json:"data,omitempty"`
	UserID  string       `json:"userId,omitempty"`
	Message string       `json:"message,omitempty"`
}

func encodeDirectFrame(m *model.Message, loc *time.Location) []byte {
	return mustEncode(outboundFrame{
		Type: FrameTypeMessage,
		Data: &messageData{
			ID:         m.ID.Hex(),
			Content:    m.Content,
			SenderID:   m.SenderID.Hex(),
			ReceiverID: m.ReceiverID.Hex(),
			Timestamp:  m.Timestamp.In(loc).Format(time.RFC3339),
			IsRead:     m.IsRead,
		},
	})
}

func encodeGroupFrame(m *model.Message, senderName string, loc *time.Location) []byte {
	return mustEncode(outboundFrame{
		Type: FrameTypeGroupMessage,
		Data: &messageData{
			ID:         m.ID.Hex(),
			Content:    m.Content,
			SenderID:   m.SenderID.Hex(),
			GroupID:    m.GroupID.Hex(),
			SenderName: senderName,
			Timestamp:  m.Timestamp.In(loc).Format(time.RFC3339),
			IsRead:     m.IsRead,
		},
	})
}

func encodeOfflineFrame(userID string) []byte {
	return mustEncode(outboundFrame{Type: FrameTypeUserOffline, UserID: userID})
}

func encodeErrorFrame(message string) []byte {
	return mustEncode(outboundFrame{Type: FrameTypeError, Message: message})
}

// mustEncode marshals an outbound frame. The frame types contain only
// strings and bools, so marshalling cannot fail.
func mustEncode(f outboundFrame) []byte {
	payload, err := json.Marshal(f)
	if err != nil {
		panic(fmt.Sprintf("encoding outbound frame: %v", err))
	}
	return payload
}

// parseObjectID converts a client-supplied id, folding format errors into
// the malformed-message taxonomy.
func parseObjectID(field, value string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid %s", ErrMalformedMessage, field)
	}
	return id, nil
}
