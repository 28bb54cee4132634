package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campuslink/campuslink/internal/model"
)

type messageCreateRequest struct {
	Content     string             `json:"content"`
	Attachments []model.Attachment `json:"attachments,omitempty"`
	ReceiverID  string             `json:"receiverId,omitempty"`
	GroupID     string             `json:"groupId,omitempty"`
}

func (req messageCreateRequest) validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Content, validation.Required),
	)
}

// handleCreateMessage persists a message over REST. Like the WebSocket
// path, a direct receiver must exist; a group must resolve before the
// write.
func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	var req messageCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Attachments without a client-assigned id get one here so the stored
	// pointer is always addressable.
	for i := range req.Attachments {
		if req.Attachments[i].ID == "" {
			req.Attachments[i].ID = uuid.NewString()
		}
	}

	msg := &model.Message{
		Content:     req.Content,
		Attachments: req.Attachments,
		SenderID:    p.user.ID,
	}

	if req.ReceiverID != "" {
		receiverID, err := primitive.ObjectIDFromHex(req.ReceiverID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid receiver ID format")
			return
		}
		if _, err := p.tenant.Users().FindByID(r.Context(), receiverID); err != nil {
			respondError(w, http.StatusNotFound, "receiver not found")
			return
		}
		msg.ReceiverID = receiverID
	}

	if req.GroupID != "" {
		groupID, err := primitive.ObjectIDFromHex(req.GroupID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid group ID format")
			return
		}
		if _, err := p.tenant.Groups().FindByID(r.Context(), groupID); err != nil {
			respondError(w, http.StatusNotFound, "group not found")
			return
		}
		msg.GroupID = groupID
	}

	if msg.IsGroup() && !msg.ReceiverID.IsZero() {
		respondError(w, http.StatusBadRequest, "message cannot target both a receiver and a group")
		return
	}

	persisted, err := p.tenant.Messages().Insert(r.Context(), msg)
	if err != nil {
		s.log.Error().Err(err).Msg("persisting message")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, persisted)
}

// handleGetMessage returns one message. Direct messages are visible to
// their two ends; group messages to current group members. Anything else
// reads as not found so the endpoint does not leak message existence.
func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	messageID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "messageID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid message ID format")
		return
	}

	msg, err := p.tenant.Messages().FindByID(r.Context(), messageID)
	if err != nil {
		if errors.Is(err, model.ErrMessageNotFound) {
			respondError(w, http.StatusNotFound, "message not found")
			return
		}
		s.log.Error().Err(err).Msg("finding message")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if msg.IsGroup() {
		group, err := p.tenant.Groups().FindByID(r.Context(), msg.GroupID)
		if err != nil || !group.HasMember(p.user.ID) {
			respondError(w, http.StatusNotFound, "message not found")
			return
		}
	} else if msg.SenderID != p.user.ID && msg.ReceiverID != p.user.ID {
		respondError(w, http.StatusNotFound, "message not found")
		return
	}

	respondJSON(w, http.StatusOK, msg)
}

// handleListMessages returns the caller's message history: a direct
// conversation when receiverId is given, a group's feed when groupId is
// given, otherwise everything the caller sent or received.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	skip, limit := pagination(r)

	var (
		messages []model.Message
		err      error
	)
	switch {
	case r.URL.Query().Get("receiverId") != "":
		var receiverID primitive.ObjectID
		receiverID, err = primitive.ObjectIDFromHex(r.URL.Query().Get("receiverId"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid receiver ID format")
			return
		}
		messages, err = p.tenant.Messages().ListBetween(r.Context(), p.user.ID, receiverID, skip, limit)

	case r.URL.Query().Get("groupId") != "":
		var groupID primitive.ObjectID
		groupID, err = primitive.ObjectIDFromHex(r.URL.Query().Get("groupId"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid group ID format")
			return
		}
		messages, err = p.tenant.Messages().ListGroup(r.Context(), groupID, skip, limit)

	default:
		messages, err = p.tenant.Messages().ListForUser(r.Context(), p.user.ID, skip, limit)
	}

	if err != nil && !errors.Is(err, model.ErrGroupNotFound) {
		s.log.Error().Err(err).Msg("listing messages")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, messages)
}
