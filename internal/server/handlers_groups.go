package server

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campuslink/campuslink/internal/model"
)

type groupCreateRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Members     []string `json:"members,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
}

func (req groupCreateRequest) validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required),
		validation.Field(&req.Description, validation.Required),
		validation.Field(&req.Type, validation.Required, validation.In(
			model.GroupTypeClass,
			model.GroupTypeDepartment,
			model.GroupTypeCommittee,
			model.GroupTypeCommunity,
		)),
	)
}

// handleCreateGroup creates a group with the caller as admin and first
// member.
func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	var req groupCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	members := make([]primitive.ObjectID, 0, len(req.Members))
	for _, raw := range req.Members {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid member ID format")
			return
		}
		members = append(members, id)
	}

	group := &model.Group{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Members:     members,
		ImageURL:    req.ImageURL,
	}

	created, err := p.tenant.Groups().Insert(r.Context(), group, p.user.ID)
	if err != nil {
		s.log.Error().Err(err).Msg("creating group")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, created)
}

// handleListGroups returns the groups the caller belongs to.
func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	skip, limit := pagination(r)

	groups, err := p.tenant.Groups().ListForMember(r.Context(), p.user.ID, skip, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("listing groups")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

// handleGetGroup returns one group, visible only to its members.
func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	groupID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "groupID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid group ID format")
		return
	}

	group, err := p.tenant.Groups().FindForMember(r.Context(), groupID, p.user.ID)
	if err != nil {
		if errors.Is(err, model.ErrGroupNotFound) {
			respondError(w, http.StatusNotFound, "group not found or access denied")
			return
		}
		s.log.Error().Err(err).Msg("finding group")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, group)
}

// handleAddGroupMember adds a member; only admins may do this.
func (s *Server) handleAddGroupMember(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	groupID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "groupID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid group ID format")
		return
	}
	memberID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("memberId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid member ID format")
		return
	}

	// Resolve the group first so a missing group reads as 404 rather than
	// the admin filter's 403.
	group, err := p.tenant.Groups().FindByID(r.Context(), groupID)
	if err != nil {
		if errors.Is(err, model.ErrGroupNotFound) {
			respondError(w, http.StatusNotFound, "group not found")
			return
		}
		s.log.Error().Err(err).Msg("finding group")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !group.HasAdmin(p.user.ID) {
		respondError(w, http.StatusForbidden, "only group admins can add members")
		return
	}

	if err := p.tenant.Groups().AddMember(r.Context(), groupID, p.user.ID, memberID); err != nil {
		if errors.Is(err, model.ErrNotGroupAdmin) {
			respondError(w, http.StatusForbidden, "only group admins can add members")
			return
		}
		s.log.Error().Err(err).Msg("adding group member")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Member added to group",
	})
}
