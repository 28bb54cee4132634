package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campuslink/campuslink/internal/auth"
	"github.com/campuslink/campuslink/internal/model"
)

// pagination reads skip/limit query parameters with the directory
// endpoint's defaults.
func pagination(r *http.Request) (skip, limit int64) {
	skip, limit = 0, 100
	if v, err := strconv.ParseInt(r.URL.Query().Get("skip"), 10, 64); err == nil && v >= 0 {
		skip = v
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && v > 0 {
		limit = v
	}
	return skip, limit
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"userType"`
}

func (req loginRequest) validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Email, validation.Required),
		validation.Field(&req.Password, validation.Required),
		validation.Field(&req.UserType, validation.Required),
	)
}

// handleLogin authenticates a member of a college. The login also marks the
// user online, mirroring the presence write done at WebSocket registration.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	collegeID := r.URL.Query().Get("collegeId")
	if collegeID == "" {
		respondError(w, http.StatusBadRequest, "collegeId query parameter is required")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	role, err := model.ParseRole(req.UserType)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid role specified")
		return
	}

	tenant, err := s.tenants.Resolve(r.Context(), collegeID)
	if err != nil {
		respondError(w, http.StatusNotFound, "college not found")
		return
	}

	user, err := tenant.Users().FindByEmail(r.Context(), role, req.Email)
	if err != nil {
		respondError(w, http.StatusBadRequest, "user not found")
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.Password)
	if err != nil || !ok {
		respondError(w, http.StatusBadRequest, "invalid credentials")
		return
	}

	if err := tenant.Users().SetPresence(r.Context(), role, user.ID, model.StatusOnline, time.Now().UTC()); err != nil {
		s.log.Warn().Err(err).Str("user", user.ID.Hex()).Msg("writing login presence")
	}

	token, err := s.auth.Issue(user)
	if err != nil {
		s.log.Error().Err(err).Msg("issuing token")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"user_info": user,
	})
}

type registerRequest struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	Role       string   `json:"role"`
	Department string   `json:"department,omitempty"`
	Location   string   `json:"location,omitempty"`
	PRN        string   `json:"prn,omitempty"`
	GradYear   int      `json:"gradYear,omitempty"`
	Degree     string   `json:"degree,omitempty"`
	Skills     []string `json:"skills,omitempty"`
}

func (req registerRequest) validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required),
		validation.Field(&req.Email, validation.Required),
		validation.Field(&req.Password, validation.Required),
		validation.Field(&req.Role, validation.Required),
	)
}

// handleRegister creates a member account in the role collection of the
// target college.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	collegeID := r.URL.Query().Get("collegeId")
	if collegeID == "" {
		respondError(w, http.StatusBadRequest, "collegeId query parameter is required")
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	role, err := model.ParseRole(req.Role)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid role specified")
		return
	}

	tenant, err := s.tenants.Resolve(r.Context(), collegeID)
	if err != nil {
		respondError(w, http.StatusNotFound, "college not found")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error().Err(err).Msg("hashing password")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := &model.User{
		Name:       req.Name,
		Email:      req.Email,
		Password:   hashed,
		Role:       role,
		CollegeID:  collegeID,
		Department: req.Department,
		Location:   req.Location,
		PRN:        req.PRN,
		GradYear:   req.GradYear,
		Degree:     req.Degree,
		Skills:     req.Skills,
	}
	if role == model.RoleAdmin {
		user.Permissions = []string{"manage_users", "view_reports"}
	}

	created, err := tenant.Users().Insert(r.Context(), user)
	if err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			respondError(w, http.StatusBadRequest, "email already registered")
			return
		}
		s.log.Error().Err(err).Msg("creating user")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, created)
}

// handleCurrentUser returns the authenticated caller's record.
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	respondJSON(w, http.StatusOK, p.user)
}

// handleGetUser returns another member's profile by id, searching every
// role collection.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user ID format")
		return
	}

	user, err := p.tenant.Users().FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.log.Error().Err(err).Msg("finding user")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// handleListUsers returns the tenant's member directory.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	skip, limit := pagination(r)

	users, err := p.tenant.Users().List(r.Context(), skip, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("listing users")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, users)
}
