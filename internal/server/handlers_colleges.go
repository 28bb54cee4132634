package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-chi/chi/v5"

	"github.com/campuslink/campuslink/internal/auth"
	"github.com/campuslink/campuslink/internal/model"
)

type collegeCreateRequest struct {
	CollegeID     string            `json:"collegeId"`
	CollegeName   string            `json:"collegeName"`
	Password      string            `json:"password"`
	Timezone      string            `json:"timezone,omitempty"`
	Location      string            `json:"location,omitempty"`
	Established   int               `json:"established,omitempty"`
	Website       string            `json:"website,omitempty"`
	Email         string            `json:"email,omitempty"`
	Phone         string            `json:"phone,omitempty"`
	Description   string            `json:"description,omitempty"`
	LogoURL       string            `json:"logo_url,omitempty"`
	Departments   []string          `json:"departments,omitempty"`
	Accreditation string            `json:"accreditation,omitempty"`
	SocialMedia   map[string]string `json:"social_media,omitempty"`
}

func (req collegeCreateRequest) validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.CollegeID, validation.Required),
		validation.Field(&req.CollegeName, validation.Required),
		validation.Field(&req.Password, validation.Required),
		validation.Field(&req.Established,
			validation.Min(1800), validation.Max(time.Now().Year())),
	)
}

// handleCreateCollege registers a new college in the pending state. The
// tenant database is only provisioned on approval.
func (s *Server) handleCreateCollege(w http.ResponseWriter, r *http.Request) {
	var req collegeCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error().Err(err).Msg("hashing college password")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	college := &model.College{
		CollegeID:     req.CollegeID,
		CollegeName:   req.CollegeName,
		Password:      hashed,
		Timezone:      req.Timezone,
		Location:      req.Location,
		Established:   req.Established,
		Website:       req.Website,
		Email:         req.Email,
		Phone:         req.Phone,
		Description:   req.Description,
		LogoURL:       req.LogoURL,
		Departments:   req.Departments,
		Accreditation: req.Accreditation,
		SocialMedia:   req.SocialMedia,
	}

	if err := s.tenants.Create(r.Context(), college); err != nil {
		if errors.Is(err, model.ErrCollegeExists) {
			respondError(w, http.StatusBadRequest, "college already exists")
			return
		}
		s.log.Error().Err(err).Msg("creating college")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("College %s registration request submitted and pending approval.", college.CollegeName),
	})
}

// handleApproveCollege flips a pending college to approved and provisions
// its collections and indexes.
func (s *Server) handleApproveCollege(w http.ResponseWriter, r *http.Request) {
	collegeID := chi.URLParam(r, "collegeID")

	already, err := s.tenants.Approve(r.Context(), collegeID)
	if err != nil {
		if errors.Is(err, model.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "college not found")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if already {
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  "already_approved",
			"message": fmt.Sprintf("College %s is already approved.", collegeID),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("College %s approved and collections created.", collegeID),
	})
}

// handleListColleges lists registered colleges with optional status and
// name filters.
func (s *Server) handleListColleges(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	search := r.URL.Query().Get("search")
	skip, limit := pagination(r)

	colleges, err := s.tenants.List(r.Context(), status, search, skip, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("listing colleges")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"colleges": colleges})
}

type collegeLoginRequest struct {
	CollegeID string `json:"collegeId"`
	Password  string `json:"password"`
}

// handleCollegeLogin authenticates a college admin account. Only approved
// colleges may log in.
func (s *Server) handleCollegeLogin(w http.ResponseWriter, r *http.Request) {
	var req collegeLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	college, err := s.tenants.FindByID(r.Context(), req.CollegeID)
	if err != nil {
		respondError(w, http.StatusNotFound, "college not found")
		return
	}

	ok, err := auth.VerifyPassword(req.Password, college.Password)
	if err != nil || !ok {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if college.Status != model.CollegeStatusApproved {
		respondError(w, http.StatusForbidden, "college account is not approved yet")
		return
	}

	token, err := s.auth.IssueCollege(college)
	if err != nil {
		s.log.Error().Err(err).Msg("issuing college token")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"college_info": map[string]string{
			"collegeId":    college.CollegeID,
			"collegeName":  college.CollegeName,
			"status":       college.Status,
			"databaseName": college.DatabaseName,
		},
	})
}
