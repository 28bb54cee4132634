// Package auth issues and verifies the HS256 bearer tokens that scope every
// request and WebSocket handshake to a tenant. The signing secret is loaded
// once at startup and never rotated at runtime.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campuslink/campuslink/internal/model"
)

// ErrInvalidCredential covers malformed, expired, and unverifiable tokens.
var ErrInvalidCredential = errors.New("invalid credential")

// Identity is the verified claim set of a user token, with the role already
// resolved into the closed enum. The caller still owns the follow-up tenant
// and user lookups.
type Identity struct {
	Name     string
	Email    string
	Role     model.Role
	TenantID string
}

// Claims is the wire shape of a token payload.
type Claims struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	CollegeID string `json:"collegeId,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator signs and verifies session tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

// NewAuthenticator builds an Authenticator with the given secret and token
// lifetime.
func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for a tenant user.
func (a *Authenticator) Issue(u *model.User) (string, error) {
	if u == nil || strings.TrimSpace(u.Email) == "" {
		return "", errors.New("user email required")
	}

	claims := Claims{
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role.String(),
		CollegeID: u.CollegeID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// IssueCollege signs a token for a college admin dashboard session. College
// tokens carry the literal role "college" and never pass Verify, which only
// accepts member roles.
func (a *Authenticator) IssueCollege(c *model.College) (string, error) {
	if c == nil || c.CollegeID == "" {
		return "", errors.New("college id required")
	}

	claims := Claims{
		Name:      c.CollegeName,
		Role:      "college",
		CollegeID: c.CollegeID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify parses and validates a member token. It is pure validation: no
// tenant or user existence checks happen here.
func (a *Authenticator) Verify(token string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, ErrInvalidCredential
	}
	if claims.Email == "" || claims.CollegeID == "" {
		return Identity{}, fmt.Errorf("%w: missing email or tenant claim", ErrInvalidCredential)
	}

	role, err := model.ParseRole(claims.Role)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	return Identity{
		Name:     claims.Name,
		Email:    claims.Email,
		Role:     role,
		TenantID: claims.CollegeID,
	}, nil
}
