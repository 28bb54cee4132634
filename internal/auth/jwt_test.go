package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/campuslink/internal/model"
)

func testUser() *model.User {
	return &model.User{
		Name:      "Asha Patil",
		Email:     "asha@coep.ac.in",
		Role:      model.RoleStudent,
		CollegeID: "coep",
	}
}

func TestIssueAndVerify(t *testing.T) {
	a := NewAuthenticator("secret", time.Hour)

	token, err := a.Issue(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	identity, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "Asha Patil", identity.Name)
	assert.Equal(t, "asha@coep.ac.in", identity.Email)
	assert.Equal(t, model.RoleStudent, identity.Role)
	assert.Equal(t, "coep", identity.TenantID)
}

func TestVerifyExpiredToken(t *testing.T) {
	a := NewAuthenticator("secret", -time.Minute)

	token, err := a.Issue(testUser())
	require.NoError(t, err)

	_, err = a.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewAuthenticator("secret-a", time.Hour)
	verifier := NewAuthenticator("secret-b", time.Hour)

	token, err := issuer.Issue(testUser())
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyGarbageToken(t *testing.T) {
	a := NewAuthenticator("secret", time.Hour)

	_, err := a.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyRejectsCollegeToken(t *testing.T) {
	a := NewAuthenticator("secret", time.Hour)

	token, err := a.IssueCollege(&model.College{
		CollegeID:   "coep",
		CollegeName: "College of Engineering Pune",
	})
	require.NoError(t, err)

	// College tokens have no email claim and a role outside the member
	// enum, so the member path must reject them.
	_, err = a.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestIssueRequiresEmail(t *testing.T) {
	a := NewAuthenticator("secret", time.Hour)

	_, err := a.Issue(&model.User{Name: "No Email", Role: model.RoleStudent})
	assert.Error(t, err)
}

func TestIssueCollegeRequiresID(t *testing.T) {
	a := NewAuthenticator("secret", time.Hour)

	_, err := a.IssueCollege(&model.College{CollegeName: "Nameless"})
	assert.Error(t, err)
}
