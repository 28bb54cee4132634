package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, role := range Roles() {
		parsed, err := ParseRole(role.String())
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}
}

func TestParseRoleRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "student", "college", "Teacher"} {
		_, err := ParseRole(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}

func TestRoleCollection(t *testing.T) {
	assert.Equal(t, "Student", RoleStudent.Collection())
	assert.Equal(t, "Alumni", RoleAlumni.Collection())
	assert.Equal(t, "Admin", RoleAdmin.Collection())
}
