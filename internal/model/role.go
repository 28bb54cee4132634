// Package model defines the documents stored in the management and tenant
// databases, along with the shared domain errors.
package model

import "fmt"

// Role identifies which user collection a member belongs to. The set is
// closed; anything outside it is rejected at parse time so the rest of the
// code never dispatches on free-form strings.
type Role string

const (
	RoleStudent Role = "Student"
	RoleAlumni  Role = "Alumni"
	RoleAdmin   Role = "Admin"
)

// Roles returns every valid role, in the order user lookups scan them.
func Roles() []Role {
	return []Role{RoleStudent, RoleAlumni, RoleAdmin}
}

// ParseRole converts a raw string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleAlumni, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Collection returns the tenant collection that stores users of this role.
func (r Role) Collection() string {
	return string(r)
}

func (r Role) String() string {
	return string(r)
}
