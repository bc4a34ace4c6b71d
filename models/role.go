package models

import "strings"

// Role is the program role attached to every actor.
type Role string

const (
	RoleBuilder    Role = "builder"
	RoleMentor     Role = "mentor"
	RoleLead       Role = "lead"
	RoleGuest      Role = "guest"
	RoleUnassigned Role = "unassigned"
)

// Roles lists every known role in display order.
var Roles = []Role{RoleBuilder, RoleMentor, RoleLead, RoleGuest, RoleUnassigned}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBuilder, RoleMentor, RoleLead, RoleGuest, RoleUnassigned:
		return true
	}
	return false
}

// Plural returns the keyword used to address every actor with this role ("mentors").
func (r Role) Plural() string {
	return string(r) + "s"
}

// RoleFromPlural maps "builders", "mentors", "leads" and "guests" to their role.
func RoleFromPlural(word string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "builders":
		return RoleBuilder, true
	case "mentors":
		return RoleMentor, true
	case "leads":
		return RoleLead, true
	case "guests":
		return RoleGuest, true
	}
	return "", false
}
