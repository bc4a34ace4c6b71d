// Package permissions holds the static role → capability matrix.
//
// The matrix is immutable after init and safe for concurrent reads.
package permissions

import (
	"sort"

	"launchpad/models"
)

// Capability is a named permission flag gating one or more commands.
type Capability string

const (
	// None marks commands any valid role may run.
	None Capability = ""

	ViewTeamData    Capability = "viewTeamData"
	EditOwnProgress Capability = "editOwnProgress"
	SendMessages    Capability = "sendMessages"
	SendBroadcasts  Capability = "sendBroadcasts"
	ViewAllTeams    Capability = "viewAllTeams"
	EditAnyTeam     Capability = "editAnyTeam"
	RunAnalysis     Capability = "runAnalysis"
)

// Entry is the capability set granted to one role.
type Entry struct {
	Role                models.Role
	AllowedCapabilities map[Capability]struct{}
}

var matrix = map[models.Role]Entry{
	models.RoleBuilder: entry(models.RoleBuilder,
		ViewTeamData, EditOwnProgress, SendMessages),
	models.RoleMentor: entry(models.RoleMentor,
		ViewTeamData, SendMessages, ViewAllTeams, RunAnalysis),
	models.RoleLead: entry(models.RoleLead,
		ViewTeamData, EditOwnProgress, SendMessages, SendBroadcasts, ViewAllTeams, EditAnyTeam, RunAnalysis),
	models.RoleGuest:      entry(models.RoleGuest, ViewTeamData),
	models.RoleUnassigned: entry(models.RoleUnassigned),
}

func entry(role models.Role, caps ...Capability) Entry {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return Entry{Role: role, AllowedCapabilities: set}
}

// Authorize reports whether role holds capability. Unknown roles are always denied.
func Authorize(role models.Role, capability Capability) bool {
	e, ok := matrix[role]
	if !ok {
		return false
	}
	if capability == None {
		return true
	}
	_, granted := e.AllowedCapabilities[capability]
	return granted
}

// Capabilities returns the sorted capability list for role.
func Capabilities(role models.Role) []Capability {
	e, ok := matrix[role]
	if !ok {
		return nil
	}
	caps := make([]Capability, 0, len(e.AllowedCapabilities))
	for c := range e.AllowedCapabilities {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}
