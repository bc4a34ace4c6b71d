package command

import (
	"launchpad/models"
	"launchpad/oracle"
	"launchpad/store"
)

// FailureKind is the user-facing error taxonomy. The zero value means success.
type FailureKind string

const (
	ParseFailure         FailureKind = "parse"
	AuthorizationFailure FailureKind = "authorization"
	ValidationFailure    FailureKind = "validation"
	CollaboratorFailure  FailureKind = "collaborator"
	NotFound             FailureKind = "not_found"
)

// Effects records what a dispatch wrote.
type Effects struct {
	MessageIDs []string `json:"message_ids,omitempty"`
	UpdateIDs  []string `json:"update_ids,omitempty"`
	Writes     int      `json:"writes"`
}

// Result is the structured outcome of every dispatch, successful or not.
type Result struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Command   string            `json:"command,omitempty"`
	Kind      FailureKind       `json:"kind,omitempty"`
	Usage     string            `json:"usage,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
	Effects   Effects           `json:"effects"`
	Resources []oracle.Resource `json:"resources,omitempty"`
}

func ok(msg string) Result {
	return Result{Success: true, Message: msg}
}

func fail(kind FailureKind, msg string) Result {
	return Result{Kind: kind, Message: msg}
}

func invalid(e Entry, msg string) Result {
	return Result{Kind: ValidationFailure, Message: msg, Usage: e.Usage}
}

// Actor is who a dispatch runs as.
type Actor struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Role   models.Role `json:"role"`
	TeamID string      `json:"team_id,omitempty"`
}

func ActorFromProfile(p models.Profile) Actor {
	return Actor{ID: p.ID, Name: p.Name, Role: p.Role, TeamID: p.TeamIDValue()}
}

// HasTeam reports whether the actor is assigned to a team.
func (a Actor) HasTeam() bool { return a.TeamID != "" }

// Inbox is the message filter for everything addressed to the actor.
func (a Actor) Inbox(unreadOnly bool) store.MessageFilter {
	return store.MessageFilter{
		ReceiverID: a.ID,
		Role:       a.Role,
		TeamID:     a.TeamID,
		UnreadOnly: unreadOnly,
	}
}
