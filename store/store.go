// Package store is the record-management collaborator used by the command core.
//
// Store is deliberately narrow: the handlers only need a handful of reads and
// independent single-collection writes. Nothing here is transactional across
// collections.
package store

import (
	"context"
	"errors"
	"time"

	"launchpad/models"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// UpdateFilter selects progress updates.
type UpdateFilter struct {
	TeamID string
	Since  time.Time
	Limit  int
}

// MessageFilter selects messages visible to one actor: rows addressed to
// ReceiverID, role-wide rows for Role, and team rows for TeamID.
type MessageFilter struct {
	ReceiverID string
	Role       models.Role
	TeamID     string
	UnreadOnly bool
	Limit      int
}

// Store is the persistence surface used by handlers and controllers.
type Store interface {
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	GetProfile(ctx context.Context, id string) (models.Profile, error)

	ListTeams(ctx context.Context) ([]models.Team, error)
	GetTeam(ctx context.Context, id string) (models.Team, error)
	UpdateTeam(ctx context.Context, id string, patch map[string]interface{}) error

	InsertUpdate(ctx context.Context, u *models.Update) error
	ListUpdates(ctx context.Context, f UpdateFilter) ([]models.Update, error)

	UpsertTeamStatus(ctx context.Context, s *models.TeamStatus) error
	GetTeamStatus(ctx context.Context, teamID string) (models.TeamStatus, error)

	InsertMessages(ctx context.Context, msgs []*models.Message) error
	ListMessages(ctx context.Context, f MessageFilter) ([]models.Message, error)
	// MarkMessageRead sets ReadAt once. It reports false when the message was already read.
	MarkMessageRead(ctx context.Context, id string, at time.Time) (bool, error)
}

// Visible reports whether m belongs in the inbox described by f.
func (f MessageFilter) Visible(m models.Message) bool {
	if f.UnreadOnly && m.ReadAt != nil {
		return false
	}
	if m.Directed() {
		return f.ReceiverID != "" && *m.ReceiverID == f.ReceiverID
	}
	if m.TeamID != nil && *m.TeamID != "" {
		return f.TeamID != "" && *m.TeamID == f.TeamID
	}
	return f.Role != "" && m.ReceiverRole == f.Role
}
