// Package oracle talks to the external inference service that answers
// free-form questions and resource lookups.
package oracle

import (
	"context"
	"errors"

	"launchpad/models"
)

// ErrUnavailable wraps every failure to get an answer.
var ErrUnavailable = errors.New("oracle unavailable")

type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Kind  string `json:"kind,omitempty"`
}

// Context narrows an answer to the asking actor.
type Context struct {
	TeamID string `json:"team_id,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

type Answer struct {
	Text       string     `json:"text"`
	Resources  []Resource `json:"resources,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`
}

// Client answers a query for a role. Implementations may be slow and may fail.
type Client interface {
	Answer(ctx context.Context, query string, role models.Role, c Context) (Answer, error)
}
