// Package realtime propagates persisted messages and ephemeral presence to
// connected sessions.
//
// Transports only move Events between processes. The Layer on top turns a
// transport stream into per-filter message callbacks and presence rosters so
// the rest of the code never touches channel mechanics.
package realtime

import (
	"context"
	"errors"
	"time"

	"launchpad/models"
)

// Topic carrying every inserted message.
const MessagesTopic = "messages"

// PresenceTopic returns the topic presence events for channel are published on.
func PresenceTopic(channel string) string {
	return "presence:" + channel
}

type EventType string

const (
	EventMessage       EventType = "message"
	EventPresenceJoin  EventType = "presence_join"
	EventPresenceLeave EventType = "presence_leave"
	EventPresenceSync  EventType = "presence_sync"
)

// PresenceRecord marks one actor as online. It is never persisted.
type PresenceRecord struct {
	ActorID     string      `json:"actor_id"`
	Name        string      `json:"name"`
	Role        models.Role `json:"role"`
	OnlineSince time.Time   `json:"online_since"`
}

// Event is the unit moved by a Transport.
type Event struct {
	Type     EventType        `json:"type"`
	Message  *models.Message  `json:"message,omitempty"`
	Presence *PresenceRecord  `json:"presence,omitempty"`
	Roster   []PresenceRecord `json:"roster,omitempty"`
}

// ErrClosed is returned when publishing or subscribing on a closed transport.
var ErrClosed = errors.New("realtime transport closed")

// Stream is one live subscription to a topic. Events are delivered in the
// order the transport received them. The channel is closed after Close or
// when the transport goes away.
type Stream interface {
	Events() <-chan Event
	Close() error
}

// Transport is a topic keyed publish/subscribe channel.
type Transport interface {
	Publish(ctx context.Context, topic string, ev Event) error
	Subscribe(ctx context.Context, topic string) (Stream, error)
}

// PresenceTransport extends a transport with presence tracking. Track and
// Untrack publish join and leave events on PresenceTopic(channel).
type PresenceTransport interface {
	Transport
	Track(ctx context.Context, channel string, rec PresenceRecord) error
	Untrack(ctx context.Context, channel, actorID string) error
	List(ctx context.Context, channel string) ([]PresenceRecord, error)
}

// PresenceRefresher is implemented by transports whose presence entries
// expire. Live handles call Refresh periodically to keep their entry.
type PresenceRefresher interface {
	Refresh(ctx context.Context, channel string, rec PresenceRecord) error
}
