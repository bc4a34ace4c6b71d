package realtime

import (
	"context"
	"sort"
	"sync"

	"launchpad/metrics"
)

const defaultStreamBuffer = 256

// Hub is an in-process PresenceTransport. It serves single-instance
// deployments and tests.
type Hub struct {
	mu       sync.RWMutex
	topics   map[string]map[*hubStream]struct{}
	presence map[string]map[string]PresenceRecord // channel -> actorID -> record
	buffer   int
	closed   bool
}

func NewHub() *Hub {
	return &Hub{
		topics:   make(map[string]map[*hubStream]struct{}),
		presence: make(map[string]map[string]PresenceRecord),
		buffer:   defaultStreamBuffer,
	}
}

type hubStream struct {
	hub    *Hub
	topic  string
	events chan Event
	once   sync.Once
}

func (s *hubStream) Events() <-chan Event { return s.events }

func (s *hubStream) Close() error {
	s.hub.detach(s)
	return nil
}

// Subscribe registers a new stream on topic.
func (h *Hub) Subscribe(ctx context.Context, topic string) (Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	s := &hubStream{hub: h, topic: topic, events: make(chan Event, h.buffer)}
	subs := h.topics[topic]
	if subs == nil {
		subs = make(map[*hubStream]struct{})
		h.topics[topic] = subs
	}
	subs[s] = struct{}{}
	return s, nil
}

// Publish fans ev out to every stream on topic. A stream whose buffer is full
// misses the event rather than blocking the publisher.
func (h *Hub) Publish(ctx context.Context, topic string, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrClosed
	}
	for s := range h.topics[topic] {
		select {
		case s.events <- ev:
		default:
			metrics.RealtimeEvents.WithLabelValues(string(ev.Type), "dropped").Inc()
		}
	}
	return nil
}

func (h *Hub) detach(s *hubStream) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s.once.Do(func() {
		if subs := h.topics[s.topic]; subs != nil {
			delete(subs, s)
			if len(subs) == 0 {
				delete(h.topics, s.topic)
			}
		}
		close(s.events)
	})
}

// Track records rec on channel and announces the join.
func (h *Hub) Track(ctx context.Context, channel string, rec PresenceRecord) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	roster := h.presence[channel]
	if roster == nil {
		roster = make(map[string]PresenceRecord)
		h.presence[channel] = roster
	}
	roster[rec.ActorID] = rec
	h.mu.Unlock()

	r := rec
	return h.Publish(ctx, PresenceTopic(channel), Event{Type: EventPresenceJoin, Presence: &r})
}

// Untrack removes actorID from channel and announces the leave.
func (h *Hub) Untrack(ctx context.Context, channel, actorID string) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	rec, ok := h.presence[channel][actorID]
	if ok {
		delete(h.presence[channel], actorID)
		if len(h.presence[channel]) == 0 {
			delete(h.presence, channel)
		}
	}
	h.mu.Unlock()

	if !ok {
		return nil
	}
	return h.Publish(ctx, PresenceTopic(channel), Event{Type: EventPresenceLeave, Presence: &rec})
}

// List returns the tracked records for channel sorted by actor id.
func (h *Hub) List(ctx context.Context, channel string) ([]PresenceRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]PresenceRecord, 0, len(h.presence[channel]))
	for _, rec := range h.presence[channel] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorID < out[j].ActorID })
	return out, nil
}

// Close ends every stream and rejects further use.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	var streams []*hubStream
	for _, subs := range h.topics {
		for s := range subs {
			streams = append(streams, s)
		}
	}
	h.mu.Unlock()

	for _, s := range streams {
		h.detach(s)
	}
}
