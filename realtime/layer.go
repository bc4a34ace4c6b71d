package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"launchpad/metrics"
	"launchpad/models"

	"github.com/sirupsen/logrus"
)

const dedupeWindow = 1024

// Filter selects messages for one subscription. With ReceiverID set it matches
// rows addressed to that actor. Otherwise it matches undirected rows whose
// receiver role and team equal the non-empty fields.
type Filter struct {
	ReceiverID string
	Role       models.Role
	TeamID     string
}

// Match reports whether m passes the filter.
func (f Filter) Match(m models.Message) bool {
	if f.ReceiverID != "" {
		return m.Directed() && *m.ReceiverID == f.ReceiverID
	}
	if m.Directed() {
		return false
	}
	if f.Role != "" && m.ReceiverRole != f.Role {
		return false
	}
	if f.TeamID != "" && (m.TeamID == nil || *m.TeamID != f.TeamID) {
		return false
	}
	if f.TeamID == "" && m.TeamID != nil && *m.TeamID != "" {
		return false
	}
	return f.Role != "" || f.TeamID != ""
}

func (f Filter) String() string {
	switch {
	case f.ReceiverID != "":
		return "receiver=" + f.ReceiverID
	case f.Role != "" && f.TeamID != "":
		return fmt.Sprintf("role=%s,team=%s", f.Role, f.TeamID)
	case f.TeamID != "":
		return "team=" + f.TeamID
	default:
		return "role=" + string(f.Role)
	}
}

// Layer turns transport streams into message subscriptions and presence
// rosters.
type Layer struct {
	transport PresenceTransport
	logger    *logrus.Entry
	now       func() time.Time
	heartbeat time.Duration
}

const defaultHeartbeat = 30 * time.Second

func NewLayer(transport PresenceTransport, logger *logrus.Entry) *Layer {
	return &Layer{transport: transport, logger: logger, now: time.Now, heartbeat: defaultHeartbeat}
}

// SetHeartbeat sets how often held presence entries are refreshed on
// transports that expire them. It must be below the transport's TTL.
func (l *Layer) SetHeartbeat(d time.Duration) {
	if d > 0 {
		l.heartbeat = d
	}
}

// FeedPublisher adapts the layer's transport into a store change-feed sink.
type FeedPublisher struct {
	Transport Transport
}

func (p FeedPublisher) PublishMessage(ctx context.Context, m models.Message) error {
	return p.Transport.Publish(ctx, MessagesTopic, Event{Type: EventMessage, Message: &m})
}

// Subscription delivers matching messages to one callback until closed.
type Subscription struct {
	filter Filter
	stream Stream
	done   chan struct{}
	once   sync.Once

	seen  map[string]struct{}
	order []string
}

// Subscribe starts delivering messages matching filter to onEvent. Each
// message id is delivered at most once per subscription. onEvent runs on the
// subscription's goroutine and must not call Close.
func (l *Layer) Subscribe(ctx context.Context, filter Filter, onEvent func(models.Message)) (*Subscription, error) {
	stream, err := l.transport.Subscribe(ctx, MessagesTopic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", filter, err)
	}
	sub := &Subscription{
		filter: filter,
		stream: stream,
		done:   make(chan struct{}),
		seen:   make(map[string]struct{}),
	}
	go sub.run(onEvent, l.logger.WithField("filter", filter.String()))
	return sub, nil
}

func (s *Subscription) run(onEvent func(models.Message), logger *logrus.Entry) {
	defer close(s.done)
	for ev := range s.stream.Events() {
		if ev.Type != EventMessage || ev.Message == nil {
			continue
		}
		m := *ev.Message
		if !s.filter.Match(m) {
			metrics.RealtimeEvents.WithLabelValues(string(ev.Type), "filtered").Inc()
			continue
		}
		if !s.remember(m.ID) {
			metrics.RealtimeEvents.WithLabelValues(string(ev.Type), "duplicate").Inc()
			continue
		}
		metrics.RealtimeEvents.WithLabelValues(string(ev.Type), "delivered").Inc()
		onEvent(m)
	}
	logger.Debug("Subscription stream ended")
}

// remember records id and reports whether it was new.
func (s *Subscription) remember(id string) bool {
	if id == "" {
		return true
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	if len(s.order) > dedupeWindow {
		delete(s.seen, s.order[0])
		s.order = s.order[1:]
	}
	return true
}

// Done is closed once the subscription stops delivering, either after Close
// or because the transport went away.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close releases the subscription and waits for in-flight delivery to finish.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.stream.Close()
		<-s.done
	})
	return err
}
