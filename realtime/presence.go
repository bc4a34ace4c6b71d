package realtime

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"launchpad/metrics"
	"launchpad/models"
)

// PresenceHandle keeps a live roster for one channel while the local actor is
// tracked on it.
type PresenceHandle struct {
	layer   *Layer
	channel string
	self    PresenceRecord
	stream  Stream
	done    chan struct{}
	once    sync.Once

	stopBeat chan struct{}
	beatDone chan struct{}

	mu     sync.RWMutex
	roster map[string]PresenceRecord
}

// TrackPresence announces actor on channel and starts following joins and
// leaves. The roster is seeded from the transport after subscribing so no
// join between the two steps is lost. On transports that expire entries the
// handle refreshes its own entry until Release.
func (l *Layer) TrackPresence(ctx context.Context, channel string, actor models.Profile) (*PresenceHandle, error) {
	stream, err := l.transport.Subscribe(ctx, PresenceTopic(channel))
	if err != nil {
		return nil, fmt.Errorf("subscribe presence %s: %w", channel, err)
	}

	h := &PresenceHandle{
		layer:   l,
		channel: channel,
		self: PresenceRecord{
			ActorID:     actor.ID,
			Name:        actor.Name,
			Role:        actor.Role,
			OnlineSince: l.now().UTC(),
		},
		stream: stream,
		done:   make(chan struct{}),
		roster: make(map[string]PresenceRecord),
	}

	if err := l.transport.Track(ctx, channel, h.self); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("track presence %s: %w", channel, err)
	}

	existing, err := l.transport.List(ctx, channel)
	if err != nil {
		l.logger.WithError(err).WithField("channel", channel).Warn("Presence sync failed")
	}
	h.apply(Event{Type: EventPresenceSync, Roster: existing})
	h.apply(Event{Type: EventPresenceJoin, Presence: &h.self})

	go h.run()
	if r, ok := l.transport.(PresenceRefresher); ok {
		h.stopBeat = make(chan struct{})
		h.beatDone = make(chan struct{})
		go h.beat(r, l.heartbeat)
	}
	return h, nil
}

const refreshTimeout = 5 * time.Second

func (h *PresenceHandle) beat(r PresenceRefresher, every time.Duration) {
	defer close(h.beatDone)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-h.stopBeat:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			if err := r.Refresh(ctx, h.channel, h.self); err != nil {
				h.layer.logger.WithError(err).WithField("channel", h.channel).Warn("Presence refresh failed")
			}
			cancel()
		}
	}
}

func (h *PresenceHandle) run() {
	defer close(h.done)
	for ev := range h.stream.Events() {
		h.apply(ev)
	}
}

func (h *PresenceHandle) apply(ev Event) {
	h.mu.Lock()
	switch ev.Type {
	case EventPresenceJoin:
		if ev.Presence != nil {
			h.roster[ev.Presence.ActorID] = *ev.Presence
		}
	case EventPresenceLeave:
		if ev.Presence != nil {
			delete(h.roster, ev.Presence.ActorID)
		}
	case EventPresenceSync:
		h.roster = make(map[string]PresenceRecord, len(ev.Roster)+1)
		for _, rec := range ev.Roster {
			h.roster[rec.ActorID] = rec
		}
		h.roster[h.self.ActorID] = h.self
	}
	count := len(h.roster)
	h.mu.Unlock()

	metrics.PresenceOnline.WithLabelValues(h.channel).Set(float64(count))
}

// Roster returns the actors currently seen online, sorted by actor id.
func (h *PresenceHandle) Roster() []PresenceRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]PresenceRecord, 0, len(h.roster))
	for _, rec := range h.roster {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorID < out[j].ActorID })
	return out
}

// OnlineCount is the size of the roster.
func (h *PresenceHandle) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.roster)
}

// Release untracks the local actor and stops following the channel.
func (h *PresenceHandle) Release(ctx context.Context) error {
	var err error
	h.once.Do(func() {
		if h.stopBeat != nil {
			close(h.stopBeat)
			<-h.beatDone
		}
		err = h.layer.transport.Untrack(ctx, h.channel, h.self.ActorID)
		_ = h.stream.Close()
		<-h.done
	})
	return err
}
