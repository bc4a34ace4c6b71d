// Package session folds one connected actor's dispatcher output and realtime
// deliveries into a single transcript.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"launchpad/command"
	"launchpad/directory"
	"launchpad/models"
	"launchpad/realtime"
	"launchpad/transcript"

	"github.com/sirupsen/logrus"
)

// DefaultChannel is the program-wide presence channel.
const DefaultChannel = "program"

const seenLimit = 2048

type Deps struct {
	Dispatcher *command.Dispatcher
	Layer      *realtime.Layer
	Directory  *directory.Directory
	Logger     *logrus.Entry
	Channel    string
}

// Session is safe for concurrent Submit calls. Their handler entries land in
// the transcript in completion order.
type Session struct {
	deps       Deps
	profile    models.Profile
	actor      command.Actor
	transcript *transcript.Transcript
	logger     *logrus.Entry

	subs     []*realtime.Subscription
	presence *realtime.PresenceHandle

	mu       sync.Mutex
	inflight int
	seen     map[string]struct{}
	order    []string
	pending  []models.Message
	closed   bool
}

// Open starts a session for actor. Realtime failures do not fail Open: the
// session notes them in the transcript and keeps serving commands.
func Open(ctx context.Context, deps Deps, actor models.Profile) (*Session, error) {
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("session: dispatcher is required")
	}
	if deps.Channel == "" {
		deps.Channel = DefaultChannel
	}
	if deps.Logger == nil {
		deps.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	s := &Session{
		deps:       deps,
		profile:    actor,
		actor:      command.ActorFromProfile(actor),
		transcript: transcript.New(),
		logger:     deps.Logger.WithField("actor", actor.ID),
		seen:       make(map[string]struct{}),
	}

	s.transcript.Append(transcript.OriginSystem,
		fmt.Sprintf("Welcome, %s. You are signed in as %s. Type /help to see what you can do.", actor.Name, roleName(actor.Role)), nil)

	if deps.Layer == nil {
		s.transcript.Append(transcript.OriginSystem, "Live updates are off for this session.", nil)
		return s, nil
	}

	var degraded bool
	for _, f := range s.filters() {
		sub, err := deps.Layer.Subscribe(ctx, f, s.deliver)
		if err != nil {
			s.logger.WithError(err).WithField("filter", f.String()).Warn("Realtime subscription failed")
			degraded = true
			continue
		}
		s.subs = append(s.subs, sub)
	}

	presence, err := deps.Layer.TrackPresence(ctx, deps.Channel, actor)
	if err != nil {
		s.logger.WithError(err).Warn("Presence tracking failed")
		degraded = true
	} else {
		s.presence = presence
	}

	if degraded {
		s.transcript.Append(transcript.OriginSystem, "Live updates are unavailable right now. Commands still work.", nil)
	}
	return s, nil
}

// filters covers everything addressed to the actor: direct rows, rows for
// their role and their team's chat.
func (s *Session) filters() []realtime.Filter {
	fs := []realtime.Filter{{ReceiverID: s.actor.ID}}
	if s.actor.Role.Valid() && s.actor.Role != models.RoleUnassigned {
		fs = append(fs, realtime.Filter{Role: s.actor.Role})
	}
	if s.actor.HasTeam() {
		fs = append(fs, realtime.Filter{TeamID: s.actor.TeamID})
	}
	return fs
}

func (s *Session) Actor() command.Actor { return s.actor }

func (s *Session) Transcript() *transcript.Transcript { return s.transcript }

// Submit appends raw as a user entry, dispatches it and appends the outcome.
func (s *Session) Submit(ctx context.Context, raw string) command.Result {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()

	s.transcript.Append(transcript.OriginUser, raw, nil)
	res := s.deps.Dispatcher.Run(ctx, raw, s.actor)

	s.mu.Lock()
	s.inflight--
	for _, id := range res.Effects.MessageIDs {
		s.rememberLocked(id)
	}
	var flush []models.Message
	if s.inflight == 0 {
		for _, m := range s.pending {
			if s.rememberLocked(m.ID) {
				flush = append(flush, m)
			}
		}
		s.pending = nil
	}
	s.mu.Unlock()

	s.transcript.Append(transcript.OriginHandler, render(res), resultMetadata(res))
	for _, m := range flush {
		s.appendMessage(m)
	}
	return res
}

// deliver receives realtime messages from every subscription. The actor's own
// messages are held while a dispatch is in flight so the echo of a message
// this session just sent is not rendered next to the handler's confirmation.
func (s *Session) deliver(m models.Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if _, dup := s.seen[m.ID]; dup {
		s.mu.Unlock()
		return
	}
	if m.SenderID == s.actor.ID && s.inflight > 0 {
		s.pending = append(s.pending, m)
		s.mu.Unlock()
		return
	}
	s.rememberLocked(m.ID)
	s.mu.Unlock()

	s.appendMessage(m)
}

// rememberLocked records id and reports whether it was new.
func (s *Session) rememberLocked(id string) bool {
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	if len(s.order) > seenLimit {
		delete(s.seen, s.order[0])
		s.order = s.order[1:]
	}
	return true
}

func (s *Session) appendMessage(m models.Message) {
	from := string(m.SenderRole)
	if s.deps.Directory != nil {
		if p, err := s.deps.Directory.Lookup(context.Background(), m.SenderID); err == nil {
			from = p.Name
		}
	}

	scope := "direct"
	prefix := "Message from " + from
	switch {
	case m.TeamID != nil && *m.TeamID != "":
		scope = "team"
		prefix = from + " in team chat"
	case !m.Directed():
		scope = "role"
		prefix = fmt.Sprintf("%s to all %s", from, m.ReceiverRole.Plural())
	}

	s.transcript.Append(transcript.OriginRealtime, prefix+": "+m.Content, map[string]string{
		"message_id": m.ID,
		"sender_id":  m.SenderID,
		"scope":      scope,
	})
}

// Roster returns who is online on the session's presence channel.
func (s *Session) Roster() []realtime.PresenceRecord {
	if s.presence == nil {
		return nil
	}
	return s.presence.Roster()
}

func (s *Session) OnlineCount() int {
	if s.presence == nil {
		return 0
	}
	return s.presence.OnlineCount()
}

// Close releases subscriptions and presence. Calling it again is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var errs []string
	for _, sub := range s.subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if s.presence != nil {
		if err := s.presence.Release(ctx); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close session: %s", strings.Join(errs, "; "))
	}
	return nil
}

func render(res command.Result) string {
	var b strings.Builder
	b.WriteString(res.Message)
	if !res.Success && res.Usage != "" {
		fmt.Fprintf(&b, "\nUsage: %s", res.Usage)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "\nNote: %s", w)
	}
	for _, r := range res.Resources {
		fmt.Fprintf(&b, "\n- %s: %s", r.Title, r.URL)
	}
	return b.String()
}

func resultMetadata(res command.Result) map[string]string {
	md := map[string]string{"success": fmt.Sprint(res.Success)}
	if res.Command != "" {
		md["command"] = res.Command
	}
	if res.Kind != "" {
		md["kind"] = string(res.Kind)
	}
	return md
}

func roleName(r models.Role) string {
	if r == "" {
		return "no role"
	}
	return string(r)
}
