package session

import (
	"context"
	"io"
	"testing"
	"time"

	"launchpad/command"
	"launchpad/directory"
	"launchpad/models"
	"launchpad/oracle"
	"launchpad/realtime"
	"launchpad/store"
	"launchpad/transcript"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func strPtr(s string) *string { return &s }

type env struct {
	hub  *realtime.Hub
	mem  *store.MemoryStore
	deps Deps

	alice, carol, dan models.Profile
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	entry := logrus.NewEntry(logger)

	e := &env{hub: realtime.NewHub(), mem: store.NewMemoryStore()}
	e.mem.PutTeam(models.Team{ID: "T1", Name: "Rocket"})
	e.alice = e.mem.PutProfile(models.Profile{ID: "u-alice", Name: "Alice", Role: models.RoleBuilder, TeamID: strPtr("T1")})
	e.carol = e.mem.PutProfile(models.Profile{ID: "u-carol", Name: "Carol", Role: models.RoleMentor})
	e.dan = e.mem.PutProfile(models.Profile{ID: "u-dan", Name: "Dan", Role: models.RoleLead})

	feed := store.WithFeed(e.mem, realtime.FeedPublisher{Transport: e.hub}, entry)
	dir := directory.New(e.mem, time.Minute)
	e.deps = Deps{
		Dispatcher: command.NewDispatcher(command.Builtins(), feed, dir, oracle.Offline{}, entry),
		Layer:      realtime.NewLayer(e.hub, entry),
		Directory:  dir,
		Logger:     entry,
	}
	t.Cleanup(e.hub.Close)
	return e
}

func (e *env) open(t *testing.T, p models.Profile) *Session {
	t.Helper()
	s, err := Open(context.Background(), e.deps, p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func entriesFrom(s *Session, origin transcript.Origin) []transcript.Entry {
	var out []transcript.Entry
	for _, e := range s.Transcript().Entries() {
		if e.Origin == origin {
			out = append(out, e)
		}
	}
	return out
}

func TestOpenGreets(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, e.alice)

	entries := s.Transcript().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, transcript.OriginSystem, entries[0].Origin)
	assert.Contains(t, entries[0].Content, "Alice")
}

func TestSubmitAppendsUserThenHandler(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, e.alice)

	res := s.Submit(context.Background(), "/update wired auth")
	require.True(t, res.Success)

	entries := s.Transcript().Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, transcript.OriginUser, entries[1].Origin)
	assert.Equal(t, "/update wired auth", entries[1].Content)
	assert.Equal(t, transcript.OriginHandler, entries[2].Origin)
	assert.Equal(t, "update", entries[2].Metadata["command"])
	assert.Equal(t, "true", entries[2].Metadata["success"])
}

func TestDirectMessageReachesRecipient(t *testing.T) {
	e := newEnv(t)
	alice := e.open(t, e.alice)
	carol := e.open(t, e.carol)

	res := carol.Submit(context.Background(), "/message @alice office hours moved to 3pm")
	require.True(t, res.Success)

	require.Eventually(t, func() bool {
		return len(entriesFrom(alice, transcript.OriginRealtime)) == 1
	}, time.Second, 5*time.Millisecond)

	got := entriesFrom(alice, transcript.OriginRealtime)[0]
	assert.Equal(t, "Message from Carol: office hours moved to 3pm", got.Content)
	assert.Equal(t, res.Effects.MessageIDs[0], got.Metadata["message_id"])
	assert.Empty(t, entriesFrom(carol, transcript.OriginRealtime))
}

func TestTeamChatReachesTeam(t *testing.T) {
	e := newEnv(t)
	alice := e.open(t, e.alice)
	carol := e.open(t, e.carol)

	teammate := e.mem.PutProfile(models.Profile{ID: "u-bob", Name: "Bob", Role: models.RoleBuilder, TeamID: strPtr("T1")})
	bob := e.open(t, teammate)

	require.True(t, bob.Submit(context.Background(), "/chat demo at noon").Success)

	require.Eventually(t, func() bool {
		return len(entriesFrom(alice, transcript.OriginRealtime)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "team", entriesFrom(alice, transcript.OriginRealtime)[0].Metadata["scope"])
	assert.Empty(t, entriesFrom(carol, transcript.OriginRealtime))
}

func TestOwnBroadcastIsNotRenderedTwice(t *testing.T) {
	e := newEnv(t)
	dan := e.open(t, e.dan)
	carol := e.open(t, e.carol)

	res := dan.Submit(context.Background(), `/broadcast "demo day friday"`)
	require.True(t, res.Success, res.Message)
	require.Len(t, res.Effects.MessageIDs, 3)

	// A later message on the same stream proves the echo was already processed.
	require.True(t, carol.Submit(context.Background(), "/message @dan got it").Success)
	require.Eventually(t, func() bool {
		return len(entriesFrom(dan, transcript.OriginRealtime)) == 1
	}, time.Second, 5*time.Millisecond)

	rt := entriesFrom(dan, transcript.OriginRealtime)
	assert.Equal(t, "Message from Carol: got it", rt[0].Content)
	require.Eventually(t, func() bool {
		return len(entriesFrom(carol, transcript.OriginRealtime)) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestPresenceRoster(t *testing.T) {
	e := newEnv(t)
	alice := e.open(t, e.alice)
	carol := e.open(t, e.carol)

	ids := func(s *Session) []string {
		var out []string
		for _, r := range s.Roster() {
			out = append(out, r.ActorID)
		}
		return out
	}

	require.Eventually(t, func() bool {
		return len(ids(alice)) == 2 && len(ids(carol)) == 2
	}, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{"u-alice", "u-carol"}, ids(alice))
	assert.ElementsMatch(t, []string{"u-alice", "u-carol"}, ids(carol))

	require.NoError(t, alice.Close(context.Background()))
	require.Eventually(t, func() bool {
		return carol.OnlineCount() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"u-carol"}, ids(carol))
}

func TestOpenDegradesWhenTransportIsDown(t *testing.T) {
	e := newEnv(t)
	e.hub.Close()

	s := e.open(t, e.alice)
	entries := s.Transcript().Entries()
	require.Len(t, entries, 2)
	assert.Contains(t, entries[1].Content, "unavailable")
	assert.Nil(t, s.Roster())

	res := s.Submit(context.Background(), "/help")
	assert.True(t, res.Success)
}

func TestCloseIsIdempotent(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, e.alice)
	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, s.Close(context.Background()))
}
