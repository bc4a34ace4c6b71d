package command

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"launchpad/directory"
	"launchpad/models"
	"launchpad/oracle"
	"launchpad/store"

	"github.com/sirupsen/logrus"
)

var fixedNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type fakeOracle struct {
	err   error
	calls atomic.Int32
	last  string
}

func (f *fakeOracle) Answer(ctx context.Context, query string, role models.Role, c oracle.Context) (oracle.Answer, error) {
	f.calls.Add(1)
	f.last = query
	if f.err != nil {
		return oracle.Answer{}, f.err
	}
	return oracle.Answer{
		Text:      "answer for " + string(role),
		Resources: []oracle.Resource{{Title: "Guide", URL: "https://example.com/guide"}},
	}, nil
}

// flakyStore fails selected writes on top of a MemoryStore.
type flakyStore struct {
	*store.MemoryStore
	failStatus   bool
	failMessages bool
}

func (f *flakyStore) UpsertTeamStatus(ctx context.Context, st *models.TeamStatus) error {
	if f.failStatus {
		return errors.New("status table locked")
	}
	return f.MemoryStore.UpsertTeamStatus(ctx, st)
}

func (f *flakyStore) InsertMessages(ctx context.Context, msgs []*models.Message) error {
	if f.failMessages {
		return errors.New("connection reset by peer")
	}
	return f.MemoryStore.InsertMessages(ctx, msgs)
}

type fixture struct {
	mem    *store.MemoryStore
	store  *flakyStore
	oracle *fakeOracle
	d      *Dispatcher

	rocket, nebula models.Team
	alice, alicia  models.Profile
	bob, carol     models.Profile
	dan, gina, una models.Profile
}

func strPtr(s string) *string { return &s }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemoryStore()
	mem.SetClock(func() time.Time { return fixedNow })

	f := &fixture{mem: mem, store: &flakyStore{MemoryStore: mem}, oracle: &fakeOracle{}}
	f.rocket = mem.PutTeam(models.Team{ID: "T1", Name: "Rocket", Stage: models.StageMVP})
	f.nebula = mem.PutTeam(models.Team{ID: "T2", Name: "Nebula", Stage: models.StageGrowth})

	f.alice = mem.PutProfile(models.Profile{ID: "u-alice", Name: "Alice", Role: models.RoleBuilder, TeamID: strPtr("T1"), Skills: "go, react"})
	f.alicia = mem.PutProfile(models.Profile{ID: "u-alicia", Name: "Alicia Keys", Role: models.RoleBuilder, TeamID: strPtr("T2"), Skills: "design"})
	f.bob = mem.PutProfile(models.Profile{ID: "u-bob", Name: "Bob", Role: models.RoleBuilder, TeamID: strPtr("T1"), Skills: "sales"})
	f.carol = mem.PutProfile(models.Profile{ID: "u-carol", Name: "Carol", Role: models.RoleMentor, Skills: "pricing, go", Bio: "Ex-founder, B2B SaaS"})
	f.dan = mem.PutProfile(models.Profile{ID: "u-dan", Name: "Dan", Role: models.RoleLead, TeamID: strPtr("T1")})
	f.gina = mem.PutProfile(models.Profile{ID: "u-gina", Name: "Gina", Role: models.RoleGuest})
	f.una = mem.PutProfile(models.Profile{ID: "u-una", Name: "Una", Role: models.RoleUnassigned})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dir := directory.New(f.store, time.Minute)
	f.d = NewDispatcher(Builtins(), f.store, dir, f.oracle, logrus.NewEntry(logger))
	f.d.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) run(raw string, p models.Profile) Result {
	return f.d.Run(context.Background(), raw, ActorFromProfile(p))
}

// writes counts every record this package can create or change.
func (f *fixture) writes(t *testing.T) int {
	t.Helper()
	n := len(f.mem.Messages()) + len(f.mem.Updates())
	teams, _ := f.mem.ListTeams(context.Background())
	for _, team := range teams {
		if _, err := f.mem.GetTeamStatus(context.Background(), team.ID); err == nil {
			n++
		}
		if team.ID == "T1" && team.Stage != models.StageMVP {
			n++
		}
		if team.ID == "T2" && team.Stage != models.StageGrowth {
			n++
		}
	}
	return n
}
