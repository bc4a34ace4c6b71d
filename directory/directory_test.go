package directory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"launchpad/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	profiles []models.Profile
	calls    int32
	err      error
}

func (f *fakeSource) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Profile(nil), f.profiles...), nil
}

var people = []models.Profile{
	{ID: "1", Name: "Alice Martin", Role: models.RoleBuilder, Skills: "Go, Postgres", Bio: "backend engineer"},
	{ID: "2", Name: "Bob Stone", Role: models.RoleMentor, Skills: "fundraising, sales", Bio: "two exits"},
	{ID: "3", Name: "Alicia Keys", Role: models.RoleMentor, Skills: "design, UX research"},
	{ID: "4", Name: "Al", Role: models.RoleLead, Skills: "go, growth"},
}

func TestActorsCachesWithinStaleness(t *testing.T) {
	src := &fakeSource{profiles: people}
	d := New(src, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	_, err := d.Actors(context.Background())
	require.NoError(t, err)
	_, err = d.Actors(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&src.calls))

	now = now.Add(2 * time.Minute)
	_, err = d.Actors(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&src.calls))

	d.Invalidate()
	_, err = d.Actors(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&src.calls))
}

func TestActorsServesStaleSnapshotOnFailure(t *testing.T) {
	src := &fakeSource{profiles: people}
	d := New(src, time.Nanosecond)

	first, err := d.Actors(context.Background())
	require.NoError(t, err)

	src.err = errors.New("db down")
	again, err := d.Actors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, again)

	empty := New(&fakeSource{err: errors.New("db down")}, time.Minute)
	_, err = empty.Actors(context.Background())
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		wantErr error
	}{
		{"@Bob", "2", nil},
		{"bob stone", "2", nil},
		{"@al", "4", nil},     // exact match beats substrings
		{"ali", "", ErrAmbiguous},
		{"alicia", "3", nil},
		{"@Zed", "", ErrNotFound},
		{"@", "", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := resolve(people, tt.name)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.ID)
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	d := New(&fakeSource{profiles: people}, time.Minute)
	for i := 0; i < 5; i++ {
		p, err := d.Resolve(context.Background(), "@Bob")
		require.NoError(t, err)
		assert.Equal(t, "2", p.ID)
	}
}

func TestFind(t *testing.T) {
	hits := Find(people, "go", 5)
	var names []string
	for _, h := range hits {
		names = append(names, h.Profile.Name)
	}
	assert.Equal(t, []string{"Al", "Alice Martin"}, names)

	hits = Find(people, "exits", 5)
	require.Len(t, hits, 1)
	assert.Equal(t, "Bob Stone", hits[0].Profile.Name)

	assert.Len(t, Find(people, "a", 2), 2)
	assert.Empty(t, Find(people, "  ", 5))
}

func TestConnectRanksBySkillOverlap(t *testing.T) {
	hits := Connect(people, "go growth", "", 5)
	require.NotEmpty(t, hits)
	assert.Equal(t, "Al", hits[0].Profile.Name)
	assert.Equal(t, 2, hits[0].Score)

	hits = Connect(people, "go growth", "4", 5)
	require.Len(t, hits, 1)
	assert.Equal(t, "Alice Martin", hits[0].Profile.Name)
}
