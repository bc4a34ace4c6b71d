package analysis

import (
	"context"
	"testing"
	"time"

	"launchpad/models"
	"launchpad/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time { t := now.Add(-d); return &t }

	tests := []struct {
		name  string
		in    Input
		score int
		label string
	}{
		{"active full team", Input{MemberCount: 4, RecentUpdates: 6, LastUpdate: ago(time.Hour)}, 100, LabelHealthy},
		{"quiet week", Input{MemberCount: 3, RecentUpdates: 3, LastUpdate: ago(5 * 24 * time.Hour)}, 75, LabelWatch},
		{"pair, one update", Input{MemberCount: 2, RecentUpdates: 1, LastUpdate: ago(10 * 24 * time.Hour)}, 40, LabelAtRisk},
		{"never updated solo", Input{MemberCount: 1}, 10, LabelAtRisk},
		{"empty team floors at zero", Input{MemberCount: 0, LastUpdate: ago(30 * 24 * time.Hour)}, 0, LabelAtRisk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Now = now
			r := Score(tt.in)
			assert.Equal(t, tt.score, r.Score)
			assert.Equal(t, tt.label, r.Label)
			assert.GreaterOrEqual(t, r.Score, 0)
			assert.LessOrEqual(t, r.Score, 100)
		})
	}
}

func TestScoreDeterministic(t *testing.T) {
	now := time.Now()
	last := now.Add(-72 * time.Hour)
	in := Input{MemberCount: 2, RecentUpdates: 4, LastUpdate: &last, Now: now}
	assert.Equal(t, Score(in), Score(in))
}

func TestOverallOrdersWeakestFirst(t *testing.T) {
	s := store.NewMemoryStore()
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	strong := s.PutTeam(models.Team{Name: "Strong"})
	weak := s.PutTeam(models.Team{Name: "Weak"})
	for i := 0; i < 3; i++ {
		id := strong.ID
		s.PutProfile(models.Profile{Name: string(rune('a' + i)), TeamID: &id})
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, s.InsertUpdate(ctx, &models.Update{
			TeamID: strong.ID, Content: "ship", CreatedBy: "x", CreatedAt: now.Add(-time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, s.InsertUpdate(ctx, &models.Update{
		TeamID: weak.ID, Content: "old", CreatedBy: "x", CreatedAt: now.Add(-40 * 24 * time.Hour),
	}))

	reports, err := Overall(ctx, s, now)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "Weak", reports[0].TeamName)
	assert.Equal(t, 0, reports[0].Score)
	assert.InDelta(t, 40, reports[0].DaysSinceUpdate, 0.01)
	assert.Equal(t, "Strong", reports[1].TeamName)
	assert.Equal(t, 100, reports[1].Score)
	assert.Equal(t, 50, Average(reports))
}
