package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"launchpad/models"
	"launchpad/store"
)

// TeamReport loads a team's recent activity from s and scores it.
func TeamReport(ctx context.Context, s store.Store, team models.Team, now time.Time) (Report, error) {
	recent, err := s.ListUpdates(ctx, store.UpdateFilter{TeamID: team.ID, Since: now.Add(-RecentWindow)})
	if err != nil {
		return Report{}, fmt.Errorf("load updates for %s: %w", team.Name, err)
	}

	var last *time.Time
	if len(recent) > 0 {
		t := recent[0].CreatedAt
		last = &t
	} else {
		latest, err := s.ListUpdates(ctx, store.UpdateFilter{TeamID: team.ID, Limit: 1})
		if err != nil {
			return Report{}, fmt.Errorf("load latest update for %s: %w", team.Name, err)
		}
		if len(latest) > 0 {
			t := latest[0].CreatedAt
			last = &t
		}
	}

	return Score(Input{
		Team:          team,
		MemberCount:   len(team.Members),
		RecentUpdates: len(recent),
		LastUpdate:    last,
		Now:           now,
	}), nil
}

// Overall scores every team, weakest first.
func Overall(ctx context.Context, s store.Store, now time.Time) ([]Report, error) {
	teams, err := s.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	reports := make([]Report, 0, len(teams))
	for _, team := range teams {
		r, err := TeamReport(ctx, s, team, now)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].Score != reports[j].Score {
			return reports[i].Score < reports[j].Score
		}
		return reports[i].TeamName < reports[j].TeamName
	})
	return reports, nil
}

// Average is the mean score across reports, 0 when empty.
func Average(reports []Report) int {
	if len(reports) == 0 {
		return 0
	}
	total := 0
	for _, r := range reports {
		total += r.Score
	}
	return total / len(reports)
}
