// Package analysis computes the deterministic team health score.
package analysis

import (
	"time"

	"launchpad/models"
)

// RecentWindow is the period update frequency is measured over.
const RecentWindow = 14 * 24 * time.Hour

const (
	LabelHealthy = "healthy"
	LabelWatch   = "watch"
	LabelAtRisk  = "at risk"
)

// Input is what the score is computed from.
type Input struct {
	Team          models.Team
	MemberCount   int
	RecentUpdates int        // updates inside RecentWindow
	LastUpdate    *time.Time // nil when the team never posted
	Now           time.Time
}

// Report is the scored outcome for one team.
type Report struct {
	TeamID           string  `json:"team_id"`
	TeamName         string  `json:"team_name"`
	Stage            string  `json:"stage"`
	Score            int     `json:"score"`
	Label            string  `json:"label"`
	MemberCount      int     `json:"member_count"`
	RecentUpdates    int     `json:"recent_updates"`
	DaysSinceUpdate  float64 `json:"days_since_update"` // -1 when never updated
	StalenessPenalty int     `json:"staleness_penalty"`
	FrequencyPenalty int     `json:"frequency_penalty"`
	SizePenalty      int     `json:"size_penalty"`
}

// Score applies the fixed formula: 100 minus staleness, frequency and team
// size penalties, clamped to 0..100.
func Score(in Input) Report {
	r := Report{
		TeamID:          in.Team.ID,
		TeamName:        in.Team.Name,
		Stage:           in.Team.Stage,
		MemberCount:     in.MemberCount,
		RecentUpdates:   in.RecentUpdates,
		DaysSinceUpdate: -1,
	}

	if in.LastUpdate == nil {
		r.StalenessPenalty = 40
	} else {
		days := in.Now.Sub(*in.LastUpdate).Hours() / 24
		if days < 0 {
			days = 0
		}
		r.DaysSinceUpdate = days
		switch {
		case days <= 2:
			r.StalenessPenalty = 0
		case days <= 7:
			r.StalenessPenalty = 15
		case days <= 14:
			r.StalenessPenalty = 30
		default:
			r.StalenessPenalty = 40
		}
	}

	switch {
	case in.RecentUpdates >= 5:
		r.FrequencyPenalty = 0
	case in.RecentUpdates >= 3:
		r.FrequencyPenalty = 10
	case in.RecentUpdates >= 1:
		r.FrequencyPenalty = 20
	default:
		r.FrequencyPenalty = 30
	}

	switch {
	case in.MemberCount >= 3:
		r.SizePenalty = 0
	case in.MemberCount == 2:
		r.SizePenalty = 10
	case in.MemberCount == 1:
		r.SizePenalty = 20
	default:
		r.SizePenalty = 30
	}

	score := 100 - r.StalenessPenalty - r.FrequencyPenalty - r.SizePenalty
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	r.Score = score
	r.Label = Label(score)
	return r
}

func Label(score int) string {
	switch {
	case score >= 80:
		return LabelHealthy
	case score >= 50:
		return LabelWatch
	}
	return LabelAtRisk
}
