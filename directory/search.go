package directory

import (
	"sort"
	"strings"

	"launchpad/models"
)

// Match is one search hit.
type Match struct {
	Profile models.Profile `json:"profile"`
	Score   int            `json:"score"`
	Matched []string       `json:"matched,omitempty"`
}

// containsEither reports case-insensitive containment in either direction.
func containsEither(a, b string) bool {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Find matches query against name, skills and bio. Results are ordered by
// name and capped at limit.
func Find(actors []models.Profile, query string, limit int) []Match {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	var out []Match
	for _, p := range actors {
		var matched []string
		for _, s := range p.SkillList() {
			if containsEither(s, query) {
				matched = append(matched, s)
			}
		}
		nameHit := containsEither(p.Name, query)
		bioHit := strings.Contains(strings.ToLower(p.Bio), strings.ToLower(query))
		if len(matched) == 0 && !nameHit && !bioHit {
			continue
		}
		out = append(out, Match{Profile: p, Score: len(matched), Matched: matched})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Profile.Name < out[j].Profile.Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Connect ranks actors by how many of their skills overlap the query terms.
// excludeID drops the caller from the results.
func Connect(actors []models.Profile, query, excludeID string, limit int) []Match {
	terms := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '/'
	})
	if len(terms) == 0 {
		return nil
	}
	var out []Match
	for _, p := range actors {
		if p.ID == excludeID {
			continue
		}
		var matched []string
		for _, s := range p.SkillList() {
			for _, term := range terms {
				if containsEither(s, term) {
					matched = append(matched, s)
					break
				}
			}
		}
		if len(matched) == 0 {
			continue
		}
		out = append(out, Match{Profile: p, Score: len(matched), Matched: matched})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Profile.Name < out[j].Profile.Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
