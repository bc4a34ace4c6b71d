package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"launchpad/models"

	"github.com/google/uuid"
)

// MemoryStore keeps every collection in process memory. It backs local demo
// runs (STORE_DRIVER=memory) and the package tests.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
	teams    map[string]models.Team
	updates  []models.Update
	statuses map[string]models.TeamStatus
	messages []models.Message
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]models.Profile),
		teams:    make(map[string]models.Team),
		statuses: make(map[string]models.TeamStatus),
		now:      time.Now,
	}
}

// SetClock overrides the time source used for CreatedAt stamps.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// PutProfile inserts or replaces a profile.
func (s *MemoryStore) PutProfile(p models.Profile) models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.profiles[p.ID] = p
	return p
}

// PutTeam inserts or replaces a team.
func (s *MemoryStore) PutTeam(t models.Team) models.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Stage == "" {
		t.Stage = models.StageIdea
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.teams[t.ID] = t
	return t
}

func (s *MemoryStore) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return models.Profile{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) ListTeams(ctx context.Context) ([]models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Team, 0, len(s.teams))
	for _, t := range s.teams {
		t.Members = s.membersLocked(t.ID)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetTeam(ctx context.Context, id string) (models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return models.Team{}, ErrNotFound
	}
	t.Members = s.membersLocked(id)
	return t, nil
}

func (s *MemoryStore) membersLocked(teamID string) []models.Profile {
	var members []models.Profile
	for _, p := range s.profiles {
		if p.TeamIDValue() == teamID {
			members = append(members, p)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members
}

func (s *MemoryStore) UpdateTeam(ctx context.Context, id string, patch map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range patch {
		switch k {
		case "stage":
			t.Stage = fmt.Sprint(v)
		case "name":
			t.Name = fmt.Sprint(v)
		case "description":
			t.Description = fmt.Sprint(v)
		default:
			return fmt.Errorf("unsupported team field %q", k)
		}
	}
	t.UpdatedAt = s.now()
	s.teams[id] = t
	return nil
}

func (s *MemoryStore) InsertUpdate(ctx context.Context, u *models.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.updates = append(s.updates, *u)
	return nil
}

// ListUpdates returns matching updates newest first.
func (s *MemoryStore) ListUpdates(ctx context.Context, f UpdateFilter) ([]models.Update, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Update
	for _, u := range s.updates {
		if f.TeamID != "" && u.TeamID != f.TeamID {
			continue
		}
		if !f.Since.IsZero() && u.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) UpsertTeamStatus(ctx context.Context, st *models.TeamStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = s.now()
	}
	s.statuses[st.TeamID] = *st
	return nil
}

func (s *MemoryStore) GetTeamStatus(ctx context.Context, teamID string) (models.TeamStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[teamID]
	if !ok {
		return models.TeamStatus{}, ErrNotFound
	}
	return st, nil
}

func (s *MemoryStore) InsertMessages(ctx context.Context, msgs []*models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("message content is required")
		}
	}
	for _, m := range msgs {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = s.now()
		}
		s.messages = append(s.messages, *m)
	}
	return nil
}

// ListMessages returns visible messages newest first.
func (s *MemoryStore) ListMessages(ctx context.Context, f MessageFilter) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Message
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if !f.Visible(m) {
			continue
		}
		out = append(out, m)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkMessageRead(ctx context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID != id {
			continue
		}
		if s.messages[i].ReadAt != nil {
			return false, nil
		}
		s.messages[i].ReadAt = &at
		return true, nil
	}
	return false, ErrNotFound
}

// Messages returns a copy of every stored message in insertion order.
func (s *MemoryStore) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.messages...)
}

// Updates returns a copy of every stored update in insertion order.
func (s *MemoryStore) Updates() []models.Update {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Update(nil), s.updates...)
}
