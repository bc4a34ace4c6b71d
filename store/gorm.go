package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"launchpad/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

func (s *GormStore) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return models.Profile{}, notFound(err, "profile")
	}
	return profile, nil
}

func (s *GormStore) ListTeams(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	if err := s.db.WithContext(ctx).Preload("Members").Order("name ASC").Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

func (s *GormStore) GetTeam(ctx context.Context, id string) (models.Team, error) {
	var team models.Team
	if err := s.db.WithContext(ctx).Preload("Members").First(&team, "id = ?", id).Error; err != nil {
		return models.Team{}, notFound(err, "team")
	}
	return team, nil
}

func (s *GormStore) UpdateTeam(ctx context.Context, id string, patch map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.Team{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return fmt.Errorf("failed to update team %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) InsertUpdate(ctx context.Context, u *models.Update) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to insert update: %w", err)
	}
	return nil
}

func (s *GormStore) ListUpdates(ctx context.Context, f UpdateFilter) ([]models.Update, error) {
	q := s.db.WithContext(ctx).Model(&models.Update{})
	if f.TeamID != "" {
		q = q.Where("team_id = ?", f.TeamID)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var updates []models.Update
	if err := q.Order("created_at DESC").Find(&updates).Error; err != nil {
		return nil, fmt.Errorf("failed to list updates: %w", err)
	}
	return updates, nil
}

func (s *GormStore) UpsertTeamStatus(ctx context.Context, st *models.TeamStatus) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_status", "updated_by", "updated_at"}),
	}).Create(st).Error
	if err != nil {
		return fmt.Errorf("failed to upsert team status: %w", err)
	}
	return nil
}

func (s *GormStore) GetTeamStatus(ctx context.Context, teamID string) (models.TeamStatus, error) {
	var st models.TeamStatus
	if err := s.db.WithContext(ctx).First(&st, "team_id = ?", teamID).Error; err != nil {
		return models.TeamStatus{}, notFound(err, "team status")
	}
	return st, nil
}

func (s *GormStore) InsertMessages(ctx context.Context, msgs []*models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(msgs, 100).Error; err != nil {
		return fmt.Errorf("failed to insert messages: %w", err)
	}
	return nil
}

func (s *GormStore) ListMessages(ctx context.Context, f MessageFilter) ([]models.Message, error) {
	q := s.db.WithContext(ctx).Model(&models.Message{})

	visible := s.db.Where("1 = 0")
	if f.ReceiverID != "" {
		visible = visible.Or("receiver_id = ?", f.ReceiverID)
	}
	if f.TeamID != "" {
		visible = visible.Or("receiver_id IS NULL AND team_id = ?", f.TeamID)
	}
	if f.Role != "" {
		visible = visible.Or("receiver_id IS NULL AND team_id IS NULL AND receiver_role = ?", f.Role)
	}
	q = q.Where(visible)

	if f.UnreadOnly {
		q = q.Where("read_at IS NULL")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var msgs []models.Message
	if err := q.Order("created_at DESC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

func (s *GormStore) MarkMessageRead(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark message read: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up message: %w", err)
	}
	if count == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
