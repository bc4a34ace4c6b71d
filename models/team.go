package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Team stages in the order a team moves through the program.
const (
	StageIdea       = "idea"
	StageValidation = "validation"
	StagePrototype  = "prototype"
	StageMVP        = "mvp"
	StageLaunch     = "launch"
	StageGrowth     = "growth"
)

var Stages = []string{StageIdea, StageValidation, StagePrototype, StageMVP, StageLaunch, StageGrowth}

// Team represents a startup team in the program
type Team struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"not null;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Stage       string    `gorm:"not null;default:'idea'" json:"stage"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Members []Profile `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Stage == "" {
		t.Stage = StageIdea
	}
	return nil
}

// StageIndex returns the zero-based position of stage, or -1 if it is unknown.
func StageIndex(stage string) int {
	for i, s := range Stages {
		if s == stage {
			return i
		}
	}
	return -1
}

// NextStage returns the stage after the team's current one.
func (t Team) NextStage() (string, bool) {
	i := StageIndex(t.Stage)
	if i < 0 || i+1 >= len(Stages) {
		return "", false
	}
	return Stages[i+1], true
}

// Update is one entry of a team's append-only progress log
type Update struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	TeamID    string    `gorm:"not null;size:36;index" json:"team_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedBy string    `gorm:"not null;size:36;index" json:"created_by"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (u *Update) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// TeamStatus is the per-team "current status" summary. Writes are last-write-wins.
type TeamStatus struct {
	TeamID        string    `gorm:"primaryKey;size:36" json:"team_id"`
	CurrentStatus string    `gorm:"type:text" json:"current_status"`
	UpdatedBy     string    `gorm:"size:36" json:"updated_by"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (TeamStatus) TableName() string { return "team_status" }
