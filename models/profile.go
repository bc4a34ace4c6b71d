package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is a program participant as seen by the actor directory.
type Profile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"not null;index" json:"name"`
	Email     string    `gorm:"uniqueIndex" json:"email"`
	Role      Role      `gorm:"not null;default:'unassigned';index" json:"role"`
	TeamID    *string   `gorm:"size:36;index" json:"team_id,omitempty"`
	Skills    string    `json:"skills"` // comma separated
	Bio       string    `gorm:"type:text" json:"bio"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Team *Team `gorm:"foreignKey:TeamID" json:"-"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// SkillList splits Skills into trimmed, non-empty entries.
func (p Profile) SkillList() []string {
	var skills []string
	for _, s := range strings.Split(p.Skills, ",") {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

// TeamIDValue returns the team id or "" when the profile has no team.
func (p Profile) TeamIDValue() string {
	if p.TeamID == nil {
		return ""
	}
	return *p.TeamID
}
