package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a persisted chat or broadcast message.
// A nil ReceiverID means the message is addressed to a role or a team rather than one actor.
type Message struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	SenderID     string     `gorm:"not null;size:36;index" json:"sender_id"`
	SenderRole   Role       `gorm:"not null" json:"sender_role"`
	ReceiverID   *string    `gorm:"size:36;index" json:"receiver_id,omitempty"`
	ReceiverRole Role       `gorm:"not null;index" json:"receiver_role"`
	TeamID       *string    `gorm:"size:36;index" json:"team_id,omitempty"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Directed reports whether the message targets a single actor.
func (m Message) Directed() bool {
	return m.ReceiverID != nil && *m.ReceiverID != ""
}
