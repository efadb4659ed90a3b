package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Execution phases for state actions.
const (
	WhenOnEntry = "on-entry"
	WhenOnExit  = "on-exit"
)

type StateAction struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StateID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"state_id"`
	Label         string         `gorm:"not null" json:"label"`
	Enabled       bool           `gorm:"not null;default:true" json:"enabled"`
	When          string         `gorm:"not null;default:'on-entry'" json:"when"`
	ActionType    string         `gorm:"not null;index" json:"action_type"`
	Configuration datatypes.JSON `gorm:"type:jsonb" json:"configuration,omitempty"`
	Condition     string         `gorm:"type:text" json:"condition"`
	Ordering      int            `gorm:"not null;default:0" json:"ordering"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (StateAction) TableName() string { return "workflow_state_action" }
