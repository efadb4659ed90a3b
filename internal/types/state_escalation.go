package types

import (
	"time"

	"github.com/google/uuid"
)

// Dwell-time units for escalations.
const (
	EscalationUnitMinutes = "minutes"
	EscalationUnitHours   = "hours"
	EscalationUnitDays    = "days"
)

type StateEscalation struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	StateID      uuid.UUID           `gorm:"type:uuid;not null;index" json:"state_id"`
	TransitionID uuid.UUID           `gorm:"type:uuid;not null;index" json:"transition_id"`
	Transition   *WorkflowTransition `gorm:"constraint:OnDelete:CASCADE;foreignKey:TransitionID;references:ID" json:"transition,omitempty"`
	Priority     int                 `gorm:"not null;default:0;index" json:"priority"`
	Enabled      bool                `gorm:"not null;default:true" json:"enabled"`
	Unit         string              `gorm:"not null;default:'days'" json:"unit"`
	Amount       int                 `gorm:"not null;default:1" json:"amount"`
	Condition    string              `gorm:"type:text" json:"condition"`
	Comment      string              `gorm:"type:text" json:"comment"`
	CreatedAt    time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"not null" json:"updated_at"`
}

func (StateEscalation) TableName() string { return "workflow_state_escalation" }

// Dwell converts the configured unit+amount into a duration. Unknown units
// fall back to days.
func (e *StateEscalation) Dwell() time.Duration {
	amount := time.Duration(e.Amount)
	switch e.Unit {
	case EscalationUnitMinutes:
		return amount * time.Minute
	case EscalationUnitHours:
		return amount * time.Hour
	default:
		return amount * 24 * time.Hour
	}
}
