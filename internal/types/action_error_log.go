package types

import (
	"time"

	"github.com/google/uuid"
)

// Owner kinds for action error log entries.
const (
	ErrorLogOwnerAction     = "action"
	ErrorLogOwnerEscalation = "escalation"
)

// ActionErrorLog is a rolling per-action (or per-escalation) record of failed
// executions. The whole log for an owner is cleared on its next successful
// execution.
type ActionErrorLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerKind string    `gorm:"not null;index:idx_action_error_owner" json:"owner_kind"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index:idx_action_error_owner" json:"owner_id"`
	ErrorName string    `gorm:"not null" json:"error_name"`
	ErrorText string    `gorm:"type:text" json:"error_text"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ActionErrorLog) TableName() string { return "workflow_action_error_log" }
