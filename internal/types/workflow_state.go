package types

import (
	"time"

	"github.com/google/uuid"
)

type WorkflowState struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID  uuid.UUID          `gorm:"type:uuid;not null;index" json:"template_id"`
	Label       string             `gorm:"not null" json:"label"`
	Initial     bool               `gorm:"not null;default:false" json:"initial"`
	Completion  int                `gorm:"not null;default:0" json:"completion"`
	Actions     []*StateAction     `gorm:"constraint:OnDelete:CASCADE;foreignKey:StateID;references:ID" json:"actions,omitempty"`
	Escalations []*StateEscalation `gorm:"constraint:OnDelete:CASCADE;foreignKey:StateID;references:ID" json:"escalations,omitempty"`
	CreatedAt   time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"not null" json:"updated_at"`
}

func (WorkflowState) TableName() string { return "workflow_state" }

// ActionsFor returns the enabled actions for one execution phase,
// in declared order.
func (s *WorkflowState) ActionsFor(when string) []*StateAction {
	var out []*StateAction
	for _, a := range s.Actions {
		if a != nil && a.Enabled && a.When == when {
			out = append(out, a)
		}
	}
	return out
}
