package types

import (
	"time"

	"github.com/google/uuid"
)

type WorkflowTemplate struct {
	ID            uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	InternalName  string                `gorm:"not null;uniqueIndex" json:"internal_name"`
	Label         string                `gorm:"not null" json:"label"`
	AutoLaunch    bool                  `gorm:"not null;default:false" json:"auto_launch"`
	DocumentTypes []*DocumentType       `gorm:"many2many:workflow_template_document_type" json:"document_types,omitempty"`
	States        []*WorkflowState      `gorm:"constraint:OnDelete:CASCADE;foreignKey:TemplateID;references:ID" json:"states,omitempty"`
	Transitions   []*WorkflowTransition `gorm:"constraint:OnDelete:CASCADE;foreignKey:TemplateID;references:ID" json:"transitions,omitempty"`
	CreatedAt     time.Time             `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time             `gorm:"not null" json:"updated_at"`
}

func (WorkflowTemplate) TableName() string { return "workflow_template" }

// InitialState returns the state flagged initial, nil when States is not
// loaded or the template is malformed.
func (t *WorkflowTemplate) InitialState() *WorkflowState {
	for _, s := range t.States {
		if s != nil && s.Initial {
			return s
		}
	}
	return nil
}
