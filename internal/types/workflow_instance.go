package types

import (
	"time"

	"github.com/google/uuid"
)

type WorkflowInstance struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_instance_template_document" json:"template_id"`
	Template   *WorkflowTemplate `gorm:"constraint:OnDelete:CASCADE;foreignKey:TemplateID;references:ID" json:"template,omitempty"`
	DocumentID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_instance_template_document" json:"document_id"`
	Document   *Document         `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"document,omitempty"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
}

func (WorkflowInstance) TableName() string { return "workflow_instance" }

type WorkflowLogEntry struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	InstanceID   uuid.UUID           `gorm:"type:uuid;not null;index" json:"instance_id"`
	TransitionID uuid.UUID           `gorm:"type:uuid;not null" json:"transition_id"`
	Transition   *WorkflowTransition `gorm:"constraint:OnDelete:CASCADE;foreignKey:TransitionID;references:ID" json:"transition,omitempty"`
	UserID       *uuid.UUID          `gorm:"type:uuid" json:"user_id,omitempty"`
	Comment      string              `gorm:"type:text" json:"comment"`
	CreatedAt    time.Time           `gorm:"not null;index" json:"created_at"`
}

func (WorkflowLogEntry) TableName() string { return "workflow_instance_log_entry" }
