package types

import (
	"time"

	"github.com/google/uuid"
)

type WorkflowTransition struct {
	ID                 uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID         uuid.UUID            `gorm:"type:uuid;not null;index" json:"template_id"`
	Label              string               `gorm:"not null" json:"label"`
	OriginStateID      uuid.UUID            `gorm:"type:uuid;not null;index" json:"origin_state_id"`
	OriginState        *WorkflowState       `gorm:"constraint:OnDelete:CASCADE;foreignKey:OriginStateID;references:ID" json:"origin_state,omitempty"`
	DestinationStateID uuid.UUID            `gorm:"type:uuid;not null;index" json:"destination_state_id"`
	DestinationState   *WorkflowState       `gorm:"constraint:OnDelete:CASCADE;foreignKey:DestinationStateID;references:ID" json:"destination_state,omitempty"`
	Condition          string               `gorm:"type:text" json:"condition"`
	Ordering           int                  `gorm:"not null;default:0" json:"ordering"`
	Fields             []*TransitionField   `gorm:"constraint:OnDelete:CASCADE;foreignKey:TransitionID;references:ID" json:"fields,omitempty"`
	Triggers           []*TransitionTrigger `gorm:"constraint:OnDelete:CASCADE;foreignKey:TransitionID;references:ID" json:"triggers,omitempty"`
	CreatedAt          time.Time            `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time            `gorm:"not null" json:"updated_at"`
}

func (WorkflowTransition) TableName() string { return "workflow_transition" }

// Transition field types mirror the form widgets the host application renders.
const (
	FieldTypeChar    = "char"
	FieldTypeInteger = "integer"
	FieldTypeBoolean = "boolean"
)

type TransitionField struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TransitionID uuid.UUID `gorm:"type:uuid;not null;index" json:"transition_id"`
	Name         string    `gorm:"not null" json:"name"`
	Label        string    `gorm:"not null" json:"label"`
	FieldType    string    `gorm:"not null;default:'char'" json:"field_type"`
	Required     bool      `gorm:"not null;default:false" json:"required"`
	Ordering     int       `gorm:"not null;default:0" json:"ordering"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (TransitionField) TableName() string { return "workflow_transition_field" }

type TransitionTrigger struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TransitionID uuid.UUID `gorm:"type:uuid;not null;index" json:"transition_id"`
	EventType    string    `gorm:"not null;index" json:"event_type"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (TransitionTrigger) TableName() string { return "workflow_transition_trigger" }
