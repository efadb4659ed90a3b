// Package actions defines the pluggable unit-of-work contract executed when
// a workflow state is entered or exited, the registry mapping action-type
// identifiers to implementations, and the built-in action set.
package actions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orvane/docflow-backend/internal/types"
)

// Field types for action configuration schemas.
const (
	FieldTypeTemplate = "template"
	FieldTypeText     = "text"
	FieldTypeInteger  = "integer"
	FieldTypeBoolean  = "boolean"
)

// FieldSpec describes one configurable field of an action type. Template
// fields are rendered through the expression evaluator before execution.
type FieldSpec struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// ExecContext is the state surrounding one action execution.
type ExecContext struct {
	Tx       *gorm.DB
	Document *types.Document
	Instance *types.WorkflowInstance
	UserID   *uuid.UUID
}

// Action is the plug-in contract. New action types register under a stable
// identifier referenced by StateAction.ActionType.
type Action interface {
	Type() string
	Fields() []FieldSpec
	Execute(ctx context.Context, rendered map[string]string, ec *ExecContext) error
}

// LaunchEnqueuer lets the workflow-launch action hand additional launches to
// the Launcher without a package cycle.
type LaunchEnqueuer interface {
	EnqueueLaunch(ctx context.Context, documentID uuid.UUID, templateNames []string)
}

// Messenger delivers user messages. Delivery mechanics live outside the
// engine; tests inject fakes.
type Messenger interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
}
