package workflow

import (
	"github.com/google/uuid"

	"github.com/orvane/docflow-backend/internal/types"
)

// evalContext builds the map handed to the expression evaluator for
// conditions and action fields. Templates address it as
// {{ .document.label }} or {{ .workflow_instance.document.label }}.
func evalContext(inst *types.WorkflowInstance, currentState *types.WorkflowState) map[string]any {
	doc := map[string]any{}
	if inst != nil && inst.Document != nil {
		doc["id"] = inst.Document.ID.String()
		doc["label"] = inst.Document.Label
		doc["description"] = inst.Document.Description
		if inst.Document.DocumentType != nil {
			doc["type"] = inst.Document.DocumentType.Label
		}
	}
	wi := map[string]any{"document": doc}
	if inst != nil {
		wi["id"] = inst.ID.String()
		wi["created_at"] = inst.CreatedAt
		if inst.Template != nil {
			wi["workflow"] = inst.Template.InternalName
		}
	}
	if currentState != nil {
		wi["state"] = currentState.Label
		wi["completion"] = currentState.Completion
	}
	return map[string]any{
		"document":          doc,
		"workflow_instance": wi,
	}
}

// stateByID finds a state inside a loaded template.
func stateByID(tpl *types.WorkflowTemplate, id uuid.UUID) *types.WorkflowState {
	if tpl == nil {
		return nil
	}
	for _, s := range tpl.States {
		if s != nil && s.ID == id {
			return s
		}
	}
	return nil
}

// transitionByID finds a transition inside a loaded template.
func transitionByID(tpl *types.WorkflowTemplate, id uuid.UUID) *types.WorkflowTransition {
	if tpl == nil {
		return nil
	}
	for _, t := range tpl.Transitions {
		if t != nil && t.ID == id {
			return t
		}
	}
	return nil
}
