package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/orvane/docflow-backend/internal/repos"
)

// DocumentEditAction sets a document's label and/or description from
// rendered templates.
type DocumentEditAction struct {
	documents repos.DocumentRepo
}

func (a *DocumentEditAction) Type() string { return "document.edit" }

func (a *DocumentEditAction) Fields() []FieldSpec {
	return []FieldSpec{
		{Name: "label", Label: "Document label", Type: FieldTypeTemplate},
		{Name: "description", Label: "Document description", Type: FieldTypeTemplate},
	}
}

func (a *DocumentEditAction) Execute(ctx context.Context, rendered map[string]string, ec *ExecContext) error {
	if ec == nil || ec.Document == nil {
		return fmt.Errorf("document.edit: no document in context")
	}
	updates := map[string]interface{}{}
	if label, ok := rendered["label"]; ok && strings.TrimSpace(label) != "" {
		updates["label"] = strings.TrimSpace(label)
	}
	if desc, ok := rendered["description"]; ok && desc != "" {
		updates["description"] = desc
	}
	if len(updates) == 0 {
		return nil
	}
	return a.documents.UpdateFields(ctx, ec.Tx, ec.Document.ID, updates)
}
