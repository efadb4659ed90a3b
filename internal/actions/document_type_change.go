package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/orvane/docflow-backend/internal/repos"
)

// DocumentTypeChangeAction moves the document to another document type,
// looked up by label.
type DocumentTypeChangeAction struct {
	documents repos.DocumentRepo
}

func (a *DocumentTypeChangeAction) Type() string { return "document.typechange" }

func (a *DocumentTypeChangeAction) Fields() []FieldSpec {
	return []FieldSpec{
		{Name: "type_label", Label: "Target document type", Type: FieldTypeTemplate, Required: true},
	}
}

func (a *DocumentTypeChangeAction) Execute(ctx context.Context, rendered map[string]string, ec *ExecContext) error {
	if ec == nil || ec.Document == nil {
		return fmt.Errorf("document.typechange: no document in context")
	}
	label := strings.TrimSpace(rendered["type_label"])
	if label == "" {
		return fmt.Errorf("document.typechange: empty type_label")
	}
	dt, err := a.documents.GetTypeByLabel(ctx, ec.Tx, label)
	if err != nil {
		return fmt.Errorf("document.typechange: lookup %q: %w", label, err)
	}
	return a.documents.UpdateFields(ctx, ec.Tx, ec.Document.ID, map[string]interface{}{
		"document_type_id": dt.ID,
	})
}
