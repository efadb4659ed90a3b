package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orvane/docflow-backend/internal/errs"
	"github.com/orvane/docflow-backend/internal/types"
)

func TestInstanceCreateDuplicateIsAlreadyLaunched(t *testing.T) {
	f := newRepoFixture(t)
	f.newInstance(t)

	_, err := f.instances.Create(context.Background(), nil, &types.WorkflowInstance{
		TemplateID: f.template.ID,
		DocumentID: f.doc.ID,
		CreatedAt:  time.Now().UTC(),
	})
	if !errors.Is(err, errs.ErrAlreadyLaunched) {
		t.Fatalf("want=ErrAlreadyLaunched got=%v", err)
	}
}

func TestInstanceGetByIDLoadsTemplateGraph(t *testing.T) {
	f := newRepoFixture(t)
	inst := f.newInstance(t)

	full, err := f.instances.GetByID(context.Background(), nil, inst.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if full.Template == nil || len(full.Template.States) != 3 || len(full.Template.Transitions) != 2 {
		t.Fatalf("template graph not loaded: %+v", full.Template)
	}
	if full.Document == nil || full.Document.ID != f.doc.ID {
		t.Fatalf("document not loaded")
	}
	if full.Document.DocumentType == nil || full.Document.DocumentType.Label != "Invoice" {
		t.Fatalf("document type not loaded")
	}

	if _, err := f.instances.GetByID(context.Background(), nil, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown id: want=ErrNotFound got=%v", err)
	}
}

func TestListEscalatableFiltersByEnabledEscalation(t *testing.T) {
	f := newRepoFixture(t)
	inst := f.newInstance(t)
	ctx := context.Background()

	ids, err := f.instances.ListEscalatable(ctx, nil)
	if err != nil {
		t.Fatalf("ListEscalatable: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("no escalations configured, got %d ids", len(ids))
	}

	esc := &types.StateEscalation{
		ID:           uuid.New(),
		StateID:      f.review.ID,
		TransitionID: f.approve.ID,
		Priority:     1,
		Enabled:      false,
		Unit:         types.EscalationUnitHours,
		Amount:       1,
	}
	if err := f.db.Create(esc).Error; err != nil {
		t.Fatalf("create escalation: %v", err)
	}

	ids, err = f.instances.ListEscalatable(ctx, nil)
	if err != nil {
		t.Fatalf("ListEscalatable: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("disabled escalation still matched: %v", ids)
	}

	if err := f.db.Model(esc).Update("enabled", true).Error; err != nil {
		t.Fatalf("enable escalation: %v", err)
	}
	ids, err = f.instances.ListEscalatable(ctx, nil)
	if err != nil {
		t.Fatalf("ListEscalatable: %v", err)
	}
	if len(ids) != 1 || ids[0] != inst.ID {
		t.Fatalf("escalatable ids: want=[%s] got=%v", inst.ID, ids)
	}
}

func TestDeleteByDocumentRemovesInstancesAndLog(t *testing.T) {
	f := newRepoFixture(t)
	inst := f.newInstance(t)
	ctx := context.Background()

	if _, err := f.logs.Append(ctx, nil, inst.ID, f.submit, nil, ""); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := f.instances.DeleteByDocument(ctx, nil, f.doc.ID); err != nil {
		t.Fatalf("DeleteByDocument: %v", err)
	}

	remaining, err := f.instances.ListByDocument(ctx, nil, f.doc.ID)
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("instances remain: %d", len(remaining))
	}

	var count int64
	if err := f.db.Model(&types.WorkflowLogEntry{}).Where("instance_id = ?", inst.ID).Count(&count).Error; err != nil {
		t.Fatalf("count log entries: %v", err)
	}
	if count != 0 {
		t.Fatalf("log entries remain: %d", count)
	}
}
