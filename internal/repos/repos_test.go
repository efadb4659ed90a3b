package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orvane/docflow-backend/internal/testutil"
	"github.com/orvane/docflow-backend/internal/types"
)

type repoFixture struct {
	db        *gorm.DB
	documents DocumentRepo
	templates WorkflowTemplateRepo
	instances WorkflowInstanceRepo
	logs      WorkflowLogRepo
	errorLog  ActionErrorLogRepo

	docType  *types.DocumentType
	doc      *types.Document
	template *types.WorkflowTemplate
	draft    *types.WorkflowState
	review   *types.WorkflowState
	submit   *types.WorkflowTransition
	approve  *types.WorkflowTransition
}

func newRepoFixture(t *testing.T) *repoFixture {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.OpenDB(t)
	ctx := context.Background()

	f := &repoFixture{
		db:        db,
		documents: NewDocumentRepo(db, log),
		templates: NewWorkflowTemplateRepo(db, log),
		instances: NewWorkflowInstanceRepo(db, log),
		logs:      NewWorkflowLogRepo(db, log),
		errorLog:  NewActionErrorLogRepo(db, log),
	}

	var err error
	f.docType, err = f.documents.CreateType(ctx, nil, &types.DocumentType{ID: uuid.New(), Label: "Invoice"})
	if err != nil {
		t.Fatalf("CreateType: %v", err)
	}
	f.doc, err = f.documents.Create(ctx, nil, &types.Document{
		ID:             uuid.New(),
		DocumentTypeID: f.docType.ID,
		Label:          "INV-1001",
	})
	if err != nil {
		t.Fatalf("Create document: %v", err)
	}

	tplID := uuid.New()
	f.draft = &types.WorkflowState{ID: uuid.New(), TemplateID: tplID, Label: "Draft", Initial: true}
	f.review = &types.WorkflowState{ID: uuid.New(), TemplateID: tplID, Label: "Review"}
	approved := &types.WorkflowState{ID: uuid.New(), TemplateID: tplID, Label: "Approved", Completion: 100}
	f.submit = &types.WorkflowTransition{
		ID: uuid.New(), TemplateID: tplID, Label: "Submit",
		OriginStateID: f.draft.ID, DestinationStateID: f.review.ID, Ordering: 0,
	}
	f.approve = &types.WorkflowTransition{
		ID: uuid.New(), TemplateID: tplID, Label: "Approve",
		OriginStateID: f.review.ID, DestinationStateID: approved.ID, Ordering: 1,
	}
	f.template = &types.WorkflowTemplate{
		ID:            tplID,
		InternalName:  "invoice-approval",
		Label:         "Invoice Approval",
		AutoLaunch:    true,
		DocumentTypes: []*types.DocumentType{f.docType},
		States:        []*types.WorkflowState{f.draft, f.review, approved},
		Transitions:   []*types.WorkflowTransition{f.submit, f.approve},
	}
	if _, err := f.templates.Create(ctx, nil, f.template); err != nil {
		t.Fatalf("Create template: %v", err)
	}
	return f
}

func (f *repoFixture) newInstance(t *testing.T) *types.WorkflowInstance {
	t.Helper()
	inst, err := f.instances.Create(context.Background(), nil, &types.WorkflowInstance{
		TemplateID: f.template.ID,
		DocumentID: f.doc.ID,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Create instance: %v", err)
	}
	return inst
}
