package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orvane/docflow-backend/internal/actions"
	"github.com/orvane/docflow-backend/internal/expr"
	"github.com/orvane/docflow-backend/internal/locks"
	"github.com/orvane/docflow-backend/internal/repos"
	"github.com/orvane/docflow-backend/internal/testutil"
	"github.com/orvane/docflow-backend/internal/types"
)

type testEnv struct {
	db        *gorm.DB
	documents repos.DocumentRepo
	templates repos.WorkflowTemplateRepo
	instances repos.WorkflowInstanceRepo
	logs      repos.WorkflowLogRepo
	errorLog  repos.ActionErrorLogRepo
	registry  *actions.Registry
	runner    *actions.Runner
	engine    *Engine
	launcher  *Launcher
}

func newTestEnv(t *testing.T, mode string) *testEnv {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.OpenDB(t)

	env := &testEnv{
		db:        db,
		documents: repos.NewDocumentRepo(db, log),
		templates: repos.NewWorkflowTemplateRepo(db, log),
		instances: repos.NewWorkflowInstanceRepo(db, log),
		logs:      repos.NewWorkflowLogRepo(db, log),
		errorLog:  repos.NewActionErrorLogRepo(db, log),
		registry:  actions.NewRegistry(),
	}
	evaluator := expr.NewTemplateEvaluator()
	env.runner = actions.NewRunner(env.registry, evaluator, env.errorLog, log, mode)
	env.engine = NewEngine(log, env.instances, env.logs, evaluator, env.runner, locks.NewLocalLocker(3*time.Second), nil)
	env.launcher = NewLauncher(log, env.templates, env.instances, env.documents, env.runner)
	return env
}

// recordAction is a registry entry that remembers every execution.
type recordAction struct {
	mu    sync.Mutex
	name  string
	calls []map[string]string
	fail  error
}

func (a *recordAction) Type() string { return a.name }

func (a *recordAction) Fields() []actions.FieldSpec {
	return []actions.FieldSpec{
		{Name: "note", Label: "Note", Type: actions.FieldTypeTemplate},
	}
}

func (a *recordAction) Execute(_ context.Context, rendered map[string]string, _ *actions.ExecContext) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, rendered)
	return a.fail
}

func (a *recordAction) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

type approvalFixture struct {
	docType  *types.DocumentType
	doc      *types.Document
	template *types.WorkflowTemplate
	draft    *types.WorkflowState
	review   *types.WorkflowState
	approved *types.WorkflowState
	submit   *types.WorkflowTransition
	approve  *types.WorkflowTransition
	reject   *types.WorkflowTransition
}

// seedApproval persists the canonical three-state approval workflow:
// Draft -> Review -> Approved, with Reject returning Review to Draft.
func seedApproval(t *testing.T, env *testEnv) *approvalFixture {
	t.Helper()
	ctx := context.Background()

	docType, err := env.documents.CreateType(ctx, nil, &types.DocumentType{ID: uuid.New(), Label: "Invoice"})
	if err != nil {
		t.Fatalf("CreateType: %v", err)
	}
	doc, err := env.documents.Create(ctx, nil, &types.Document{
		ID:             uuid.New(),
		DocumentTypeID: docType.ID,
		Label:          "INV-1001",
	})
	if err != nil {
		t.Fatalf("Create document: %v", err)
	}

	tplID := uuid.New()
	draft := &types.WorkflowState{ID: uuid.New(), TemplateID: tplID, Label: "Draft", Initial: true}
	review := &types.WorkflowState{ID: uuid.New(), TemplateID: tplID, Label: "Review", Completion: 50}
	approved := &types.WorkflowState{ID: uuid.New(), TemplateID: tplID, Label: "Approved", Completion: 100}

	submit := &types.WorkflowTransition{
		ID: uuid.New(), TemplateID: tplID, Label: "Submit",
		OriginStateID: draft.ID, DestinationStateID: review.ID, Ordering: 0,
	}
	approve := &types.WorkflowTransition{
		ID: uuid.New(), TemplateID: tplID, Label: "Approve",
		OriginStateID: review.ID, DestinationStateID: approved.ID, Ordering: 1,
	}
	reject := &types.WorkflowTransition{
		ID: uuid.New(), TemplateID: tplID, Label: "Reject",
		OriginStateID: review.ID, DestinationStateID: draft.ID, Ordering: 2,
	}

	tpl := &types.WorkflowTemplate{
		ID:            tplID,
		InternalName:  "invoice-approval",
		Label:         "Invoice Approval",
		AutoLaunch:    true,
		DocumentTypes: []*types.DocumentType{docType},
		States:        []*types.WorkflowState{draft, review, approved},
		Transitions:   []*types.WorkflowTransition{submit, approve, reject},
	}
	if _, err := env.templates.Create(ctx, nil, tpl); err != nil {
		t.Fatalf("Create template: %v", err)
	}

	return &approvalFixture{
		docType: docType, doc: doc, template: tpl,
		draft: draft, review: review, approved: approved,
		submit: submit, approve: approve, reject: reject,
	}
}

// launchInstance creates an instance directly and reloads it with the full
// template graph.
func launchInstance(t *testing.T, env *testEnv, fx *approvalFixture) *types.WorkflowInstance {
	t.Helper()
	ctx := context.Background()
	created, err := env.instances.Create(ctx, nil, &types.WorkflowInstance{
		TemplateID: fx.template.ID,
		DocumentID: fx.doc.ID,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Create instance: %v", err)
	}
	inst, err := env.instances.GetByID(ctx, nil, created.ID)
	if err != nil {
		t.Fatalf("GetByID instance: %v", err)
	}
	return inst
}

func currentStateLabel(t *testing.T, env *testEnv, instanceID uuid.UUID) string {
	t.Helper()
	ctx := context.Background()
	inst, err := env.instances.GetByID(ctx, nil, instanceID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	state, err := env.engine.CurrentState(ctx, inst)
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	return state.Label
}
