package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/orvane/docflow-backend/internal/actions"
	"github.com/orvane/docflow-backend/internal/errs"
	"github.com/orvane/docflow-backend/internal/logger"
	"github.com/orvane/docflow-backend/internal/repos"
	"github.com/orvane/docflow-backend/internal/types"
)

type launchRequest struct {
	documentID    uuid.UUID
	templateNames []string
}

// Launcher instantiates workflow instances for documents. Launching is
// idempotent per (template, document): a duplicate is a silent no-op.
type Launcher struct {
	log       *logger.Logger
	templates repos.WorkflowTemplateRepo
	instances repos.WorkflowInstanceRepo
	documents repos.DocumentRepo
	runner    *actions.Runner
	queue     chan launchRequest
}

func NewLauncher(baseLog *logger.Logger, templates repos.WorkflowTemplateRepo, instances repos.WorkflowInstanceRepo, documents repos.DocumentRepo, runner *actions.Runner) *Launcher {
	return &Launcher{
		log:       baseLog.With("component", "WorkflowLauncher"),
		templates: templates,
		instances: instances,
		documents: documents,
		runner:    runner,
		queue:     make(chan launchRequest, 64),
	}
}

// LaunchFor creates one instance of tpl at its initial state and runs the
// initial state's entry actions. No log entry is written; the initial state
// is implicit. An existing instance is a no-op returning (nil, nil).
func (l *Launcher) LaunchFor(ctx context.Context, doc *types.Document, tpl *types.WorkflowTemplate, userID *uuid.UUID) (*types.WorkflowInstance, error) {
	initial := tpl.InitialState()
	if initial == nil {
		return nil, errs.ErrNotFound
	}

	inst, err := l.instances.Create(ctx, nil, &types.WorkflowInstance{
		TemplateID: tpl.ID,
		DocumentID: doc.ID,
		CreatedAt:  time.Now().UTC(),
	})
	if errors.Is(err, errs.ErrAlreadyLaunched) {
		l.log.Debug("Workflow already launched", "template", tpl.InternalName, "document_id", doc.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	inst.Template = tpl
	inst.Document = doc

	ec := &actions.ExecContext{Document: doc, Instance: inst, UserID: userID}
	if err := l.runner.RunPhase(ctx, initial, types.WhenOnEntry, ec, evalContext(inst, initial)); err != nil {
		return inst, err
	}

	l.log.Info("Workflow launched",
		"template", tpl.InternalName,
		"document_id", doc.ID,
		"instance_id", inst.ID,
	)
	return inst, nil
}

// LaunchAuto launches every auto-launch template whose document-type set
// includes the document's type.
func (l *Launcher) LaunchAuto(ctx context.Context, doc *types.Document, userID *uuid.UUID) error {
	templates, err := l.templates.ListAutoLaunchForDocumentType(ctx, nil, doc.DocumentTypeID)
	if err != nil {
		return err
	}
	for _, tpl := range templates {
		if _, err := l.LaunchFor(ctx, doc, tpl, userID); err != nil {
			l.log.Warn("Auto launch failed", "template", tpl.InternalName, "document_id", doc.ID, "error", err)
		}
	}
	return nil
}

// EnqueueLaunch queues launches by template internal name, for the
// workflow.launch action. Requests are served by Start's worker goroutine.
func (l *Launcher) EnqueueLaunch(_ context.Context, documentID uuid.UUID, templateNames []string) {
	select {
	case l.queue <- launchRequest{documentID: documentID, templateNames: templateNames}:
	default:
		l.log.Warn("Launch queue full, dropping request", "document_id", documentID)
	}
}

// Start consumes queued launch requests until ctx is cancelled.
func (l *Launcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-l.queue:
				l.serveQueued(ctx, req)
			}
		}
	}()
}

func (l *Launcher) serveQueued(ctx context.Context, req launchRequest) {
	doc, err := l.documents.GetByID(ctx, nil, req.documentID)
	if err != nil {
		l.log.Warn("Queued launch: document lookup failed", "document_id", req.documentID, "error", err)
		return
	}
	for _, name := range req.templateNames {
		tpl, err := l.templates.GetByInternalName(ctx, nil, name)
		if err != nil {
			l.log.Warn("Queued launch: template lookup failed", "template", name, "error", err)
			continue
		}
		if _, err := l.LaunchFor(ctx, doc, tpl, nil); err != nil {
			l.log.Warn("Queued launch failed", "template", name, "document_id", doc.ID, "error", err)
		}
	}
}
