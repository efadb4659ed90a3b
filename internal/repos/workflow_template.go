package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orvane/docflow-backend/internal/errs"
	"github.com/orvane/docflow-backend/internal/logger"
	"github.com/orvane/docflow-backend/internal/types"
)

type WorkflowTemplateRepo interface {
	Create(ctx context.Context, tx *gorm.DB, tpl *types.WorkflowTemplate) (*types.WorkflowTemplate, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.WorkflowTemplate, error)
	GetByInternalName(ctx context.Context, tx *gorm.DB, name string) (*types.WorkflowTemplate, error)
	ListAutoLaunchForDocumentType(ctx context.Context, tx *gorm.DB, documentTypeID uuid.UUID) ([]*types.WorkflowTemplate, error)
	SetInitialState(ctx context.Context, tx *gorm.DB, templateID, stateID uuid.UUID) error
	ListTransitionsByTriggerEvent(ctx context.Context, tx *gorm.DB, eventType string) ([]*types.WorkflowTransition, error)
	ReplaceDocumentTypes(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, docTypes []*types.DocumentType) error
}

type workflowTemplateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkflowTemplateRepo(db *gorm.DB, baseLog *logger.Logger) WorkflowTemplateRepo {
	return &workflowTemplateRepo{db: db, log: baseLog.With("repo", "WorkflowTemplateRepo")}
}

func (r *workflowTemplateRepo) Create(ctx context.Context, tx *gorm.DB, tpl *types.WorkflowTemplate) (*types.WorkflowTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(tpl).Error; err != nil {
		return nil, err
	}
	return tpl, nil
}

// templatePreloads loads the full template graph: states with their actions
// and escalations, transitions with fields and trigger bindings, ordered the
// way they were declared.
func templatePreloads(q *gorm.DB) *gorm.DB {
	return q.
		Preload("DocumentTypes").
		Preload("States", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("States.Actions", func(db *gorm.DB) *gorm.DB { return db.Order("ordering ASC") }).
		Preload("States.Escalations", func(db *gorm.DB) *gorm.DB { return db.Order("priority ASC") }).
		Preload("States.Escalations.Transition").
		Preload("Transitions", func(db *gorm.DB) *gorm.DB { return db.Order("ordering ASC") }).
		Preload("Transitions.Fields", func(db *gorm.DB) *gorm.DB { return db.Order("ordering ASC") }).
		Preload("Transitions.Triggers")
}

func (r *workflowTemplateRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.WorkflowTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var tpl types.WorkflowTemplate
	err := templatePreloads(transaction.WithContext(ctx)).
		Where("id = ?", id).
		First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *workflowTemplateRepo) GetByInternalName(ctx context.Context, tx *gorm.DB, name string) (*types.WorkflowTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var tpl types.WorkflowTemplate
	err := templatePreloads(transaction.WithContext(ctx)).
		Where("internal_name = ?", name).
		First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *workflowTemplateRepo) ListAutoLaunchForDocumentType(ctx context.Context, tx *gorm.DB, documentTypeID uuid.UUID) ([]*types.WorkflowTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.WorkflowTemplate
	err := templatePreloads(transaction.WithContext(ctx)).
		Joins("JOIN workflow_template_document_type wtdt ON wtdt.workflow_template_id = workflow_template.id").
		Where("workflow_template.auto_launch = ? AND wtdt.document_type_id = ?", true, documentTypeID).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetInitialState flags one state initial and clears the flag on every
// sibling of the same template, in a single transaction.
func (r *workflowTemplateRepo) SetInitialState(ctx context.Context, tx *gorm.DB, templateID, stateID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var state types.WorkflowState
		if err := txx.Where("id = ? AND template_id = ?", stateID, templateID).First(&state).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrNotFound
			}
			return err
		}
		if err := txx.Model(&types.WorkflowState{}).
			Where("template_id = ? AND id <> ?", templateID, stateID).
			Update("initial", false).Error; err != nil {
			return err
		}
		return txx.Model(&types.WorkflowState{}).
			Where("id = ?", stateID).
			Update("initial", true).Error
	})
}

func (r *workflowTemplateRepo) ListTransitionsByTriggerEvent(ctx context.Context, tx *gorm.DB, eventType string) ([]*types.WorkflowTransition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.WorkflowTransition
	err := transaction.WithContext(ctx).
		Joins("JOIN workflow_transition_trigger wtt ON wtt.transition_id = workflow_transition.id").
		Where("wtt.event_type = ?", eventType).
		Order("workflow_transition.ordering ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *workflowTemplateRepo) ReplaceDocumentTypes(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, docTypes []*types.DocumentType) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	tpl := types.WorkflowTemplate{ID: templateID}
	return transaction.WithContext(ctx).
		Model(&tpl).
		Association("DocumentTypes").
		Replace(docTypes)
}
