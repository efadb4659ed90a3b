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

type WorkflowInstanceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, inst *types.WorkflowInstance) (*types.WorkflowInstance, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.WorkflowInstance, error)
	ListByDocument(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.WorkflowInstance, error)
	ListByTemplate(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) ([]*types.WorkflowInstance, error)
	ListEscalatable(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error)
	DeleteByDocument(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error
	DeleteCascade(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID) error
}

type workflowInstanceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkflowInstanceRepo(db *gorm.DB, baseLog *logger.Logger) WorkflowInstanceRepo {
	return &workflowInstanceRepo{db: db, log: baseLog.With("repo", "WorkflowInstanceRepo")}
}

// Create inserts an instance. A uniqueness violation on the
// (template, document) pair surfaces as errs.ErrAlreadyLaunched.
func (r *workflowInstanceRepo) Create(ctx context.Context, tx *gorm.DB, inst *types.WorkflowInstance) (*types.WorkflowInstance, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(inst).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.ErrAlreadyLaunched
		}
		return nil, err
	}
	return inst, nil
}

func (r *workflowInstanceRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.WorkflowInstance, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var inst types.WorkflowInstance
	err := transaction.WithContext(ctx).
		Preload("Document").
		Preload("Document.DocumentType").
		Preload("Template").
		Preload("Template.States", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Template.States.Actions", func(db *gorm.DB) *gorm.DB { return db.Order("ordering ASC") }).
		Preload("Template.States.Escalations", func(db *gorm.DB) *gorm.DB { return db.Order("priority ASC") }).
		Preload("Template.States.Escalations.Transition").
		Preload("Template.Transitions", func(db *gorm.DB) *gorm.DB { return db.Order("ordering ASC") }).
		Preload("Template.Transitions.Triggers").
		Where("id = ?", id).
		First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *workflowInstanceRepo) ListByDocument(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.WorkflowInstance, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.WorkflowInstance
	err := transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *workflowInstanceRepo) ListByTemplate(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) ([]*types.WorkflowInstance, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.WorkflowInstance
	err := transaction.WithContext(ctx).
		Preload("Document").
		Where("template_id = ?", templateID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListEscalatable returns the IDs of instances whose template has at least
// one state with an enabled escalation, so the periodic scan never walks the
// whole instance table.
func (r *workflowInstanceRepo) ListEscalatable(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	err := transaction.WithContext(ctx).
		Model(&types.WorkflowInstance{}).
		Distinct("workflow_instance.id").
		Joins("JOIN workflow_state ws ON ws.template_id = workflow_instance.template_id").
		Joins("JOIN workflow_state_escalation wse ON wse.state_id = ws.id").
		Where("wse.enabled = ?", true).
		Pluck("workflow_instance.id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteByDocument hard-deletes every instance of a document along with its
// log entries. Used when a document is permanently deleted or its type drops
// out of a template's supported set.
func (r *workflowInstanceRepo) DeleteByDocument(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var ids []uuid.UUID
		if err := txx.Model(&types.WorkflowInstance{}).
			Where("document_id = ?", documentID).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := txx.Where("instance_id IN ?", ids).
			Delete(&types.WorkflowLogEntry{}).Error; err != nil {
			return err
		}
		return txx.Where("id IN ?", ids).
			Delete(&types.WorkflowInstance{}).Error
	})
}

// DeleteCascade hard-deletes one instance together with its log entries.
func (r *workflowInstanceRepo) DeleteCascade(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("instance_id = ?", instanceID).
			Delete(&types.WorkflowLogEntry{}).Error; err != nil {
			return err
		}
		return txx.Where("id = ?", instanceID).
			Delete(&types.WorkflowInstance{}).Error
	})
}
