package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orvane/docflow-backend/internal/errs"
	"github.com/orvane/docflow-backend/internal/logger"
	"github.com/orvane/docflow-backend/internal/types"
)

type WorkflowLogRepo interface {
	// Append validates that the transition's origin state equals the
	// instance's current state and writes the log entry, all inside one
	// transaction holding a row lock on the instance. A mismatch returns
	// errs.ErrInvalidTransition and writes nothing.
	Append(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID, transition *types.WorkflowTransition, userID *uuid.UUID, comment string) (*types.WorkflowLogEntry, error)
	Latest(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID) (*types.WorkflowLogEntry, error)
	List(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID) ([]*types.WorkflowLogEntry, error)
	// CurrentStateID derives the instance's state: destination of the most
	// recent log entry, or the template's initial state when the log is
	// empty.
	CurrentStateID(ctx context.Context, tx *gorm.DB, inst *types.WorkflowInstance) (uuid.UUID, error)
	// StateEnteredAt reports when the instance entered its current state:
	// the latest log entry's timestamp, or the instance creation time when
	// still in the initial state.
	StateEnteredAt(ctx context.Context, tx *gorm.DB, inst *types.WorkflowInstance) (time.Time, error)
}

type workflowLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkflowLogRepo(db *gorm.DB, baseLog *logger.Logger) WorkflowLogRepo {
	return &workflowLogRepo{db: db, log: baseLog.With("repo", "WorkflowLogRepo")}
}

// lockForUpdate adds a FOR UPDATE clause on dialects that support it.
// SQLite serializes writers on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *workflowLogRepo) Append(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID, transition *types.WorkflowTransition, userID *uuid.UUID, comment string) (*types.WorkflowLogEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if transition == nil {
		return nil, errs.ErrInvalidTransition
	}
	var entry *types.WorkflowLogEntry
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var inst types.WorkflowInstance
		if err := lockForUpdate(txx).Where("id = ?", instanceID).First(&inst).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrNotFound
			}
			return err
		}
		currentID, err := r.currentStateID(txx, &inst)
		if err != nil {
			return err
		}
		if currentID != transition.OriginStateID {
			return errs.ErrInvalidTransition
		}
		entry = &types.WorkflowLogEntry{
			ID:           uuid.New(),
			InstanceID:   inst.ID,
			TransitionID: transition.ID,
			UserID:       userID,
			Comment:      comment,
			CreatedAt:    time.Now().UTC(),
		}
		return txx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *workflowLogRepo) Latest(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID) (*types.WorkflowLogEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var entry types.WorkflowLogEntry
	err := transaction.WithContext(ctx).
		Preload("Transition").
		Where("instance_id = ?", instanceID).
		Order("created_at DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *workflowLogRepo) List(ctx context.Context, tx *gorm.DB, instanceID uuid.UUID) ([]*types.WorkflowLogEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.WorkflowLogEntry
	err := transaction.WithContext(ctx).
		Preload("Transition").
		Where("instance_id = ?", instanceID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *workflowLogRepo) CurrentStateID(ctx context.Context, tx *gorm.DB, inst *types.WorkflowInstance) (uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return r.currentStateID(transaction.WithContext(ctx), inst)
}

func (r *workflowLogRepo) currentStateID(tx *gorm.DB, inst *types.WorkflowInstance) (uuid.UUID, error) {
	var entry types.WorkflowLogEntry
	err := tx.
		Preload("Transition").
		Where("instance_id = ?", inst.ID).
		Order("created_at DESC").
		First(&entry).Error
	if err == nil {
		if entry.Transition == nil {
			return uuid.Nil, errs.ErrNotFound
		}
		return entry.Transition.DestinationStateID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, err
	}
	var initial types.WorkflowState
	err = tx.
		Where("template_id = ? AND initial = ?", inst.TemplateID, true).
		First(&initial).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, errs.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return initial.ID, nil
}

func (r *workflowLogRepo) StateEnteredAt(ctx context.Context, tx *gorm.DB, inst *types.WorkflowInstance) (time.Time, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var entry types.WorkflowLogEntry
	err := transaction.WithContext(ctx).
		Where("instance_id = ?", inst.ID).
		Order("created_at DESC").
		First(&entry).Error
	if err == nil {
		return entry.CreatedAt, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, err
	}
	return inst.CreatedAt, nil
}
