package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orvane/docflow-backend/internal/logger"
	"github.com/orvane/docflow-backend/internal/types"
)

type ActionErrorLogRepo interface {
	Append(ctx context.Context, tx *gorm.DB, ownerKind string, ownerID uuid.UUID, errorName, errorText string) error
	Clear(ctx context.Context, tx *gorm.DB, ownerKind string, ownerID uuid.UUID) error
	List(ctx context.Context, tx *gorm.DB, ownerKind string, ownerID uuid.UUID) ([]*types.ActionErrorLog, error)
}

type actionErrorLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActionErrorLogRepo(db *gorm.DB, baseLog *logger.Logger) ActionErrorLogRepo {
	return &actionErrorLogRepo{db: db, log: baseLog.With("repo", "ActionErrorLogRepo")}
}

func (r *actionErrorLogRepo) Append(ctx context.Context, tx *gorm.DB, ownerKind string, ownerID uuid.UUID, errorName, errorText string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	entry := &types.ActionErrorLog{
		ID:        uuid.New(),
		OwnerKind: ownerKind,
		OwnerID:   ownerID,
		ErrorName: errorName,
		ErrorText: errorText,
		CreatedAt: time.Now().UTC(),
	}
	return transaction.WithContext(ctx).Create(entry).Error
}

func (r *actionErrorLogRepo) Clear(ctx context.Context, tx *gorm.DB, ownerKind string, ownerID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("owner_kind = ? AND owner_id = ?", ownerKind, ownerID).
		Delete(&types.ActionErrorLog{}).Error
}

func (r *actionErrorLogRepo) List(ctx context.Context, tx *gorm.DB, ownerKind string, ownerID uuid.UUID) ([]*types.ActionErrorLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ActionErrorLog
	err := transaction.WithContext(ctx).
		Where("owner_kind = ? AND owner_id = ?", ownerKind, ownerID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
