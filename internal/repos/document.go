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

type DocumentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, doc *types.Document) (*types.Document, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Document, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	CreateType(ctx context.Context, tx *gorm.DB, dt *types.DocumentType) (*types.DocumentType, error)
	GetTypeByLabel(ctx context.Context, tx *gorm.DB, label string) (*types.DocumentType, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Create(ctx context.Context, tx *gorm.DB, doc *types.Document) (*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *documentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var doc types.Document
	err := transaction.WithContext(ctx).
		Preload("DocumentType").
		Where("id = ?", id).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Document{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *documentRepo) CreateType(ctx context.Context, tx *gorm.DB, dt *types.DocumentType) (*types.DocumentType, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if dt.ID == uuid.Nil {
		dt.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(dt).Error; err != nil {
		return nil, err
	}
	return dt, nil
}

func (r *documentRepo) GetTypeByLabel(ctx context.Context, tx *gorm.DB, label string) (*types.DocumentType, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var dt types.DocumentType
	err := transaction.WithContext(ctx).Where("label = ?", label).First(&dt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dt, nil
}
