package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentType struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Label     string         `gorm:"not null;uniqueIndex" json:"label"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (DocumentType) TableName() string { return "document_type" }

type Document struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentTypeID uuid.UUID      `gorm:"type:uuid;not null;index" json:"document_type_id"`
	DocumentType   *DocumentType  `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentTypeID;references:ID" json:"document_type,omitempty"`
	Label          string         `gorm:"not null" json:"label"`
	Description    string         `gorm:"type:text" json:"description"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Document) TableName() string { return "document" }
