// Package testutil holds shared fixtures for package tests: an isolated
// in-memory sqlite database migrated to the full schema, and a quiet logger.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/orvane/docflow-backend/internal/logger"
	"github.com/orvane/docflow-backend/internal/types"
)

func Logger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

// OpenDB opens a fresh in-memory sqlite database and migrates every table.
// Each call gets its own database, so tests stay independent.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	err = db.AutoMigrate(
		&types.DocumentType{},
		&types.Document{},
		&types.WorkflowTemplate{},
		&types.WorkflowState{},
		&types.WorkflowTransition{},
		&types.TransitionField{},
		&types.TransitionTrigger{},
		&types.StateAction{},
		&types.StateEscalation{},
		&types.WorkflowInstance{},
		&types.WorkflowLogEntry{},
		&types.ActionErrorLog{},
	)
	if err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}
