package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orvane/docflow-backend/internal/events"
	"github.com/orvane/docflow-backend/internal/logger"
	"github.com/orvane/docflow-backend/internal/repos"
	"github.com/orvane/docflow-backend/internal/types"
	"github.com/orvane/docflow-backend/internal/workflow"
)

// CapabilityCheck is the injected access-control hook. A nil check allows
// everything; enforcement lives in the host application.
type CapabilityCheck func(ctx context.Context, userID *uuid.UUID, capability string, documentID uuid.UUID) error

// Capabilities the workflow surface asks about.
const (
	CapDocumentCreate     = "document.create"
	CapDocumentEdit       = "document.edit"
	CapWorkflowTransition = "workflow.transition"
)

type DocumentService interface {
	Create(ctx context.Context, typeLabel, label, description string, userID *uuid.UUID) (*types.Document, error)
	ChangeType(ctx context.Context, documentID uuid.UUID, typeLabel string, userID *uuid.UUID) (*types.Document, error)
	Delete(ctx context.Context, documentID uuid.UUID, userID *uuid.UUID) error
}

type documentService struct {
	db        *gorm.DB
	log       *logger.Logger
	documents repos.DocumentRepo
	instances repos.WorkflowInstanceRepo
	templates repos.WorkflowTemplateRepo
	launcher  *workflow.Launcher
	bus       events.Bus
	can       CapabilityCheck
}

func NewDocumentService(db *gorm.DB, baseLog *logger.Logger, documents repos.DocumentRepo, instances repos.WorkflowInstanceRepo, templates repos.WorkflowTemplateRepo, launcher *workflow.Launcher, bus events.Bus, can CapabilityCheck) DocumentService {
	return &documentService{
		db:        db,
		log:       baseLog.With("service", "DocumentService"),
		documents: documents,
		instances: instances,
		templates: templates,
		launcher:  launcher,
		bus:       bus,
		can:       can,
	}
}

func (s *documentService) check(ctx context.Context, userID *uuid.UUID, capability string, documentID uuid.UUID) error {
	if s.can == nil {
		return nil
	}
	return s.can(ctx, userID, capability, documentID)
}

// Create stores the document, auto-launches matching workflows and
// publishes document.created.
func (s *documentService) Create(ctx context.Context, typeLabel, label, description string, userID *uuid.UUID) (*types.Document, error) {
	if err := s.check(ctx, userID, CapDocumentCreate, uuid.Nil); err != nil {
		return nil, err
	}
	dt, err := s.documents.GetTypeByLabel(ctx, nil, typeLabel)
	if err != nil {
		return nil, fmt.Errorf("document type %q: %w", typeLabel, err)
	}
	doc, err := s.documents.Create(ctx, nil, &types.Document{
		DocumentTypeID: dt.ID,
		Label:          label,
		Description:    description,
	})
	if err != nil {
		return nil, err
	}
	doc.DocumentType = dt

	if err := s.launcher.LaunchAuto(ctx, doc, userID); err != nil {
		s.log.Warn("Auto launch on create failed", "document_id", doc.ID, "error", err)
	}
	s.publish(ctx, events.TypeDocumentCreated, doc.ID, userID)
	return doc, nil
}

// ChangeType moves the document to another type, launches workflows that
// now apply, and removes instances whose template no longer supports the
// document's type (log entries cascade).
func (s *documentService) ChangeType(ctx context.Context, documentID uuid.UUID, typeLabel string, userID *uuid.UUID) (*types.Document, error) {
	if err := s.check(ctx, userID, CapDocumentEdit, documentID); err != nil {
		return nil, err
	}
	dt, err := s.documents.GetTypeByLabel(ctx, nil, typeLabel)
	if err != nil {
		return nil, fmt.Errorf("document type %q: %w", typeLabel, err)
	}
	if err := s.documents.UpdateFields(ctx, nil, documentID, map[string]interface{}{
		"document_type_id": dt.ID,
		"updated_at":       time.Now().UTC(),
	}); err != nil {
		return nil, err
	}
	doc, err := s.documents.GetByID(ctx, nil, documentID)
	if err != nil {
		return nil, err
	}

	if err := s.pruneUnsupported(ctx, doc); err != nil {
		s.log.Warn("Instance prune after type change failed", "document_id", documentID, "error", err)
	}
	if err := s.launcher.LaunchAuto(ctx, doc, userID); err != nil {
		s.log.Warn("Auto launch on type change failed", "document_id", documentID, "error", err)
	}
	s.publish(ctx, events.TypeDocumentTypeChanged, doc.ID, userID)
	return doc, nil
}

// Delete removes the document and cascades its workflow instances.
func (s *documentService) Delete(ctx context.Context, documentID uuid.UUID, userID *uuid.UUID) error {
	if err := s.check(ctx, userID, CapDocumentEdit, documentID); err != nil {
		return err
	}
	if err := s.instances.DeleteByDocument(ctx, nil, documentID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&types.Document{}, "id = ?", documentID).Error
}

// pruneUnsupported deletes workflow instances whose template's document-type
// set no longer includes the document's type.
func (s *documentService) pruneUnsupported(ctx context.Context, doc *types.Document) error {
	instances, err := s.instances.ListByDocument(ctx, nil, doc.ID)
	if err != nil {
		return err
	}
	for _, inst := range instances {
		tpl, err := s.templates.GetByID(ctx, nil, inst.TemplateID)
		if err != nil {
			return err
		}
		supported := false
		for _, dt := range tpl.DocumentTypes {
			if dt != nil && dt.ID == doc.DocumentTypeID {
				supported = true
				break
			}
		}
		if supported {
			continue
		}
		if err := s.instances.DeleteCascade(ctx, nil, inst.ID); err != nil {
			return err
		}
		s.log.Info("Pruned workflow instance after type change",
			"instance_id", inst.ID,
			"template", tpl.InternalName,
			"document_id", doc.ID,
		)
	}
	return nil
}

func (s *documentService) publish(ctx context.Context, eventType string, documentID uuid.UUID, userID *uuid.UUID) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, events.Event{
		Type:       eventType,
		ActorID:    userID,
		DocumentID: documentID,
		At:         time.Now().UTC(),
	}); err != nil {
		s.log.Warn("Event publish failed", "event_type", eventType, "document_id", documentID, "error", err)
	}
}
