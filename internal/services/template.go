package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orvane/docflow-backend/internal/logger"
	"github.com/orvane/docflow-backend/internal/repos"
	"github.com/orvane/docflow-backend/internal/types"
)

type TemplateService interface {
	SetDocumentTypes(ctx context.Context, templateID uuid.UUID, typeLabels []string) (*types.WorkflowTemplate, error)
}

type templateService struct {
	log       *logger.Logger
	documents repos.DocumentRepo
	templates repos.WorkflowTemplateRepo
	instances repos.WorkflowInstanceRepo
}

func NewTemplateService(baseLog *logger.Logger, documents repos.DocumentRepo, templates repos.WorkflowTemplateRepo, instances repos.WorkflowInstanceRepo) TemplateService {
	return &templateService{
		log:       baseLog.With("service", "TemplateService"),
		documents: documents,
		templates: templates,
		instances: instances,
	}
}

// SetDocumentTypes replaces the template's supported document types and
// removes instances whose document's type dropped out of the set (log
// entries cascade). Instances of still-supported types are untouched.
func (s *templateService) SetDocumentTypes(ctx context.Context, templateID uuid.UUID, typeLabels []string) (*types.WorkflowTemplate, error) {
	tpl, err := s.templates.GetByID(ctx, nil, templateID)
	if err != nil {
		return nil, err
	}

	docTypes := make([]*types.DocumentType, 0, len(typeLabels))
	supported := make(map[uuid.UUID]bool, len(typeLabels))
	for _, label := range typeLabels {
		dt, err := s.documents.GetTypeByLabel(ctx, nil, label)
		if err != nil {
			return nil, fmt.Errorf("document type %q: %w", label, err)
		}
		docTypes = append(docTypes, dt)
		supported[dt.ID] = true
	}

	if err := s.templates.ReplaceDocumentTypes(ctx, nil, templateID, docTypes); err != nil {
		return nil, err
	}

	instances, err := s.instances.ListByTemplate(ctx, nil, templateID)
	if err != nil {
		return nil, err
	}
	for _, inst := range instances {
		if inst.Document == nil || supported[inst.Document.DocumentTypeID] {
			continue
		}
		if err := s.instances.DeleteCascade(ctx, nil, inst.ID); err != nil {
			return nil, err
		}
		s.log.Info("Pruned workflow instance after template type change",
			"instance_id", inst.ID,
			"template", tpl.InternalName,
			"document_id", inst.DocumentID,
		)
	}

	return s.templates.GetByID(ctx, nil, templateID)
}
