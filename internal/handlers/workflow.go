package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orvane/docflow-backend/internal/errs"
	"github.com/orvane/docflow-backend/internal/logger"
	"github.com/orvane/docflow-backend/internal/repos"
	"github.com/orvane/docflow-backend/internal/services"
	"github.com/orvane/docflow-backend/internal/workflow"
)

type WorkflowHandler struct {
	log         *logger.Logger
	engine      *workflow.Engine
	launcher    *workflow.Launcher
	scheduler   *workflow.EscalationScheduler
	loader      *workflow.Loader
	templateSvc services.TemplateService
	templates   repos.WorkflowTemplateRepo
	instances   repos.WorkflowInstanceRepo
	logs        repos.WorkflowLogRepo
	documents   repos.DocumentRepo
}

func NewWorkflowHandler(log *logger.Logger, engine *workflow.Engine, launcher *workflow.Launcher, scheduler *workflow.EscalationScheduler, loader *workflow.Loader, templateSvc services.TemplateService, templates repos.WorkflowTemplateRepo, instances repos.WorkflowInstanceRepo, logs repos.WorkflowLogRepo, documents repos.DocumentRepo) *WorkflowHandler {
	return &WorkflowHandler{
		log:         log.With("handler", "WorkflowHandler"),
		engine:      engine,
		launcher:    launcher,
		scheduler:   scheduler,
		loader:      loader,
		templateSvc: templateSvc,
		templates:   templates,
		instances:   instances,
		logs:        logs,
		documents:   documents,
	}
}

// respondError maps the workflow error taxonomy onto HTTP statuses.
// Condition and validity failures are plain client-visible messages, not
// system faults.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrConditionNotMet):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errs.IsRetryable(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "retryable": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// CreateTemplate accepts a YAML workflow template definition.
func (h *WorkflowHandler) CreateTemplate(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	def, err := h.loader.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tpl, err := h.loader.Save(c.Request.Context(), def)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (h *WorkflowHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.templates.GetByInternalName(c.Request.Context(), nil, c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// SetTemplateDocumentTypes replaces a template's supported document types.
// Instances bound to documents of a type no longer in the set are removed.
func (h *WorkflowHandler) SetTemplateDocumentTypes(c *gin.Context) {
	var body struct {
		DocumentTypes []string `json:"document_types"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	tpl, err := h.templates.GetByInternalName(ctx, nil, c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	updated, err := h.templateSvc.SetDocumentTypes(ctx, tpl.ID, body.DocumentTypes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Launch launches a named template (or all auto-launch templates) for a
// document.
func (h *WorkflowHandler) Launch(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}
	var body struct {
		Template string `json:"template"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	doc, err := h.documents.GetByID(ctx, nil, docID)
	if err != nil {
		respondError(c, err)
		return
	}
	if body.Template == "" {
		if err := h.launcher.LaunchAuto(ctx, doc, actingUser(c)); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusAccepted)
		return
	}
	tpl, err := h.templates.GetByInternalName(ctx, nil, body.Template)
	if err != nil {
		respondError(c, err)
		return
	}
	inst, err := h.launcher.LaunchFor(ctx, doc, tpl, actingUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if inst == nil {
		// already launched, idempotent
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusCreated, inst)
}

// Transition performs a user-requested transition on an instance.
func (h *WorkflowHandler) Transition(c *gin.Context) {
	instID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid instance id"})
		return
	}
	var body struct {
		TransitionID uuid.UUID `json:"transition_id" binding:"required"`
		Comment      string    `json:"comment"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, err := h.engine.DoTransitionByID(c.Request.Context(), instID, body.TransitionID, actingUser(c), body.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// GetInstance reports the instance with its derived current state and log.
func (h *WorkflowHandler) GetInstance(c *gin.Context) {
	instID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid instance id"})
		return
	}
	ctx := c.Request.Context()
	inst, err := h.instances.GetByID(ctx, nil, instID)
	if err != nil {
		respondError(c, err)
		return
	}
	state, err := h.engine.CurrentState(ctx, inst)
	if err != nil {
		respondError(c, err)
		return
	}
	log, err := h.logs.List(ctx, nil, instID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"instance":      inst,
		"current_state": state,
		"log":           log,
	})
}

// CheckEscalation runs one escalation check for an instance.
func (h *WorkflowHandler) CheckEscalation(c *gin.Context) {
	instID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid instance id"})
		return
	}
	if err := h.scheduler.CheckEscalation(c.Request.Context(), instID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// CheckEscalationAll runs the batch escalation scan. External job
// schedulers hit this on a fixed interval.
func (h *WorkflowHandler) CheckEscalationAll(c *gin.Context) {
	h.scheduler.CheckEscalationAll(c.Request.Context())
	c.Status(http.StatusAccepted)
}
