package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orvane/docflow-backend/internal/logger"
	"github.com/orvane/docflow-backend/internal/services"
)

type DocumentHandler struct {
	log       *logger.Logger
	documents services.DocumentService
}

func NewDocumentHandler(log *logger.Logger, documents services.DocumentService) *DocumentHandler {
	return &DocumentHandler{log: log.With("handler", "DocumentHandler"), documents: documents}
}

// actingUser reads the optional acting user from the X-User-ID header. The
// host application's auth layer is out of scope here; a missing or invalid
// header means a system actor.
func actingUser(c *gin.Context) *uuid.UUID {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func (h *DocumentHandler) Create(c *gin.Context) {
	var body struct {
		TypeLabel   string `json:"type_label" binding:"required"`
		Label       string `json:"label" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.documents.Create(c.Request.Context(), body.TypeLabel, body.Label, body.Description, actingUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandler) ChangeType(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}
	var body struct {
		TypeLabel string `json:"type_label" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.documents.ChangeType(c.Request.Context(), docID, body.TypeLabel, actingUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}
	if err := h.documents.Delete(c.Request.Context(), docID, actingUser(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
