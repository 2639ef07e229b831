package analysis

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/documents"
	"intake-backend/internal/shared/server/middleware"
	"intake-backend/internal/shared/server/respond"
)

// DocumentStore is what the re-analysis endpoint reads and writes.
type DocumentStore interface {
	StatusStore
	Owned(ctx context.Context, id, userID string) (documents.Document, error)
}

// Handler lets users re-trigger analysis of a document. Nothing else retries
// a failed analysis.
type Handler struct {
	Docs       DocumentStore
	Dispatcher *Dispatcher
}

// NewHandler constructs a Handler.
func NewHandler(docs DocumentStore, dispatcher *Dispatcher) *Handler {
	return &Handler{Docs: docs, Dispatcher: dispatcher}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/analysis", h.reanalyze)
}

func (h *Handler) reanalyze(c *gin.Context) {
	id := c.Param("id")
	c.Set("documentId", id)
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))

	doc, err := h.Docs.Owned(ctx, id, middleware.UserIDFromContext(c))
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) || errors.Is(err, documents.ErrInvalidInput) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		} else {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		}
		return
	}
	switch {
	case !RequiresAnalysis(doc.Kind):
		respond.Error(c, http.StatusBadRequest, "not_applicable", "document kind is not analysed", nil)
		return
	case doc.StoragePath == "":
		respond.Error(c, http.StatusConflict, "no_content", "document has no stored content", nil)
		return
	case doc.AnalysisStatus == documents.StatusProcessing:
		respond.Error(c, http.StatusConflict, "in_progress", "analysis already running", nil)
		return
	}

	if _, err := h.Docs.UpdateAnalysisStatus(ctx, doc.ID, documents.StatusPending, nil); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to queue analysis", nil)
		return
	}
	if err := h.Dispatcher.Enqueue(ctx, doc.ID, doc.Title, doc.StoragePath); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to queue analysis", nil)
		return
	}
	respond.JSON(c, http.StatusAccepted, gin.H{
		"documentId":     doc.ID,
		"analysisStatus": documents.StatusPending,
	})
}
