package versions

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/documents"
	"intake-backend/internal/shared/server/middleware"
	"intake-backend/internal/shared/server/respond"
	"intake-backend/internal/shared/telemetry"
)

// OwnedDocuments resolves a document only for its owner.
type OwnedDocuments interface {
	Owned(ctx context.Context, id, userID string) (documents.Document, error)
}

// Handler exposes version history over HTTP.
type Handler struct {
	Mgr      *Manager
	Docs     OwnedDocuments
	MaxBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(mgr *Manager, docs OwnedDocuments, maxBytes int64) *Handler {
	return &Handler{Mgr: mgr, Docs: docs, MaxBytes: maxBytes}
}

// RegisterRoutes attaches version routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/documents/:id/versions", h.list)
	rg.POST("/documents/:id/versions", h.create)
	rg.POST("/documents/:id/versions/:versionId/restore", h.restore)
}

// VersionResponse is the outward-facing representation of a version.
type VersionResponse struct {
	VersionID      string    `json:"versionId"`
	DocumentID     string    `json:"documentId"`
	VersionNumber  int       `json:"versionNumber"`
	StoragePath    string    `json:"storagePath"`
	CreatedBy      string    `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
	IsCurrent      bool      `json:"isCurrent"`
	Description    string    `json:"description,omitempty"`
	ChangesSummary string    `json:"changesSummary,omitempty"`
}

func toResponse(v Version) VersionResponse {
	return VersionResponse{
		VersionID:      v.ID,
		DocumentID:     v.DocumentID,
		VersionNumber:  v.VersionNumber,
		StoragePath:    v.StoragePath,
		CreatedBy:      v.CreatedBy,
		CreatedAt:      v.CreatedAt,
		IsCurrent:      v.IsCurrent,
		Description:    v.Description,
		ChangesSummary: v.ChangesSummary,
	}
}

// owned resolves the :id document for the caller, writing a 404 otherwise.
func (h *Handler) owned(c *gin.Context) (documents.Document, bool) {
	id := c.Param("id")
	c.Set("documentId", id)
	doc, err := h.Docs.Owned(c.Request.Context(), id, middleware.UserIDFromContext(c))
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) || errors.Is(err, documents.ErrInvalidInput) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		} else {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		}
		return documents.Document{}, false
	}
	return doc, true
}

func (h *Handler) list(c *gin.Context) {
	doc, ok := h.owned(c)
	if !ok {
		return
	}
	vs, err := h.Mgr.ListVersions(c.Request.Context(), doc.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]VersionResponse, 0, len(vs))
	for _, v := range vs {
		resp = append(resp, toResponse(v))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) create(c *gin.Context) {
	doc, ok := h.owned(c)
	if !ok {
		return
	}
	if h.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxBytes+(1<<20))
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if err := documents.CheckFile(fileHeader.Filename, contentType, fileHeader.Size, h.MaxBytes); err != nil {
		telemetry.Warn("version.rejected", map[string]any{
			"document_id": doc.ID,
			"file":        fileHeader.Filename,
			"error":       err.Error(),
		})
		respond.Error(c, http.StatusBadRequest, "validation_error", "Upload failed. Please try again.", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	v, err := h.Mgr.CreateVersion(c.Request.Context(), doc.ID, Content{
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		Size:        fileHeader.Size,
		Body:        file,
	}, middleware.UserIDFromContext(c), strings.TrimSpace(c.PostForm("description")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("versionId", v.ID)
	respond.JSON(c, http.StatusCreated, toResponse(v))
}

func (h *Handler) restore(c *gin.Context) {
	doc, ok := h.owned(c)
	if !ok {
		return
	}
	v, err := h.Mgr.RestoreVersion(c.Request.Context(), doc.ID, c.Param("versionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("versionId", v.ID)
	respond.JSON(c, http.StatusOK, toResponse(v))
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDocumentNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "version not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", "a concurrent version was created, retry", nil)
	case errors.Is(err, ErrBlobWrite):
		respond.Error(c, http.StatusBadGateway, "storage_error", "failed to store version content", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update versions", nil)
	}
}
