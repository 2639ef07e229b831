package uploads

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/analysis"
	"intake-backend/internal/shared/server/middleware"
	"intake-backend/internal/shared/server/respond"
)

// multipartOverhead is allowed on top of the file size limit for form fields
// and boundaries.
const multipartOverhead = 1 << 20

// Handler exposes the upload pipeline over HTTP.
type Handler struct {
	Orch *Orchestrator
}

// NewHandler constructs a Handler.
func NewHandler(orch *Orchestrator) *Handler {
	return &Handler{Orch: orch}
}

// RegisterRoutes attaches upload routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
}

type uploadResponse struct {
	DocumentID     string  `json:"documentId"`
	VersionID      string  `json:"versionId"`
	VersionNumber  int     `json:"versionNumber"`
	Title          string  `json:"title"`
	Kind           string  `json:"kind"`
	Decision       string  `json:"decision,omitempty"`
	AnalysisPolicy string  `json:"analysisPolicy"`
	AnalysisStatus string  `json:"analysisStatus"`
	AnalysisError  string  `json:"analysisError,omitempty"`
	Session        Session `json:"session"`
}

func (h *Handler) upload(c *gin.Context) {
	maxBytes := h.Orch.Validator.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	var decide DecideFunc
	switch mode := strings.ToLower(strings.TrimSpace(c.PostForm("onDuplicate"))); mode {
	case "", "ask":
	default:
		d := Decision(mode)
		if !d.Valid() {
			respond.Error(c, http.StatusBadRequest, "validation_error", "onDuplicate must be ask, replace, keep_both or cancel", nil)
			return
		}
		decide = AlwaysDecide(d)
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	ctx := analysis.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	out, err := h.Orch.Upload(ctx, Request{
		File: File{
			Name:        fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			Body:        file,
		},
		ParentFolderID: strings.TrimSpace(c.PostForm("parentFolderId")),
		Description:    strings.TrimSpace(c.PostForm("description")),
		Labels:         parseLabels(c.PostFormArray("label")),
		Decide:         decide,
	})
	c.Set("uploadStage", string(out.Session.Stage))
	if out.DocumentID != "" {
		c.Set("documentId", out.DocumentID)
	}
	if err != nil {
		writeError(c, err, out)
		return
	}
	c.Set("versionId", out.VersionID)

	resp := uploadResponse{
		DocumentID:     out.DocumentID,
		VersionID:      out.VersionID,
		VersionNumber:  out.VersionNumber,
		Title:          out.Title,
		Kind:           string(out.Kind),
		Decision:       string(out.Decision),
		AnalysisPolicy: string(out.Policy),
		AnalysisStatus: string(out.AnalysisStatus),
		Session:        out.Session,
	}
	if out.AnalysisErr != nil {
		resp.AnalysisError = "analysis did not complete"
	}
	status := http.StatusCreated
	if out.Decision == DecisionReplace {
		status = http.StatusOK
	}
	respond.JSON(c, status, resp)
}

func writeError(c *gin.Context, err error, out Outcome) {
	var (
		verr *ValidationError
		aerr *AuthError
		dup  *DuplicateConflict
		serr *StorageError
	)
	msg := UserMessage(err)
	switch {
	case errors.Is(err, ErrCancelled):
		respond.JSON(c, http.StatusOK, gin.H{"cancelled": true, "session": out.Session})
	case errors.As(err, &dup):
		respond.Error(c, http.StatusConflict, "duplicate", msg, dup.Candidate)
	case errors.As(err, &verr):
		respond.Error(c, http.StatusBadRequest, "validation_error", msg, nil)
	case errors.As(err, &aerr):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid session", nil)
	case errors.As(err, &serr):
		respond.Error(c, http.StatusBadGateway, "storage_error", msg, gin.H{"documentId": out.DocumentID})
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", msg, nil)
	}
}

// parseLabels reads repeated "key=value" form values.
func parseLabels(values []string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for _, v := range values {
		key, val, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		out[key] = strings.TrimSpace(val)
	}
	return out
}
