package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"intake-backend/internal/shared/metrics"
	"intake-backend/internal/shared/telemetry"
)

// Emitter writes notifications on a best-effort basis. A failed write is
// logged and counted, never returned.
type Emitter struct {
	Repo Repo
	Now  func() time.Time
}

// NewEmitter constructs an Emitter backed by repo.
func NewEmitter(repo Repo) *Emitter {
	return &Emitter{Repo: repo}
}

// Emit records n, filling in ID, severity and timestamp when absent. It
// reports whether the notification was stored.
func (e *Emitter) Emit(ctx context.Context, n Notification) bool {
	if e == nil || e.Repo == nil {
		return false
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if !n.Severity.Valid() {
		n.Severity = SeverityInfo
	}
	if n.CreatedAt.IsZero() {
		if e.Now != nil {
			n.CreatedAt = e.Now().UTC()
		} else {
			n.CreatedAt = time.Now().UTC()
		}
	}
	if strings.TrimSpace(n.UserID) == "" || strings.TrimSpace(n.Title) == "" {
		e.drop(n, ErrInvalidInput)
		return false
	}
	if err := e.Repo.Create(ctx, n); err != nil {
		e.drop(n, err)
		return false
	}
	return true
}

func (e *Emitter) drop(n Notification, err error) {
	metrics.IncNotificationDropped()
	telemetry.Warn("notification.dropped", map[string]any{
		"user_id":     n.UserID,
		"title":       n.Title,
		"category":    n.Category,
		"document_id": n.RelatedDocumentID,
		"error":       err.Error(),
	})
}
