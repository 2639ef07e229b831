package notifications

import (
	"context"
	"database/sql"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a notification.
func (r *PGRepo) Create(ctx context.Context, n Notification) error {
	const query = `
INSERT INTO notifications (
    id,
    user_id,
    title,
    message,
    severity,
    related_document_id,
    file_name,
    category,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.DB.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.Title,
		n.Message,
		string(n.Severity),
		nullString(n.RelatedDocumentID),
		nullString(n.FileName),
		nullString(n.Category),
		n.CreatedAt,
	)
	return err
}

// ListByUser returns the user's latest notifications.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	const query = `
SELECT id, user_id, title, message, severity, related_document_id, file_name, category, created_at
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var (
			n        Notification
			severity string
			related  sql.NullString
			fileName sql.NullString
			category sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &severity, &related, &fileName, &category, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Severity = Severity(severity)
		n.RelatedDocumentID = related.String
		n.FileName = fileName.String
		n.Category = category.String
		out = append(out, n)
	}
	return out, rows.Err()
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
