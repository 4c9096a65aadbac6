package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/database"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
)

// ActivityLogRepository persists the audit trail of configuration changes.
type ActivityLogRepository interface {
	// Insert records one activity entry.
	Insert(ctx context.Context, entry *models.ActivityLog) error

	// ListRecent returns the newest entries for a product, newest first.
	ListRecent(ctx context.Context, productID uuid.UUID, limit int) ([]*models.ActivityLog, error)
}

type activityLogRepository struct {
	db *database.DB
}

// NewActivityLogRepository creates a repository bound to the store pool.
func NewActivityLogRepository(db *database.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Insert(ctx context.Context, entry *models.ActivityLog) error {
	query := `INSERT INTO activity_logs (product_id, action, actor, details)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		entry.ProductID, entry.Action, entry.Actor, entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}
	return nil
}

func (r *activityLogRepository) ListRecent(ctx context.Context, productID uuid.UUID, limit int) ([]*models.ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, product_id, action, actor, details, created_at
		FROM activity_logs
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.ActivityLog
	for rows.Next() {
		var e models.ActivityLog
		if err := rows.Scan(&e.ID, &e.ProductID, &e.Action, &e.Actor, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity logs: %w", err)
	}
	return entries, nil
}

var _ ActivityLogRepository = (*activityLogRepository)(nil)
