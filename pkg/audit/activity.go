// Package audit records configuration changes to the activity trail.
// Every entry is also emitted as structured JSON under a dedicated logger
// namespace so SIEM pipelines can consume it without database access.
package audit

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/auth"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/repositories"
)

// Actions recorded against product database configurations.
const (
	ActionDatabaseCreated   = "database.created"
	ActionDatabaseUpdated   = "database.updated"
	ActionDatabaseDeleted   = "database.deleted"
	ActionCredentialsTested = "database.credentials_tested"
	ActionHealthCheckFailed = "database.health_check_failed"
)

// ActivityAuditor writes audit-trail entries for configuration changes.
type ActivityAuditor struct {
	repo   repositories.ActivityLogRepository
	logger *zap.Logger
}

// NewActivityAuditor creates an auditor with a dedicated logger namespace for
// SIEM filtering.
func NewActivityAuditor(repo repositories.ActivityLogRepository, logger *zap.Logger) *ActivityAuditor {
	return &ActivityAuditor{
		repo:   repo,
		logger: logger.Named("activity_audit"),
	}
}

// Record persists one activity entry. The actor is taken from the request's
// JWT claims when present. Persistence failures are logged and swallowed; an
// unavailable audit table must not fail the operation it describes.
func (a *ActivityAuditor) Record(ctx context.Context, productID uuid.UUID, action string, details map[string]any) {
	entry := &models.ActivityLog{
		ProductID: productID,
		Action:    action,
		Actor:     auth.ActorFromContext(ctx),
		Details:   details,
	}

	if err := a.repo.Insert(ctx, entry); err != nil {
		a.logger.Warn("failed to persist activity entry",
			zap.String("product_id", productID.String()),
			zap.String("action", action),
			zap.Error(err))
	}

	a.logger.Info("activity",
		zap.String("product_id", productID.String()),
		zap.String("action", action),
		zap.String("actor", entry.Actor),
		zap.Any("details", details))
}
