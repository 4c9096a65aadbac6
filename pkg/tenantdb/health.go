package tenantdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/logging"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
)

// CheckHealth probes a product's stored credentials and persists the outcome.
// Not read-only: every call writes health_status and last_health_check back to
// the config row as an audit trail, on success and on failure alike.
func (m *Manager) CheckHealth(ctx context.Context, productID uuid.UUID) models.HealthResult {
	client, err := m.GetConnection(ctx, productID)
	if err != nil {
		return m.recordHealth(ctx, productID, models.HealthStatusDown, logging.SanitizeError(err))
	}

	if err := m.probe(client); err != nil {
		return m.recordHealth(ctx, productID, models.HealthStatusDown, logging.SanitizeError(err))
	}

	return m.recordHealth(ctx, productID, models.HealthStatusHealthy, "")
}

func (m *Manager) recordHealth(ctx context.Context, productID uuid.UUID, status, errMsg string) models.HealthResult {
	now := time.Now().UTC()

	if err := m.repo.UpdateHealth(ctx, productID, status, now); err != nil {
		// A product with no config row fails here too; the caller already has
		// the real failure in the result.
		m.logger.Warn("failed to persist health status",
			zap.String("product_id", productID.String()),
			zap.String("status", status),
			zap.Error(err),
		)
	}

	return models.HealthResult{
		Status:    status,
		Error:     errMsg,
		Timestamp: now,
	}
}
