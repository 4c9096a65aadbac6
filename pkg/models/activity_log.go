package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityLog is one audit-trail entry. Written by the service layer on every
// mutating operation against a product's database configuration.
type ActivityLog struct {
	ID        uuid.UUID      `json:"id"`
	ProductID uuid.UUID      `json:"product_id"`
	Action    string         `json:"action"` // "database.created", "database.updated", ...
	Actor     string         `json:"actor,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
