package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a tenant of the platform. The dashboard manages one database
// configuration per product.
type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"` // "active", "paused", "archived"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
