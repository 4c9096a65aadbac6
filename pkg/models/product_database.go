package models

import (
	"time"

	"github.com/google/uuid"
)

// Database kinds a product database configuration can name.
const (
	DBKindSupabase = "supabase"
	DBKindPostgres = "postgres"
)

// Health statuses persisted by health checks.
const (
	HealthStatusHealthy = "healthy"
	HealthStatusDown    = "down"
)

// ProductDatabase is the per-product database configuration row. Credential
// fields hold the encrypted wire format ("<hex-iv>:<hex-ciphertext>"); the
// service layer encrypts before persisting and the tenant connection manager
// decrypts on use. At most one row per product is active at a time.
type ProductDatabase struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	DBKind      string    `json:"db_kind"`

	// Supabase kind
	EndpointURL         string `json:"endpoint_url,omitempty"`
	ServiceKeyEncrypted string `json:"-"`

	// Postgres kind
	Host              string `json:"host,omitempty"`
	Port              int    `json:"port,omitempty"`
	DatabaseName      string `json:"database_name,omitempty"`
	UserEncrypted     string `json:"-"`
	PasswordEncrypted string `json:"-"`

	SchemaName string `json:"schema_name"`
	IsActive   bool   `json:"is_active"`

	HealthStatus    *string    `json:"health_status,omitempty"`
	LastHealthCheck *time.Time `json:"last_health_check,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CredentialCandidate carries unencrypted candidate credentials for a
// pre-save connectivity test. Never persisted.
type CredentialCandidate struct {
	DBKind       string `json:"db_kind"`
	EndpointURL  string `json:"endpoint_url,omitempty"`
	ServiceKey   string `json:"service_key,omitempty"`
	Host         string `json:"host,omitempty"`
	Port         int    `json:"port,omitempty"`
	DatabaseName string `json:"database_name,omitempty"`
	User         string `json:"user,omitempty"`
	Password     string `json:"password,omitempty"`
}

// ValidationResult reports the outcome of a credential connectivity test.
type ValidationResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResult reports the outcome of a stored-credential health check.
type HealthResult struct {
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
