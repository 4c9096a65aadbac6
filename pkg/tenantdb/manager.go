// Package tenantdb multiplexes per-product tenant database credentials. It
// decrypts stored credentials, caches per-product Supabase clients, validates
// candidate credentials before they are saved, persists health-check state,
// and discovers remote schemas that were never registered with the dashboard.
package tenantdb

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	supabase "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/apperrors"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/config"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/crypto"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/repositories"
)

var defaultProbeTables = []string{"profiles", "users"}

// Manager is the single entry point for "get me a working connection for
// product X". Clients are built lazily from the stored (encrypted)
// configuration and cached for the life of the process; there is no TTL, so
// correctness depends on callers invalidating after every config change.
type Manager struct {
	repo       repositories.ProductDatabaseRepository
	cipher     *crypto.Cipher
	discovery  config.DiscoveryConfig
	httpClient *http.Client
	logger     *zap.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]*supabase.Client
}

// NewManager creates a manager. Always construct one per process (or per test)
// rather than sharing a package-level instance; the cache is deliberate
// process-wide mutable state and tests need isolated copies.
func NewManager(
	repo repositories.ProductDatabaseRepository,
	cipher *crypto.Cipher,
	discovery config.DiscoveryConfig,
	logger *zap.Logger,
) *Manager {
	if len(discovery.ProbeTables) == 0 {
		discovery.ProbeTables = defaultProbeTables
	}
	if discovery.SampleSize <= 0 {
		discovery.SampleSize = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		repo:       repo,
		cipher:     cipher,
		discovery:  discovery,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
		clients:    make(map[uuid.UUID]*supabase.Client),
	}
}

// GetConnection returns the cached client for a product, building it from the
// stored configuration on first use. Errors: apperrors.ErrConfigNotFound when
// no active config row exists, apperrors.ErrUnsupportedKind for kinds other
// than supabase, apperrors.ErrIncompleteConfig when required fields are blank.
//
// Two concurrent calls for a never-cached product can both build a client; the
// last write wins and the loser is discarded. That duplicate work is accepted
// in place of per-product locking.
func (m *Manager) GetConnection(ctx context.Context, productID uuid.UUID) (*supabase.Client, error) {
	m.mu.RLock()
	client, ok := m.clients[productID]
	m.mu.RUnlock()
	if ok {
		return client, nil
	}

	cfg, err := m.repo.FindActive(ctx, productID)
	if err != nil {
		return nil, err
	}

	client, err = m.buildClient(cfg)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.clients[productID] = client
	m.mu.Unlock()

	m.logger.Info("built tenant database client",
		zap.String("product_id", productID.String()),
		zap.String("schema", cfg.SchemaName),
	)
	return client, nil
}

// Invalidate drops a product's cached client so the next GetConnection
// rebuilds it with fresh credentials. Idempotent; callers must invoke this
// after every update or delete of the product's configuration.
func (m *Manager) Invalidate(productID uuid.UUID) {
	m.mu.Lock()
	delete(m.clients, productID)
	m.mu.Unlock()
}

// buildClient constructs a stateless service-role client for a config row.
// No session persistence or token refresh: every call the client makes is
// independently authorized by the service key.
func (m *Manager) buildClient(cfg *models.ProductDatabase) (*supabase.Client, error) {
	if cfg.DBKind != models.DBKindSupabase {
		return nil, fmt.Errorf("%w: %q (only %q connections are cached)",
			apperrors.ErrUnsupportedKind, cfg.DBKind, models.DBKindSupabase)
	}
	if cfg.EndpointURL == "" {
		return nil, fmt.Errorf("%w: endpoint_url is missing", apperrors.ErrIncompleteConfig)
	}
	if cfg.ServiceKeyEncrypted == "" {
		return nil, fmt.Errorf("%w: service key is missing", apperrors.ErrIncompleteConfig)
	}

	serviceKey := m.cipher.Decrypt(cfg.ServiceKeyEncrypted)

	client, err := supabase.NewClient(cfg.EndpointURL, serviceKey, &supabase.ClientOptions{
		Schema: cfg.SchemaName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant client: %w", err)
	}
	return client, nil
}

// countRows runs a count-only probe against a table. Doubles as the existence
// check: PostgREST rejects the request when the relation is unknown.
func countRows(client *supabase.Client, table string) (int64, error) {
	_, count, err := client.From(table).Select("*", "exact", true).Limit(1, "").Execute()
	return count, err
}

// probe checks connectivity by counting rows in each configured probe table
// until one succeeds. Tenant schemas split between naming conventions
// ("profiles" vs "users"), so a single-table probe would report valid
// credentials as failed; every table in the list gets a chance.
func (m *Manager) probe(client *supabase.Client) error {
	var lastErr error
	for _, table := range m.discovery.ProbeTables {
		_, err := countRows(client, table)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("connectivity probe failed: %w", lastErr)
}
