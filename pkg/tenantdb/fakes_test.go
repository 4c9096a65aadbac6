package tenantdb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/apperrors"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/config"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/crypto"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/repositories"
)

const testEncryptionSecret = "tenantdb-test-secret-32-characters!!"

// fakeConfigStore is an in-memory ProductDatabaseRepository with call
// counters, so tests can assert cache memoization and health write-backs.
type fakeConfigStore struct {
	mu            sync.Mutex
	configs       map[uuid.UUID]*models.ProductDatabase
	findCalls     int
	healthUpdates []healthUpdate
}

type healthUpdate struct {
	productID uuid.UUID
	status    string
	checkedAt time.Time
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{configs: make(map[uuid.UUID]*models.ProductDatabase)}
}

func (s *fakeConfigStore) put(cfg *models.ProductDatabase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.ProductID] = cfg
}

func (s *fakeConfigStore) findCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findCalls
}

func (s *fakeConfigStore) lastHealthUpdate() (healthUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.healthUpdates) == 0 {
		return healthUpdate{}, false
	}
	return s.healthUpdates[len(s.healthUpdates)-1], true
}

func (s *fakeConfigStore) FindActive(_ context.Context, productID uuid.UUID) (*models.ProductDatabase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	cfg, ok := s.configs[productID]
	if !ok || !cfg.IsActive {
		return nil, apperrors.ErrConfigNotFound
	}
	copied := *cfg
	return &copied, nil
}

func (s *fakeConfigStore) UpdateHealth(_ context.Context, productID uuid.UUID, status string, checkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[productID]
	if !ok {
		return apperrors.ErrConfigNotFound
	}
	s.healthUpdates = append(s.healthUpdates, healthUpdate{productID, status, checkedAt})
	cfg.HealthStatus = &status
	cfg.LastHealthCheck = &checkedAt
	return nil
}

func (s *fakeConfigStore) Create(context.Context, *models.ProductDatabase) error { return nil }
func (s *fakeConfigStore) Update(context.Context, *models.ProductDatabase) error { return nil }
func (s *fakeConfigStore) Delete(context.Context, uuid.UUID) error               { return nil }
func (s *fakeConfigStore) List(context.Context) ([]*models.ProductDatabase, error) {
	return nil, nil
}

var _ repositories.ProductDatabaseRepository = (*fakeConfigStore)(nil)

// fakeTable backs one table on the fake PostgREST server.
type fakeTable struct {
	count int64
	rows  string // JSON array payload returned for sample queries
}

// fakeTenantServer speaks just enough PostgREST for the manager: count-only
// HEAD probes answered via Content-Range, sample GETs answered with canned
// JSON, unknown relations rejected with SQLSTATE 42P01, and an optional
// information-schema listing for the REST discovery tier.
type fakeTenantServer struct {
	*httptest.Server

	mu         sync.Mutex
	tables     map[string]fakeTable
	hits       map[string]int
	infoSchema string // JSON array for information_schema.tables; empty => 404
	rejectAll  bool   // simulate an invalid service key
}

func newFakeTenantServer(t *testing.T) *fakeTenantServer {
	t.Helper()
	s := &fakeTenantServer{
		tables: make(map[string]fakeTable),
		hits:   make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *fakeTenantServer) setTable(name string, count int64, rows string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = fakeTable{count: count, rows: rows}
}

func (s *fakeTenantServer) hitCount(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[table]
}

func (s *fakeTenantServer) handle(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/rest/v1/")

	s.mu.Lock()
	s.hits[name]++
	rejectAll := s.rejectAll
	infoSchema := s.infoSchema
	table, ok := s.tables[name]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if rejectAll {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Invalid API key","code":"401"}`)
		return
	}

	if name == "information_schema.tables" {
		if infoSchema == "" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"unknown relation","code":"42P01"}`)
			return
		}
		fmt.Fprint(w, infoSchema)
		return
	}

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"message":"relation \"public.%s\" does not exist","code":"42P01"}`, name)
		return
	}

	w.Header().Set("Content-Range", fmt.Sprintf("0-0/%d", table.count))
	if r.Method == http.MethodHead {
		return
	}
	fmt.Fprint(w, table.rows)
}

// newTestManager wires a manager against the fake store with a test cipher.
func newTestManager(t *testing.T, store *fakeConfigStore, discovery config.DiscoveryConfig) *Manager {
	t.Helper()
	cipher, err := crypto.NewCipher(testEncryptionSecret, nil)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	return NewManager(store, cipher, discovery, nil)
}

// supabaseConfig builds an active supabase-kind config row pointed at the fake
// server. The service key is stored as legacy plaintext, which the cipher
// passes through on decrypt.
func supabaseConfig(productID uuid.UUID, endpoint string) *models.ProductDatabase {
	return &models.ProductDatabase{
		ID:                  uuid.New(),
		ProductID:           productID,
		ProductName:         "Acme Voice",
		DBKind:              models.DBKindSupabase,
		EndpointURL:         endpoint,
		ServiceKeyEncrypted: "legacy-plaintext-service-key",
		SchemaName:          "public",
		IsActive:            true,
	}
}
