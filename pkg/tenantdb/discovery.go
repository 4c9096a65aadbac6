package tenantdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	supabase "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/logging"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
)

const directSQLTimeout = 10 * time.Second

// ListTables enumerates the base tables in a product's tenant database with
// row counts. Three strategies run in order, stopping at the first conclusive
// non-empty result:
//
//  1. Direct SQL against the conventional db.<ref>.supabase.co host.
//  2. Authenticated REST query of the information-schema view.
//  3. Heuristic probing of a configured candidate-name list.
//
// An empty slice with a nil error means all three tiers came up empty; that is
// a result, not a failure. Config and connection errors do propagate.
func (m *Manager) ListTables(ctx context.Context, productID uuid.UUID) ([]models.DiscoveredTable, error) {
	client, err := m.GetConnection(ctx, productID)
	if err != nil {
		return nil, err
	}
	cfg, err := m.repo.FindActive(ctx, productID)
	if err != nil {
		return nil, err
	}

	if names, ok := m.discoverDirectSQL(ctx, cfg); ok && len(names) > 0 {
		m.logger.Debug("schema discovery resolved via direct sql",
			zap.String("product_id", productID.String()),
			zap.Int("tables", len(names)))
		return m.attachRowCounts(client, names), nil
	}

	if names, ok := m.discoverREST(ctx, cfg); ok && len(names) > 0 {
		m.logger.Debug("schema discovery resolved via rest",
			zap.String("product_id", productID.String()),
			zap.Int("tables", len(names)))
		return m.attachRowCounts(client, names), nil
	}

	tables := m.discoverByProbing(client)
	m.logger.Debug("schema discovery fell back to heuristic probing",
		zap.String("product_id", productID.String()),
		zap.Int("tables", len(tables)))
	return tables, nil
}

// discoverDirectSQL opens a raw SQL connection to the tenant project's
// conventional database hostname and reads the information schema. Endpoints
// that do not follow the <ref>.supabase.co convention are inconclusive without
// dialing anything. All failures are inconclusive, never fatal.
func (m *Manager) discoverDirectSQL(ctx context.Context, cfg *models.ProductDatabase) ([]string, bool) {
	ref, ok := projectRef(cfg.EndpointURL)
	if !ok {
		return nil, false
	}

	serviceKey := m.cipher.Decrypt(cfg.ServiceKeyEncrypted)
	dsn := fmt.Sprintf("postgres://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require",
		url.QueryEscape(serviceKey), ref)

	dialCtx, cancel := context.WithTimeout(ctx, directSQLTimeout)
	defer cancel()

	conn, err := pgx.Connect(dialCtx, dsn)
	if err != nil {
		m.logger.Debug("direct sql discovery could not connect",
			zap.String("error", logging.SanitizeError(err)))
		return nil, false
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(dialCtx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`,
		cfg.SchemaName)
	if err != nil {
		m.logger.Debug("direct sql discovery query failed",
			zap.String("error", logging.SanitizeError(err)))
		return nil, false
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, false
		}
		names = append(names, name)
	}
	if rows.Err() != nil {
		return nil, false
	}
	return names, true
}

// projectRef extracts the project reference from a <ref>.supabase.co endpoint.
func projectRef(endpoint string) (string, bool) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false
	}
	ref, ok := strings.CutSuffix(u.Hostname(), ".supabase.co")
	if !ok || ref == "" || strings.Contains(ref, ".") {
		return "", false
	}
	return ref, true
}

// discoverREST queries the information-schema view over the tenant's REST
// endpoint. The query builder only reaches exposed tables, so this tier talks
// HTTP directly with the service key in both auth headers.
func (m *Manager) discoverREST(ctx context.Context, cfg *models.ProductDatabase) ([]string, bool) {
	serviceKey := m.cipher.Decrypt(cfg.ServiceKeyEncrypted)

	endpoint := strings.TrimRight(cfg.EndpointURL, "/") +
		"/rest/v1/information_schema.tables" +
		"?select=table_name" +
		"&table_schema=eq." + url.QueryEscape(cfg.SchemaName) +
		"&table_type=eq.BASE%20TABLE" +
		"&order=table_name.asc"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("apikey", serviceKey)
	req.Header.Set("Authorization", "Bearer "+serviceKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.logger.Debug("rest discovery request failed",
			zap.String("error", logging.SanitizeError(err)))
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		m.logger.Debug("rest discovery rejected", zap.Int("status", resp.StatusCode))
		return nil, false
	}

	var rows []struct {
		TableName string `json:"table_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, false
	}
	if len(rows) == 0 {
		return nil, false
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.TableName)
	}
	return names, true
}

// discoverByProbing is the fallback of last resort: count-probe every
// configured candidate table name concurrently and keep the ones that answer.
// A failed probe means "not a table here", never an abort; siblings always run
// to completion.
func (m *Manager) discoverByProbing(client *supabase.Client) []models.DiscoveredTable {
	now := time.Now().UTC()

	var mu sync.Mutex
	tables := []models.DiscoveredTable{}

	var g errgroup.Group
	for _, candidate := range m.discovery.CandidateTables {
		g.Go(func() error {
			count, err := countRows(client, candidate)
			if err != nil {
				return nil
			}
			mu.Lock()
			tables = append(tables, models.DiscoveredTable{
				Name:        candidate,
				RowCount:    count,
				Columns:     []models.ColumnProfile{},
				LastChecked: now,
			})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables
}

// attachRowCounts fetches row counts for already-confirmed table names in
// parallel through the tenant's normal client. A table whose count fetch fails
// stays in the result with RowCount 0: it exists (tier 1/2 said so) but was
// transiently unreadable, which is different from not being listed at all.
func (m *Manager) attachRowCounts(client *supabase.Client, names []string) []models.DiscoveredTable {
	now := time.Now().UTC()
	tables := make([]models.DiscoveredTable, len(names))

	var g errgroup.Group
	for i, name := range names {
		tables[i] = models.DiscoveredTable{
			Name:        name,
			Columns:     []models.ColumnProfile{},
			LastChecked: now,
		}
		g.Go(func() error {
			count, err := countRows(client, name)
			if err != nil {
				m.logger.Warn("row count fetch failed for discovered table",
					zap.String("table", name),
					zap.String("error", logging.SanitizeError(err)))
				return nil
			}
			tables[i].RowCount = count
			return nil
		})
	}
	_ = g.Wait()

	return tables
}
