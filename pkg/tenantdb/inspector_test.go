package tenantdb

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/config"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
)

func TestInspectTableProfilesColumnsInOrder(t *testing.T) {
	row := `{
		"id": "a1b2c3d4-0000-4000-8000-1234567890ab",
		"count": 3,
		"ratio": 1.5,
		"flag": true,
		"tags": ["a"],
		"meta": {},
		"note": null
	}`
	server := newFakeTenantServer(t)
	server.setTable("calls", 42, "["+row+"]")

	store := newFakeConfigStore()
	productID := uuid.New()
	store.put(supabaseConfig(productID, server.URL))

	m := newTestManager(t, store, config.DiscoveryConfig{})

	details, err := m.InspectTable(context.Background(), productID, "calls")
	require.NoError(t, err)
	require.True(t, details.Exists)

	assert.Equal(t, "calls", details.Name)
	assert.Equal(t, int64(42), details.RowCount)
	require.Len(t, details.SampleData, 1)

	want := []struct {
		name     string
		typ      string
		nullable bool
	}{
		{"id", models.TypeUUID, false},
		{"count", models.TypeInteger, false},
		{"ratio", models.TypeNumeric, false},
		{"flag", models.TypeBoolean, false},
		{"tags", models.TypeArray, false},
		{"meta", models.TypeJSONB, false},
		{"note", models.TypeNull, true},
	}
	require.Len(t, details.Columns, len(want))
	for i, col := range details.Columns {
		assert.Equal(t, want[i].name, col.Name, "position %d", i+1)
		assert.Equal(t, want[i].typ, col.InferredType, "column %s", col.Name)
		assert.Equal(t, want[i].nullable, col.Nullable, "column %s", col.Name)
		assert.Equal(t, i+1, col.Position, "column %s", col.Name)
	}
}

func TestInspectTableNotFound(t *testing.T) {
	server := newFakeTenantServer(t)

	store := newFakeConfigStore()
	productID := uuid.New()
	store.put(supabaseConfig(productID, server.URL))

	m := newTestManager(t, store, config.DiscoveryConfig{})

	details, err := m.InspectTable(context.Background(), productID, "missing")
	require.NoError(t, err, "a missing table is a soft outcome")

	assert.False(t, details.Exists)
	assert.Equal(t, "Table not found", details.Error)
	assert.Empty(t, details.Columns)
	assert.Empty(t, details.SampleData)
}

func TestInspectTableEmptyTable(t *testing.T) {
	server := newFakeTenantServer(t)
	server.setTable("agents", 0, `[]`)

	store := newFakeConfigStore()
	productID := uuid.New()
	store.put(supabaseConfig(productID, server.URL))

	m := newTestManager(t, store, config.DiscoveryConfig{})

	details, err := m.InspectTable(context.Background(), productID, "agents")
	require.NoError(t, err)

	assert.True(t, details.Exists, "an empty table still exists")
	assert.Equal(t, int64(0), details.RowCount)
	assert.NotNil(t, details.Columns)
	assert.Empty(t, details.Columns)
	assert.NotNil(t, details.SampleData)
	assert.Empty(t, details.SampleData)
}

func TestInspectTableAuthFailureIsSoft(t *testing.T) {
	server := newFakeTenantServer(t)
	server.setTable("agents", 1, `[{"id":1}]`)
	server.rejectAll = true

	store := newFakeConfigStore()
	productID := uuid.New()
	store.put(supabaseConfig(productID, server.URL))

	m := newTestManager(t, store, config.DiscoveryConfig{})

	details, err := m.InspectTable(context.Background(), productID, "agents")
	require.NoError(t, err)

	assert.False(t, details.Exists)
	assert.NotEmpty(t, details.Error)
	assert.NotEqual(t, "Table not found", details.Error)
}

func TestInspectTableNoConfigPropagates(t *testing.T) {
	m := newTestManager(t, newFakeConfigStore(), config.DiscoveryConfig{})

	_, err := m.InspectTable(context.Background(), uuid.New(), "agents")
	require.Error(t, err)
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"null", nil, models.TypeNull},
		{"plain string", "hello", models.TypeText},
		{"uuid", "a1b2c3d4-0000-4000-8000-1234567890ab", models.TypeUUID},
		{"uppercase uuid", "A1B2C3D4-0000-4000-8000-1234567890AB", models.TypeUUID},
		{"braced uuid stays text", "{a1b2c3d4-0000-4000-8000-1234567890ab}", models.TypeText},
		{"timestamp", "2024-01-01T00:00:00Z", models.TypeTimestamp},
		{"date without time separator", "2024-01-01", models.TypeText},
		{"integer", json.Number("3"), models.TypeInteger},
		{"negative integer", json.Number("-42"), models.TypeInteger},
		{"decimal", json.Number("1.5"), models.TypeNumeric},
		{"exponent", json.Number("1e5"), models.TypeNumeric},
		{"bool", true, models.TypeBoolean},
		{"array", []any{"a"}, models.TypeArray},
		{"object", map[string]any{}, models.TypeJSONB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferType(tt.value))
		})
	}
}
