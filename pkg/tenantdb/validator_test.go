package tenantdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/config"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
)

func TestTestCredentialsFirstProbeTableSucceeds(t *testing.T) {
	server := newFakeTenantServer(t)
	server.setTable("profiles", 3, `[]`)

	m := newTestManager(t, newFakeConfigStore(), config.DiscoveryConfig{})

	result := m.TestCredentials(context.Background(), models.CredentialCandidate{
		DBKind:      models.DBKindSupabase,
		EndpointURL: server.URL,
		ServiceKey:  "candidate-service-key",
	})

	assert.True(t, result.OK)
	assert.NotEmpty(t, result.Message)
}

func TestTestCredentialsFallsBackToSecondProbeTable(t *testing.T) {
	// Only "users" exists; the first probe against "profiles" errors. Valid
	// credentials pointed at a users-convention schema must still pass.
	server := newFakeTenantServer(t)
	server.setTable("users", 7, `[]`)

	m := newTestManager(t, newFakeConfigStore(), config.DiscoveryConfig{})

	result := m.TestCredentials(context.Background(), models.CredentialCandidate{
		DBKind:      models.DBKindSupabase,
		EndpointURL: server.URL,
		ServiceKey:  "candidate-service-key",
	})

	require.True(t, result.OK, "second-table fallback should rescue the probe: %s", result.Error)
	assert.GreaterOrEqual(t, server.hitCount("profiles"), 1, "first table must be probed")
	assert.GreaterOrEqual(t, server.hitCount("users"), 1, "second table must be probed after the first fails")
}

func TestTestCredentialsBothProbesFail(t *testing.T) {
	server := newFakeTenantServer(t) // no tables at all

	m := newTestManager(t, newFakeConfigStore(), config.DiscoveryConfig{})

	result := m.TestCredentials(context.Background(), models.CredentialCandidate{
		DBKind:      models.DBKindSupabase,
		EndpointURL: server.URL,
		ServiceKey:  "candidate-service-key",
	})

	assert.False(t, result.OK)
	assert.NotEmpty(t, result.Error)
}

func TestTestCredentialsMissingFields(t *testing.T) {
	m := newTestManager(t, newFakeConfigStore(), config.DiscoveryConfig{})

	tests := []struct {
		name      string
		candidate models.CredentialCandidate
	}{
		{"no endpoint", models.CredentialCandidate{DBKind: models.DBKindSupabase, ServiceKey: "key"}},
		{"no service key", models.CredentialCandidate{DBKind: models.DBKindSupabase, EndpointURL: "https://ref.supabase.co"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := m.TestCredentials(context.Background(), tt.candidate)
			assert.False(t, result.OK)
			assert.Contains(t, result.Error, "required")
		})
	}
}

func TestTestCredentialsPostgresNotImplemented(t *testing.T) {
	m := newTestManager(t, newFakeConfigStore(), config.DiscoveryConfig{})

	result := m.TestCredentials(context.Background(), models.CredentialCandidate{
		DBKind:   models.DBKindPostgres,
		Host:     "db.internal",
		Port:     5432,
		User:     "tenant",
		Password: "pw",
	})

	assert.False(t, result.OK)
	assert.Contains(t, result.Error, "not implemented")
	assert.Contains(t, result.Error, "manually")
}

func TestTestCredentialsUnknownKind(t *testing.T) {
	m := newTestManager(t, newFakeConfigStore(), config.DiscoveryConfig{})

	result := m.TestCredentials(context.Background(), models.CredentialCandidate{DBKind: "mysql"})

	assert.False(t, result.OK)
	assert.Contains(t, result.Error, "unsupported")
}
