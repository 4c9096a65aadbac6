package tenantdb

import (
	"context"
	"fmt"

	supabase "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/apperrors"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/logging"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
)

// TestCredentials probes connectivity with raw candidate credentials before
// anything is persisted. Pure with respect to stored state: it never writes to
// the config store and never touches the connection cache.
func (m *Manager) TestCredentials(ctx context.Context, candidate models.CredentialCandidate) models.ValidationResult {
	switch candidate.DBKind {
	case models.DBKindSupabase:
		return m.testSupabaseCredentials(candidate)
	case models.DBKindPostgres:
		// No working direct-postgres path exists yet; saying so beats a
		// silent pass that would let bad credentials through.
		return models.ValidationResult{
			OK:    false,
			Error: fmt.Sprintf("direct postgres connection testing is %s; verify credentials manually", apperrors.ErrNotImplemented),
		}
	default:
		return models.ValidationResult{
			OK:    false,
			Error: "unsupported database kind: " + candidate.DBKind,
		}
	}
}

func (m *Manager) testSupabaseCredentials(candidate models.CredentialCandidate) models.ValidationResult {
	if candidate.EndpointURL == "" || candidate.ServiceKey == "" {
		return models.ValidationResult{
			OK:    false,
			Error: "endpoint_url and service_key are required",
		}
	}

	// Throwaway client; nothing is cached for unsaved credentials.
	client, err := supabase.NewClient(candidate.EndpointURL, candidate.ServiceKey, &supabase.ClientOptions{})
	if err != nil {
		return models.ValidationResult{
			OK:    false,
			Error: "invalid endpoint: " + logging.SanitizeError(err),
		}
	}

	if err := m.probe(client); err != nil {
		m.logger.Debug("candidate credential probe failed",
			zap.String("error", logging.SanitizeError(err)),
		)
		return models.ValidationResult{
			OK:    false,
			Error: logging.SanitizeError(err),
		}
	}

	return models.ValidationResult{
		OK:      true,
		Message: "connection successful",
	}
}
