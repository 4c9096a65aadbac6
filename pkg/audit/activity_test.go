package audit

import (
	"context"
	"fmt"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/auth"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
)

type fakeActivityRepo struct {
	entries []*models.ActivityLog
	failing bool
}

func (r *fakeActivityRepo) Insert(_ context.Context, entry *models.ActivityLog) error {
	if r.failing {
		return fmt.Errorf("activity_logs table unavailable")
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeActivityRepo) ListRecent(context.Context, uuid.UUID, int) ([]*models.ActivityLog, error) {
	return nil, nil
}

func authedContext(email string) context.Context {
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-1"},
		Email:            email,
	}
	return context.WithValue(context.Background(), auth.ClaimsKey, claims)
}

func TestRecordPersistsEntryWithActor(t *testing.T) {
	repo := &fakeActivityRepo{}
	auditor := NewActivityAuditor(repo, zap.NewNop())

	productID := uuid.New()
	auditor.Record(authedContext("ops@dialdesk.ai"), productID, ActionDatabaseCreated,
		map[string]any{"db_kind": "supabase"})

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, productID, entry.ProductID)
	assert.Equal(t, ActionDatabaseCreated, entry.Action)
	assert.Equal(t, "ops@dialdesk.ai", entry.Actor)
	assert.Equal(t, "supabase", entry.Details["db_kind"])
}

func TestRecordWithoutClaimsLeavesActorEmpty(t *testing.T) {
	repo := &fakeActivityRepo{}
	auditor := NewActivityAuditor(repo, zap.NewNop())

	auditor.Record(context.Background(), uuid.New(), ActionDatabaseDeleted, nil)

	require.Len(t, repo.entries, 1)
	assert.Empty(t, repo.entries[0].Actor)
}

func TestRecordSwallowsPersistenceFailure(t *testing.T) {
	repo := &fakeActivityRepo{failing: true}
	auditor := NewActivityAuditor(repo, zap.NewNop())

	assert.NotPanics(t, func() {
		auditor.Record(context.Background(), uuid.New(), ActionDatabaseUpdated, nil)
	})
	assert.Empty(t, repo.entries)
}

func TestRecordTimestampLeftToStore(t *testing.T) {
	repo := &fakeActivityRepo{}
	auditor := NewActivityAuditor(repo, zap.NewNop())

	auditor.Record(context.Background(), uuid.New(), ActionCredentialsTested, nil)

	require.Len(t, repo.entries, 1)
	assert.True(t, repo.entries[0].CreatedAt.IsZero(), "created_at is assigned by the database")
}
