package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/marnevik/prompt-service-api/internal/domain/call"
	"github.com/marnevik/prompt-service-api/internal/ierr"
	"github.com/marnevik/prompt-service-api/internal/storage/memstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newKeyService() (*APIKeyService, *memstorage.APIKeyStore, *memstorage.CallLedger) {
	store := memstorage.NewAPIKeyStore()
	ledger := memstorage.NewCallLedger()
	return NewAPIKeyService(store, ledger, zap.NewNop()), store, ledger
}

func TestGenerateKey(t *testing.T) {
	svc, _, _ := newKeyService()

	resp, err := svc.Generate(context.Background(), "My App Key", 100)
	require.NoError(t, err)

	assert.Equal(t, "My App Key", resp.Key.Name)
	assert.Equal(t, 100, resp.Key.TotalCalls)
	assert.Equal(t, 0, resp.Key.UsedCalls)
	assert.True(t, resp.Key.IsActive)
	// 256 bits of entropy, hex encoded.
	assert.Len(t, resp.Key.Token, 64)
	assert.NotEmpty(t, resp.Warning)
}

func TestGenerateKeyDefaultsName(t *testing.T) {
	svc, _, _ := newKeyService()

	resp, err := svc.Generate(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Equal(t, "Unnamed Key", resp.Key.Name)
}

func TestGenerateTokenIsUnique(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestListMasksSecrets(t *testing.T) {
	svc, _, _ := newKeyService()
	ctx := context.Background()

	generated, err := svc.Generate(ctx, "k", 10)
	require.NoError(t, err)

	list, err := svc.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, list.Data, 1)

	masked := list.Data[0].Token
	assert.NotEqual(t, generated.Key.Token, masked)
	assert.Contains(t, masked, "...")
	assert.Equal(t, generated.Key.Token[:8], masked[:8])
	assert.Equal(t, 10, list.Data[0].RemainingCalls)
	assert.Equal(t, int64(1), list.Pagination.Total)
}

func TestRevokeAndReactivate(t *testing.T) {
	svc, store, _ := newKeyService()
	ctx := context.Background()

	generated, err := svc.Generate(ctx, "k", 10)
	require.NoError(t, err)
	id := generated.Key.ID

	revoked, err := svc.SetActive(ctx, id, false)
	require.NoError(t, err)
	assert.False(t, revoked.Key.IsActive)

	// Idempotent: revoking an already revoked key is fine.
	revoked, err = svc.SetActive(ctx, id, false)
	require.NoError(t, err)
	assert.False(t, revoked.Key.IsActive)

	// Counters untouched by state flips.
	stored, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UsedCalls)

	reactivated, err := svc.SetActive(ctx, id, true)
	require.NoError(t, err)
	assert.True(t, reactivated.Key.IsActive)
}

func TestSetActiveUnknownKey(t *testing.T) {
	svc, _, _ := newKeyService()

	_, err := svc.SetActive(context.Background(), uuid.New(), false)
	assert.ErrorIs(t, err, ierr.ErrNotFound)
}

func TestDeleteLeavesLedgerIntact(t *testing.T) {
	svc, store, ledger := newKeyService()
	ctx := context.Background()

	generated, err := svc.Generate(ctx, "k", 10)
	require.NoError(t, err)
	id := generated.Key.ID

	key, err := store.FindByID(ctx, id)
	require.NoError(t, err)

	accountant := NewUsageService(store, ledger, zap.NewNop())
	_, err = accountant.Account(ctx, key, CallOutcome{Endpoint: "/tasks", Method: "POST", StatusCode: 200})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, deleted.Key.ID)

	// Orphaned records survive the key.
	records := ledger.Records()
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].APIKeyID)

	_, err = svc.Get(ctx, id)
	assert.ErrorIs(t, err, ierr.ErrNotFound)
}

func TestStatsComputesFromLedger(t *testing.T) {
	svc, store, ledger := newKeyService()
	ctx := context.Background()

	generated, err := svc.Generate(ctx, "k", 10)
	require.NoError(t, err)
	key, err := store.FindByID(ctx, generated.Key.ID)
	require.NoError(t, err)

	accountant := NewUsageService(store, ledger, zap.NewNop())
	_, err = accountant.Account(ctx, key, CallOutcome{Endpoint: "/tasks", Method: "POST", StatusCode: 200, ExecutionTimeMS: 120})
	require.NoError(t, err)
	_, err = accountant.Account(ctx, key, CallOutcome{Endpoint: "/items", Method: "POST", StatusCode: 500, ExecutionTimeMS: 80})
	require.NoError(t, err)

	resp, err := svc.Stats(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.KeyInfo.UsedCalls)

	stats, ok := resp.Statistics.(*call.KeyStats)
	require.True(t, ok)
	assert.Equal(t, int64(2), stats.TotalCalls)
	assert.Equal(t, int64(1), stats.SuccessfulCalls)
	assert.Equal(t, int64(1), stats.FailedCalls)
	assert.Equal(t, int64(2), stats.UniqueEndpoints)
	require.NotNil(t, stats.AvgExecutionTime)
	assert.InDelta(t, 100.0, *stats.AvgExecutionTime, 0.01)
}
