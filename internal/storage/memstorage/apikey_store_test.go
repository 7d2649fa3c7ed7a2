package memstorage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/marnevik/prompt-service-api/internal/domain/apikey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumeCallStopsAtQuota(t *testing.T) {
	store := NewAPIKeyStore()
	ctx := context.Background()

	key, err := store.Create(ctx, &apikey.APIKey{Token: "tok", Name: "test", TotalCalls: 2})
	require.NoError(t, err)

	usage, err := store.ConsumeCall(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.UsedCalls)
	assert.Equal(t, 1, usage.RemainingCalls)

	usage, err = store.ConsumeCall(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, usage.UsedCalls)
	assert.Equal(t, 0, usage.RemainingCalls)

	_, err = store.ConsumeCall(ctx, key.ID)
	assert.ErrorIs(t, err, apikey.ErrQuotaExhausted)

	stored, err := store.FindByID(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.UsedCalls)
	require.NotNil(t, stored.LastUsedAt)
}

func TestConsumeCallConcurrentNoLostUpdates(t *testing.T) {
	store := NewAPIKeyStore()
	ctx := context.Background()

	const quota = 50
	const callers = 80

	key, err := store.Create(ctx, &apikey.APIKey{Token: "tok", Name: "test", TotalCalls: quota})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	rejected := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ConsumeCall(ctx, key.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				granted++
			} else if errors.Is(err, apikey.ErrQuotaExhausted) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, quota, granted)
	assert.Equal(t, callers-quota, rejected)

	stored, err := store.FindByID(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, quota, stored.UsedCalls)
	assert.Equal(t, 0, stored.Remaining())
}

func TestSetActiveIsIdempotent(t *testing.T) {
	store := NewAPIKeyStore()
	ctx := context.Background()

	key, err := store.Create(ctx, &apikey.APIKey{Token: "tok", Name: "test", TotalCalls: 5})
	require.NoError(t, err)

	revoked, err := store.SetActive(ctx, key.ID, false)
	require.NoError(t, err)
	assert.False(t, revoked.IsActive)

	// Revoking again is a no-op, not an error.
	revoked, err = store.SetActive(ctx, key.ID, false)
	require.NoError(t, err)
	assert.False(t, revoked.IsActive)
	assert.Equal(t, 0, revoked.UsedCalls)
}
