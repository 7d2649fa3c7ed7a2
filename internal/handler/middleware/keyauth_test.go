package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/marnevik/prompt-service-api/internal/domain/apikey"
	"github.com/marnevik/prompt-service-api/internal/storage/memstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupGuard(t *testing.T) (*gin.Engine, *memstorage.APIKeyStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstorage.NewAPIKeyStore()
	router := gin.New()
	router.POST("/protected", APIKeyAuth(store, zap.NewNop()), func(c *gin.Context) {
		key, ok := KeyFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"key_id": key.ID.String()})
	})

	return router, store
}

func TestGuardMissingKey(t *testing.T) {
	router, _ := setupGuard(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "API key is required")
}

func TestGuardUnknownKey(t *testing.T) {
	router, _ := setupGuard(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("X-API-Key", "nope")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API key")
}

func TestGuardRevokedKey(t *testing.T) {
	router, store := setupGuard(t)

	key, err := store.Create(context.Background(), &apikey.APIKey{Token: "tok", Name: "k", TotalCalls: 5})
	require.NoError(t, err)
	_, err = store.SetActive(context.Background(), key.ID, false)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("X-API-Key", "tok")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "revoked")
}

func TestGuardAcceptsHeaderToken(t *testing.T) {
	router, store := setupGuard(t)

	key, err := store.Create(context.Background(), &apikey.APIKey{Token: "tok", Name: "k", TotalCalls: 5})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("X-API-Key", "tok")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), key.ID.String())
}

func TestGuardAcceptsQueryToken(t *testing.T) {
	router, store := setupGuard(t)

	_, err := store.Create(context.Background(), &apikey.APIKey{Token: "tok", Name: "k", TotalCalls: 5})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/protected?api_key=tok", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuardDoesNotConsumeQuota(t *testing.T) {
	router, store := setupGuard(t)

	key, err := store.Create(context.Background(), &apikey.APIKey{Token: "tok", Name: "k", TotalCalls: 1})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/protected", nil)
		req.Header.Set("X-API-Key", "tok")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	stored, err := store.FindByID(context.Background(), key.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UsedCalls)
}
