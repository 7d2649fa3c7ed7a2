package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marnevik/prompt-service-api/internal/domain/apikey"
	"github.com/marnevik/prompt-service-api/internal/handler/dto"
)

const (
	apiKeyHeader     = "X-API-Key"
	apiKeyQueryParam = "api_key"

	// APIKeyContextKey is where the resolved key lands in the gin context.
	APIKeyContextKey = "apiKeyRecord"
)

// APIKeyAuth is the quota guard's resolution half: it turns a presented
// token into an APIKey record or fails closed. Missing and unknown tokens
// are both 401 so a caller learns nothing about key existence. The quota
// check itself lives in the proxy service, because an exhausted attempt
// still has to be recorded in the ledger.
func APIKeyAuth(store apikey.Store, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("APIKeyAuth")
	return func(c *gin.Context) {
		token := c.GetHeader(apiKeyHeader)
		if token == "" {
			token = c.Query(apiKeyQueryParam)
		}
		if token == "" {
			log.Debug("API key missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "API key is required"})
			return
		}

		key, err := store.FindByToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, apikey.ErrKeyNotFound) {
				log.Warn("Unknown API key presented", zap.String("ip", c.ClientIP()))
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid API key"})
				return
			}
			log.Error("Failed to resolve API key", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error during authentication"})
			return
		}

		if !key.IsActive {
			log.Warn("Revoked API key presented", zap.String("key_id", key.ID.String()))
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Error: "API key is revoked or disabled"})
			return
		}

		c.Set(APIKeyContextKey, key)
		c.Next()
	}
}

// KeyFromContext fetches the key the guard resolved.
func KeyFromContext(c *gin.Context) (*apikey.APIKey, bool) {
	value, exists := c.Get(APIKeyContextKey)
	if !exists {
		return nil, false
	}
	key, ok := value.(*apikey.APIKey)
	return key, ok
}
