package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marnevik/prompt-service-api/internal/handler/dto"
	"github.com/marnevik/prompt-service-api/internal/service"
	"go.uber.org/zap"
)

type ValidateHandler struct {
	service *service.ValidateService
	logger  *zap.Logger
}

func NewValidateHandler(service *service.ValidateService, logger *zap.Logger) *ValidateHandler {
	return &ValidateHandler{
		service: service,
		logger:  logger.Named("ValidateHandler"),
	}
}

// Validate charges and logs one call for external integrations that only
// need key checking, not the prompt proxy.
func (h *ValidateHandler) Validate(c *gin.Context) {
	token := c.GetHeader("X-API-Key")

	var req dto.ValidateRequest
	// The body is entirely optional here; a bare request validates with
	// defaults.
	_ = c.ShouldBindJSON(&req)

	resp, err := h.service.Validate(c.Request.Context(), token, &req, requestMeta(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
