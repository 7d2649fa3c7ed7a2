package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marnevik/prompt-service-api/internal/handler/dto"
	"github.com/marnevik/prompt-service-api/internal/ierr"
	"github.com/marnevik/prompt-service-api/internal/service"
	"go.uber.org/zap"
)

type TemplateHandler struct {
	service *service.TemplateService
	logger  *zap.Logger
}

func NewTemplateHandler(service *service.TemplateService, logger *zap.Logger) *TemplateHandler {
	return &TemplateHandler{
		service: service,
		logger:  logger.Named("TemplateHandler"),
	}
}

func (h *TemplateHandler) Create(c *gin.Context) {
	var req dto.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind create template request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	created, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.TemplateCreatedResponse{
		Success: true,
		Data:    created,
	})
}

func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.service.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.TemplateListResponse{
		Success: true,
		Data:    templates,
	})
}
