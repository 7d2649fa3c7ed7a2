package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marnevik/prompt-service-api/internal/handler/dto"
	"github.com/marnevik/prompt-service-api/internal/ierr"
	"github.com/marnevik/prompt-service-api/internal/service"
	"go.uber.org/zap"
)

type APIKeyHandler struct {
	service *service.APIKeyService
	logger  *zap.Logger
}

func NewAPIKeyHandler(service *service.APIKeyService, logger *zap.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		service: service,
		logger:  logger.Named("APIKeyHandler"),
	}
}

func (h *APIKeyHandler) Generate(c *gin.Context) {
	var req dto.GenerateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind generate key request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: total_calls must be a positive number", ierr.ErrValidation))
		return
	}

	resp, err := h.service.Generate(c.Request.Context(), req.Name, req.TotalCalls)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *APIKeyHandler) List(c *gin.Context) {
	page, limit := paginationParams(c, 10)

	resp, err := h.service.List(c.Request.Context(), page, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *APIKeyHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	resp, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *APIKeyHandler) Stats(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	resp, err := h.service.Stats(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *APIKeyHandler) Revoke(c *gin.Context) {
	h.setActive(c, false)
}

func (h *APIKeyHandler) Reactivate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *APIKeyHandler) setActive(c *gin.Context, active bool) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	resp, err := h.service.SetActive(c.Request.Context(), id, active)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *APIKeyHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	resp, err := h.service.Delete(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *APIKeyHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid UUID in path", zap.String("id_param", idStr))
		_ = c.Error(fmt.Errorf("%w: invalid api key id format", ierr.ErrValidation))
		return uuid.Nil, false
	}
	return id, true
}

func paginationParams(c *gin.Context, defaultLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if limit < 1 {
		limit = defaultLimit
	}
	return page, limit
}
