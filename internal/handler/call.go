package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marnevik/prompt-service-api/internal/domain/apikey"
	"github.com/marnevik/prompt-service-api/internal/handler/dto"
	"github.com/marnevik/prompt-service-api/internal/handler/middleware"
	"github.com/marnevik/prompt-service-api/internal/ierr"
	"github.com/marnevik/prompt-service-api/internal/service"
	"go.uber.org/zap"
)

type CallHandler struct {
	proxy  *service.ProxyService
	stats  *service.StatsService
	ledger *service.LedgerQueryService
	logger *zap.Logger
}

func NewCallHandler(proxy *service.ProxyService, stats *service.StatsService, ledger *service.LedgerQueryService, logger *zap.Logger) *CallHandler {
	return &CallHandler{
		proxy:  proxy,
		stats:  stats,
		ledger: ledger,
		logger: logger.Named("CallHandler"),
	}
}

func (h *CallHandler) Execute(c *gin.Context) {
	key, ok := middleware.KeyFromContext(c)
	if !ok {
		_ = c.Error(ierr.ErrInternalServer)
		return
	}

	var req dto.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: endpoint parameter is required", ierr.ErrValidation))
		return
	}

	resp, status, err := h.proxy.ExecuteDescription(c.Request.Context(), key, &req, requestMeta(c))
	if err != nil {
		h.respondProxyError(c, key, err)
		return
	}

	c.JSON(status, resp)
}

func (h *CallHandler) ExecuteItem(c *gin.Context) {
	key, ok := middleware.KeyFromContext(c)
	if !ok {
		_ = c.Error(ierr.ErrInternalServer)
		return
	}

	var req dto.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: itemName and spendCategory are required", ierr.ErrValidation))
		return
	}

	resp, status, err := h.proxy.ExecuteItem(c.Request.Context(), key, &req, requestMeta(c))
	if err != nil {
		h.respondProxyError(c, key, err)
		return
	}

	c.JSON(status, resp)
}

func (h *CallHandler) ExecuteTemplate(c *gin.Context) {
	key, ok := middleware.KeyFromContext(c)
	if !ok {
		_ = c.Error(ierr.ErrInternalServer)
		return
	}

	templateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: invalid template id format", ierr.ErrValidation))
		return
	}

	var req dto.TemplateExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	resp, status, err := h.proxy.ExecuteTemplate(c.Request.Context(), key, templateID, &req, requestMeta(c))
	if err != nil {
		h.respondProxyError(c, key, err)
		return
	}

	c.JSON(status, resp)
}

func (h *CallHandler) Logs(c *gin.Context) {
	key, ok := middleware.KeyFromContext(c)
	if !ok {
		_ = c.Error(ierr.ErrInternalServer)
		return
	}

	page, limit := paginationParams(c, 50)

	resp, err := h.ledger.LogsForKey(c.Request.Context(), key.ID, page, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CallHandler) AdminAllCalls(c *gin.Context) {
	page, limit := paginationParams(c, 50)

	resp, err := h.ledger.AllCalls(c.Request.Context(), page, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CallHandler) AdminStatistics(c *gin.Context) {
	stats, err := h.stats.GlobalStats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.StatisticsResponse{
		Period:     "Last 24 hours",
		Statistics: stats,
	})
}

// respondProxyError renders quota rejections with the current counters so
// the caller sees where they stand; everything else goes through the error
// middleware.
func (h *CallHandler) respondProxyError(c *gin.Context, key *apikey.APIKey, err error) {
	if errors.Is(err, ierr.ErrQuotaExceeded) {
		zero := 0
		c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
			Error:          "Quota exceeded",
			RemainingCalls: &zero,
			TotalCalls:     &key.TotalCalls,
			UsedCalls:      &key.UsedCalls,
		})
		return
	}
	_ = c.Error(err)
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
