package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marnevik/prompt-service-api/internal/domain/apikey"
	"github.com/marnevik/prompt-service-api/internal/handler/dto"
	"github.com/marnevik/prompt-service-api/internal/ierr"
	"go.uber.org/zap"
)

// ValidateService serves the external validation endpoint: callers present a
// key plus a description of the call they are about to perform; a valid key
// is charged one call and the attempt lands in the ledger.
type ValidateService struct {
	store      apikey.Store
	accountant *UsageService
	logger     *zap.Logger
}

func NewValidateService(store apikey.Store, accountant *UsageService, logger *zap.Logger) *ValidateService {
	return &ValidateService{
		store:      store,
		accountant: accountant,
		logger:     logger.Named("ValidateService"),
	}
}

func (s *ValidateService) Validate(ctx context.Context, token string, req *dto.ValidateRequest, meta RequestMeta) (*dto.ValidateResponse, error) {
	start := time.Now()

	if token == "" {
		return nil, ierr.ErrAPIKeyRequired
	}

	key, err := s.store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, apikey.ErrKeyNotFound) {
			return nil, ierr.ErrAPIKeyInvalid
		}
		return nil, fmt.Errorf("store error resolving api key: %w", err)
	}

	if !key.IsActive {
		return nil, ierr.ErrAPIKeyRevoked
	}

	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = "/validate"
	}
	method := req.Method
	if method == "" {
		method = "POST"
	}
	statusCode := req.StatusCode
	if statusCode == 0 {
		statusCode = 200
	}
	responseBody := req.ResponseBody
	if responseBody == nil {
		responseBody = []byte(`{"valid": true}`)
	}

	usage, err := s.accountant.Account(ctx, key, CallOutcome{
		Endpoint:        endpoint,
		Method:          method,
		StatusCode:      statusCode,
		RequestBody:     req.RequestBody,
		ResponseBody:    responseBody,
		ExecutionTimeMS: time.Since(start).Milliseconds(),
		Meta:            meta,
	})
	if err != nil {
		if errors.Is(err, apikey.ErrQuotaExhausted) {
			return nil, ierr.ErrQuotaExceeded
		}
		return nil, fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}

	s.logger.Debug("API key validated and charged",
		zap.String("id", key.ID.String()),
		zap.Int("used_calls", usage.UsedCalls),
	)

	key.UsedCalls = usage.UsedCalls
	return &dto.ValidateResponse{
		Valid: true,
		Data:  dto.NewKeyResponse(key),
	}, nil
}
