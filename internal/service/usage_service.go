package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marnevik/prompt-service-api/internal/domain/apikey"
	"github.com/marnevik/prompt-service-api/internal/domain/call"
	"github.com/marnevik/prompt-service-api/internal/metrics"
	"go.uber.org/zap"
)

// RequestMeta is the caller context captured for the ledger.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// CallOutcome describes one finished call attempt for accounting.
type CallOutcome struct {
	Endpoint        string
	Method          string
	StatusCode      int
	RequestBody     json.RawMessage
	ResponseBody    json.RawMessage
	ErrorMessage    *string
	ExecutionTimeMS int64
	Meta            RequestMeta
}

// UsageService is the accounting core. Account separates the "must succeed"
// counter update from the "best effort" ledger append: a ledger failure is
// logged and swallowed so auditing can never break the billing path, while a
// counter failure surfaces to the caller.
type UsageService struct {
	store  apikey.Store
	ledger call.Ledger
	logger *zap.Logger
}

func NewUsageService(store apikey.Store, ledger call.Ledger, logger *zap.Logger) *UsageService {
	return &UsageService{
		store:  store,
		ledger: ledger,
		logger: logger.Named("UsageService"),
	}
}

// Account charges the key for one attempted call and records it. The
// increment is a single conditional statement in the store; when the quota
// was drained by a concurrent call the apikey.ErrQuotaExhausted error is
// returned and nothing is written here (the caller records the rejection).
func (s *UsageService) Account(ctx context.Context, key *apikey.APIKey, outcome CallOutcome) (*apikey.Usage, error) {
	usage, err := s.store.ConsumeCall(ctx, key.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to consume call for key %s: %w", key.ID, err)
	}

	s.appendRecord(ctx, key, outcome)

	return usage, nil
}

// RecordRejection appends a ledger record for an attempt that never consumed
// quota (quota exceeded, validation rejections). Best effort, like every
// ledger write.
func (s *UsageService) RecordRejection(ctx context.Context, key *apikey.APIKey, outcome CallOutcome) {
	s.appendRecord(ctx, key, outcome)
}

func (s *UsageService) appendRecord(ctx context.Context, key *apikey.APIKey, outcome CallOutcome) {
	rec := &call.Record{
		APIKeyID:        key.ID,
		APIKeySnapshot:  key.Token,
		Endpoint:        outcome.Endpoint,
		Method:          outcome.Method,
		StatusCode:      outcome.StatusCode,
		RequestBody:     outcome.RequestBody,
		ResponseBody:    outcome.ResponseBody,
		ErrorMessage:    outcome.ErrorMessage,
		IPAddress:       outcome.Meta.IPAddress,
		UserAgent:       outcome.Meta.UserAgent,
		ExecutionTimeMS: outcome.ExecutionTimeMS,
	}

	if err := s.ledger.Append(ctx, rec); err != nil {
		metrics.LedgerWriteFailuresTotal.Inc()
		s.logger.Error("Ledger append failed, call remains billed but unaudited",
			zap.String("apikey_id", key.ID.String()),
			zap.String("endpoint", outcome.Endpoint),
			zap.Int("status_code", outcome.StatusCode),
			zap.Error(err),
		)
	}
}
