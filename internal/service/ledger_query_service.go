package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/marnevik/prompt-service-api/internal/domain/call"
	"github.com/marnevik/prompt-service-api/internal/handler/dto"
	"go.uber.org/zap"
)

// LedgerQueryService is the read side of the call ledger.
type LedgerQueryService struct {
	ledger call.Ledger
	logger *zap.Logger
}

func NewLedgerQueryService(ledger call.Ledger, logger *zap.Logger) *LedgerQueryService {
	return &LedgerQueryService{
		ledger: ledger,
		logger: logger.Named("LedgerQueryService"),
	}
}

func (s *LedgerQueryService) LogsForKey(ctx context.Context, keyID uuid.UUID, page, limit int) (*dto.CallLogsResponse, error) {
	offset := (page - 1) * limit

	records, total, err := s.ledger.ListByKey(ctx, keyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ledger error listing call logs: %w", err)
	}

	logs := make([]*dto.CallLogEntry, len(records))
	for i, rec := range records {
		logs[i] = dto.NewCallLogEntry(rec)
	}

	return &dto.CallLogsResponse{
		Logs:       logs,
		Pagination: dto.NewPagination(total, page, limit),
	}, nil
}

func (s *LedgerQueryService) AllCalls(ctx context.Context, page, limit int) (*dto.AdminCallsResponse, error) {
	offset := (page - 1) * limit

	records, total, err := s.ledger.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ledger error listing all calls: %w", err)
	}

	return &dto.AdminCallsResponse{
		Data:       records,
		Pagination: dto.NewPagination(total, page, limit),
	}, nil
}
