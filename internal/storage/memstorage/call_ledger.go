package memstorage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marnevik/prompt-service-api/internal/domain/call"
)

// CallLedger is an in-memory call.Ledger for unit tests. AppendErr, when
// set, makes every Append fail, which is how the best-effort audit path is
// exercised.
type CallLedger struct {
	mu      sync.RWMutex
	records []*call.Record
	nextID  int64

	AppendErr error
}

func NewCallLedger() *CallLedger {
	return &CallLedger{nextID: 1}
}

var _ call.Ledger = (*CallLedger)(nil)

func (l *CallLedger) Append(_ context.Context, rec *call.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.AppendErr != nil {
		return l.AppendErr
	}

	stored := *rec
	stored.ID = l.nextID
	stored.CreatedAt = time.Now().UTC()
	l.nextID++
	l.records = append(l.records, &stored)
	return nil
}

func (l *CallLedger) ListByKey(_ context.Context, keyID uuid.UUID, limit, offset int) ([]*call.Record, int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	matched := make([]*call.Record, 0)
	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].APIKeyID == keyID {
			copied := *l.records[i]
			matched = append(matched, &copied)
		}
	}

	total := int64(len(matched))
	if offset >= len(matched) {
		return []*call.Record{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (l *CallLedger) ListAll(_ context.Context, limit, offset int) ([]*call.AdminRecord, int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := make([]*call.AdminRecord, 0, len(l.records))
	for i := len(l.records) - 1; i >= 0; i-- {
		rec := l.records[i]
		all = append(all, &call.AdminRecord{
			ID:              rec.ID,
			KeyToken:        rec.APIKeySnapshot,
			Endpoint:        rec.Endpoint,
			Method:          rec.Method,
			StatusCode:      rec.StatusCode,
			ExecutionTimeMS: rec.ExecutionTimeMS,
			CreatedAt:       rec.CreatedAt,
		})
	}

	total := int64(len(all))
	if offset >= len(all) {
		return []*call.AdminRecord{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (l *CallLedger) StatsForKey(_ context.Context, keyID uuid.UUID) (*call.KeyStats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := &call.KeyStats{}
	endpoints := make(map[string]struct{})
	var totalTime int64

	for _, rec := range l.records {
		if rec.APIKeyID != keyID {
			continue
		}
		stats.TotalCalls++
		if rec.StatusCode >= 200 && rec.StatusCode < 300 {
			stats.SuccessfulCalls++
		}
		if rec.StatusCode >= 400 {
			stats.FailedCalls++
		}
		endpoints[rec.Endpoint] = struct{}{}
		totalTime += rec.ExecutionTimeMS
	}

	stats.UniqueEndpoints = int64(len(endpoints))
	if stats.TotalCalls > 0 {
		avg := float64(totalTime) / float64(stats.TotalCalls)
		stats.AvgExecutionTime = &avg
	}

	return stats, nil
}

func (l *CallLedger) GlobalStatsSince(_ context.Context, since time.Time) (*call.GlobalStats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := &call.GlobalStats{}
	keys := make(map[uuid.UUID]struct{})
	var totalTime int64

	for _, rec := range l.records {
		if rec.CreatedAt.Before(since) {
			continue
		}
		stats.TotalCalls++
		if rec.StatusCode >= 200 && rec.StatusCode < 300 {
			stats.SuccessfulCalls++
		}
		if rec.StatusCode >= 400 {
			stats.FailedCalls++
		}
		keys[rec.APIKeyID] = struct{}{}
		totalTime += rec.ExecutionTimeMS

		if stats.MaxExecutionTime == nil || rec.ExecutionTimeMS > *stats.MaxExecutionTime {
			v := rec.ExecutionTimeMS
			stats.MaxExecutionTime = &v
		}
		if stats.MinExecutionTime == nil || rec.ExecutionTimeMS < *stats.MinExecutionTime {
			v := rec.ExecutionTimeMS
			stats.MinExecutionTime = &v
		}
	}

	stats.ActiveKeys = int64(len(keys))
	if stats.TotalCalls > 0 {
		avg := float64(totalTime) / float64(stats.TotalCalls)
		stats.AvgExecutionTime = &avg
	}

	return stats, nil
}

// Records returns a snapshot of everything appended so far.
func (l *CallLedger) Records() []*call.Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*call.Record, len(l.records))
	for i, rec := range l.records {
		copied := *rec
		out[i] = &copied
	}
	return out
}
