package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marnevik/prompt-service-api/internal/domain/call"
	"go.uber.org/zap"
)

type CallRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCallRepository(db *pgxpool.Pool, logger *zap.Logger) *CallRepository {
	return &CallRepository{
		db:     db,
		logger: logger.Named("CallRepository"),
	}
}

var _ call.Ledger = (*CallRepository)(nil)

func (r *CallRepository) Append(ctx context.Context, rec *call.Record) error {
	query := `
		INSERT INTO api_calls
			(apikey_id, api_key, endpoint, method, status_code, request_body,
			 response_body, error_message, ip_address, user_agent, execution_time_ms)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		rec.APIKeyID,
		rec.APIKeySnapshot,
		rec.Endpoint,
		rec.Method,
		rec.StatusCode,
		rec.RequestBody,
		rec.ResponseBody,
		rec.ErrorMessage,
		rec.IPAddress,
		rec.UserAgent,
		rec.ExecutionTimeMS,
	)
	if err != nil {
		r.logger.Error("Failed to append call record",
			zap.String("apikey_id", rec.APIKeyID.String()),
			zap.String("endpoint", rec.Endpoint),
			zap.Error(err),
		)
		return fmt.Errorf("db error appending call record: %w", err)
	}

	return nil
}

func (r *CallRepository) ListByKey(ctx context.Context, keyID uuid.UUID, limit, offset int) ([]*call.Record, int64, error) {
	query := `
		SELECT id, endpoint, method, status_code, execution_time_ms, ip_address, created_at
		FROM api_calls
		WHERE apikey_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, keyID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to query call records for key", zap.String("apikey_id", keyID.String()), zap.Error(err))
		return nil, 0, fmt.Errorf("db error listing call records: %w", err)
	}
	defer rows.Close()

	records := make([]*call.Record, 0)
	for rows.Next() {
		var rec call.Record
		rec.APIKeyID = keyID
		if err := rows.Scan(
			&rec.ID,
			&rec.Endpoint,
			&rec.Method,
			&rec.StatusCode,
			&rec.ExecutionTimeMS,
			&rec.IPAddress,
			&rec.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan call record row", zap.Error(err))
			return nil, 0, fmt.Errorf("db scan error listing call records: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db iteration error listing call records: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM api_calls WHERE apikey_id = $1`, keyID).Scan(&total); err != nil {
		r.logger.Error("Failed to count call records for key", zap.String("apikey_id", keyID.String()), zap.Error(err))
		return nil, 0, fmt.Errorf("db error counting call records: %w", err)
	}

	return records, total, nil
}

func (r *CallRepository) ListAll(ctx context.Context, limit, offset int) ([]*call.AdminRecord, int64, error) {
	query := `
		SELECT
			ac.id, ak.name, ak.apikey, ac.endpoint, ac.method,
			ac.status_code, ac.execution_time_ms, ac.created_at
		FROM api_calls ac
		JOIN api_keys ak ON ac.apikey_id = ak.id
		ORDER BY ac.created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to query all call records", zap.Error(err))
		return nil, 0, fmt.Errorf("db error listing all call records: %w", err)
	}
	defer rows.Close()

	records := make([]*call.AdminRecord, 0)
	for rows.Next() {
		var rec call.AdminRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.KeyName,
			&rec.KeyToken,
			&rec.Endpoint,
			&rec.Method,
			&rec.StatusCode,
			&rec.ExecutionTimeMS,
			&rec.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan admin call record row", zap.Error(err))
			return nil, 0, fmt.Errorf("db scan error listing all call records: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db iteration error listing all call records: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM api_calls`).Scan(&total); err != nil {
		r.logger.Error("Failed to count call records", zap.Error(err))
		return nil, 0, fmt.Errorf("db error counting call records: %w", err)
	}

	return records, total, nil
}

func (r *CallRepository) StatsForKey(ctx context.Context, keyID uuid.UUID) (*call.KeyStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_calls,
			COALESCE(SUM(CASE WHEN status_code >= 200 AND status_code < 300 THEN 1 ELSE 0 END), 0) AS successful_calls,
			COALESCE(SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END), 0) AS failed_calls,
			COUNT(DISTINCT endpoint) AS unique_endpoints,
			AVG(execution_time_ms) AS avg_execution_time
		FROM api_calls
		WHERE apikey_id = $1
	`

	var stats call.KeyStats
	var avg sql.NullFloat64
	err := r.db.QueryRow(ctx, query, keyID).Scan(
		&stats.TotalCalls,
		&stats.SuccessfulCalls,
		&stats.FailedCalls,
		&stats.UniqueEndpoints,
		&avg,
	)
	if err != nil {
		r.logger.Error("Failed to aggregate call stats for key", zap.String("apikey_id", keyID.String()), zap.Error(err))
		return nil, fmt.Errorf("db error aggregating call stats: %w", err)
	}

	if avg.Valid {
		stats.AvgExecutionTime = &avg.Float64
	}

	return &stats, nil
}

func (r *CallRepository) GlobalStatsSince(ctx context.Context, since time.Time) (*call.GlobalStats, error) {
	query := `
		SELECT
			COUNT(DISTINCT apikey_id) AS active_keys,
			COUNT(*) AS total_calls,
			COALESCE(SUM(CASE WHEN status_code >= 200 AND status_code < 300 THEN 1 ELSE 0 END), 0) AS successful_calls,
			COALESCE(SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END), 0) AS failed_calls,
			AVG(execution_time_ms) AS avg_execution_time,
			MAX(execution_time_ms) AS max_execution_time,
			MIN(execution_time_ms) AS min_execution_time
		FROM api_calls
		WHERE created_at >= $1
	`

	var stats call.GlobalStats
	var avg sql.NullFloat64
	var maxTime, minTime sql.NullInt64
	err := r.db.QueryRow(ctx, query, since).Scan(
		&stats.ActiveKeys,
		&stats.TotalCalls,
		&stats.SuccessfulCalls,
		&stats.FailedCalls,
		&avg,
		&maxTime,
		&minTime,
	)
	if err != nil {
		r.logger.Error("Failed to aggregate global call stats", zap.Error(err))
		return nil, fmt.Errorf("db error aggregating global call stats: %w", err)
	}

	if avg.Valid {
		stats.AvgExecutionTime = &avg.Float64
	}
	if maxTime.Valid {
		stats.MaxExecutionTime = &maxTime.Int64
	}
	if minTime.Valid {
		stats.MinExecutionTime = &minTime.Int64
	}

	return &stats, nil
}
