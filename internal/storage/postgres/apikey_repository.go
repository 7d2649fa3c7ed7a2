package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marnevik/prompt-service-api/internal/domain/apikey"
	"go.uber.org/zap"
)

type APIKeyRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAPIKeyRepository(db *pgxpool.Pool, logger *zap.Logger) *APIKeyRepository {
	return &APIKeyRepository{
		db:     db,
		logger: logger.Named("APIKeyRepository"),
	}
}

var _ apikey.Store = (*APIKeyRepository)(nil)

const apiKeyColumns = `id, apikey, name, total_calls, used_calls, is_active, created_at, updated_at, last_used_at`

func (r *APIKeyRepository) Create(ctx context.Context, key *apikey.APIKey) (*apikey.APIKey, error) {
	query := `
		INSERT INTO api_keys (apikey, name, total_calls, used_calls, is_active)
		VALUES ($1, $2, $3, 0, TRUE)
		RETURNING ` + apiKeyColumns

	row := r.db.QueryRow(ctx, query, key.Token, key.Name, key.TotalCalls)

	created, err := scanAPIKey(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Failed to create API key due to unique constraint violation",
				zap.String("constraint", pgErr.ConstraintName),
			)
			return nil, fmt.Errorf("api key constraint violation (%s)", pgErr.ConstraintName)
		}
		r.logger.Error("Failed to create api key in database", zap.Error(err))
		return nil, fmt.Errorf("db error creating api key: %w", err)
	}

	r.logger.Info("API key created successfully", zap.String("id", created.ID.String()), zap.String("name", created.Name))
	return created, nil
}

func (r *APIKeyRepository) FindByToken(ctx context.Context, token string) (*apikey.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE apikey = $1`

	key, err := scanAPIKey(r.db.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("API key not found by token")
			return nil, apikey.ErrKeyNotFound
		}
		r.logger.Error("Failed to find api key by token", zap.Error(err))
		return nil, fmt.Errorf("db error finding api key: %w", err)
	}

	return key, nil
}

func (r *APIKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*apikey.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`

	key, err := scanAPIKey(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apikey.ErrKeyNotFound
		}
		r.logger.Error("Failed to find api key by id", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("db error finding api key: %w", err)
	}

	return key, nil
}

func (r *APIKeyRepository) List(ctx context.Context, limit, offset int) ([]*apikey.APIKey, int64, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to query list of api keys", zap.Error(err))
		return nil, 0, fmt.Errorf("db error listing api keys: %w", err)
	}
	defer rows.Close()

	keys := make([]*apikey.APIKey, 0)
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			r.logger.Error("Failed to scan api key row during list", zap.Error(err))
			return nil, 0, fmt.Errorf("db scan error during list: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating api key rows", zap.Error(err))
		return nil, 0, fmt.Errorf("db iteration error on list api keys: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM api_keys`).Scan(&total); err != nil {
		r.logger.Error("Failed to count api keys", zap.Error(err))
		return nil, 0, fmt.Errorf("db error counting api keys: %w", err)
	}

	return keys, total, nil
}

// ConsumeCall is the one contended write on the hot path. The WHERE guard
// makes the increment conditional, so concurrent calls on the same key can
// never push used_calls past total_calls and no update is ever lost.
func (r *APIKeyRepository) ConsumeCall(ctx context.Context, id uuid.UUID) (*apikey.Usage, error) {
	query := `
		UPDATE api_keys
		SET used_calls = used_calls + 1,
		    updated_at = CURRENT_TIMESTAMP,
		    last_used_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND used_calls < total_calls
		RETURNING used_calls, (total_calls - used_calls) AS remaining_calls
	`

	var usage apikey.Usage
	err := r.db.QueryRow(ctx, query, id).Scan(&usage.UsedCalls, &usage.RemainingCalls)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the key is gone or the quota is already spent. The
			// caller resolved the key moments ago, so treat it as exhaustion.
			r.logger.Debug("Conditional consume matched no row", zap.String("id", id.String()))
			return nil, apikey.ErrQuotaExhausted
		}
		r.logger.Error("Failed to consume api key call", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("db error consuming call: %w", err)
	}

	return &usage, nil
}

func (r *APIKeyRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*apikey.APIKey, error) {
	query := `
		UPDATE api_keys
		SET is_active = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING ` + apiKeyColumns

	key, err := scanAPIKey(r.db.QueryRow(ctx, query, id, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apikey.ErrKeyNotFound
		}
		r.logger.Error("Failed to update api key active state", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("db error updating api key state: %w", err)
	}

	r.logger.Info("API key active state updated", zap.String("id", id.String()), zap.Bool("is_active", active))
	return key, nil
}

func (r *APIKeyRepository) Delete(ctx context.Context, id uuid.UUID) (*apikey.APIKey, error) {
	query := `DELETE FROM api_keys WHERE id = $1 RETURNING ` + apiKeyColumns

	key, err := scanAPIKey(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apikey.ErrKeyNotFound
		}
		r.logger.Error("Failed to delete api key", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("db error deleting api key: %w", err)
	}

	r.logger.Info("API key deleted", zap.String("id", id.String()), zap.String("name", key.Name))
	return key, nil
}

func scanAPIKey(row pgx.Row) (*apikey.APIKey, error) {
	var key apikey.APIKey
	var lastUsed sql.NullTime

	err := row.Scan(
		&key.ID,
		&key.Token,
		&key.Name,
		&key.TotalCalls,
		&key.UsedCalls,
		&key.IsActive,
		&key.CreatedAt,
		&key.UpdatedAt,
		&lastUsed,
	)
	if err != nil {
		return nil, err
	}

	if lastUsed.Valid {
		key.LastUsedAt = &lastUsed.Time
	}

	return &key, nil
}
