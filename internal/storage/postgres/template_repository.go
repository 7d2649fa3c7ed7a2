package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marnevik/prompt-service-api/internal/domain/template"
	"go.uber.org/zap"
)

type TemplateRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTemplateRepository(db *pgxpool.Pool, logger *zap.Logger) *TemplateRepository {
	return &TemplateRepository{
		db:     db,
		logger: logger.Named("TemplateRepository"),
	}
}

var _ template.Registry = (*TemplateRepository)(nil)

func (r *TemplateRepository) Create(ctx context.Context, tpl *template.PromptTemplate) (*template.PromptTemplate, error) {
	varsJSON, err := json.Marshal(tpl.Variables)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal template variables: %w", err)
	}

	query := `
		INSERT INTO custom_apis (name, prompt_template, variables, endpoint)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, prompt_template, variables, endpoint, created_at
	`

	created, err := scanTemplate(r.db.QueryRow(ctx, query, tpl.Name, tpl.PromptTemplate, varsJSON, tpl.Endpoint))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Duplicate template name", zap.String("name", tpl.Name))
			return nil, fmt.Errorf("template '%s' already exists", tpl.Name)
		}
		r.logger.Error("Failed to create prompt template", zap.String("name", tpl.Name), zap.Error(err))
		return nil, fmt.Errorf("db error creating template: %w", err)
	}

	r.logger.Info("Prompt template created", zap.String("id", created.ID.String()), zap.String("name", created.Name))
	return created, nil
}

func (r *TemplateRepository) FindByID(ctx context.Context, id uuid.UUID) (*template.PromptTemplate, error) {
	query := `
		SELECT id, name, prompt_template, variables, endpoint, created_at
		FROM custom_apis
		WHERE id = $1
	`

	tpl, err := scanTemplate(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, template.ErrTemplateNotFound
		}
		r.logger.Error("Failed to find prompt template", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("db error finding template: %w", err)
	}

	return tpl, nil
}

func (r *TemplateRepository) List(ctx context.Context) ([]*template.PromptTemplate, error) {
	query := `
		SELECT id, name, prompt_template, variables, endpoint, created_at
		FROM custom_apis
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query prompt templates", zap.Error(err))
		return nil, fmt.Errorf("db error listing templates: %w", err)
	}
	defer rows.Close()

	templates := make([]*template.PromptTemplate, 0)
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			r.logger.Error("Failed to scan template row", zap.Error(err))
			return nil, fmt.Errorf("db scan error listing templates: %w", err)
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db iteration error listing templates: %w", err)
	}

	return templates, nil
}

func scanTemplate(row pgx.Row) (*template.PromptTemplate, error) {
	var tpl template.PromptTemplate
	var varsJSON []byte

	err := row.Scan(
		&tpl.ID,
		&tpl.Name,
		&tpl.PromptTemplate,
		&varsJSON,
		&tpl.Endpoint,
		&tpl.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(varsJSON) > 0 {
		if err := json.Unmarshal(varsJSON, &tpl.Variables); err != nil {
			return nil, fmt.Errorf("failed to unmarshal template variables: %w", err)
		}
	}

	return &tpl, nil
}
