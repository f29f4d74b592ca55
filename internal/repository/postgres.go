package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
)

// Schema creates the tables used by the Postgres repositories.
const Schema = `
CREATE TABLE IF NOT EXISTS generations (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	prompt     TEXT NOT NULL,
	html_code  TEXT NOT NULL,
	model      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS generations_user_created_idx ON generations (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	balance    DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (balance >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS usage_records (
	request_id        TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	model             TEXT NOT NULL,
	prompt_tokens     INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	usage_source      TEXT NOT NULL,
	cost_usd          DOUBLE PRECISION NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS usage_records_user_created_idx ON usage_records (user_id, created_at);
`

const uniqueViolation = "23505"

func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

type PostgresGenerationRepository struct {
	db *sql.DB
}

func NewPostgresGenerationRepository(db *sql.DB) *PostgresGenerationRepository {
	return &PostgresGenerationRepository{db: db}
}

func (r *PostgresGenerationRepository) Save(ctx context.Context, gen *domain.Generation) error {
	query := `
		INSERT INTO generations (id, user_id, prompt, html_code, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		gen.ID,
		gen.UserID,
		gen.Prompt,
		gen.HTML,
		gen.Model,
		gen.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}

	return nil
}

func (r *PostgresGenerationRepository) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	query := `
		SELECT id, user_id, prompt, html_code, model, created_at
		FROM generations
		WHERE id = $1
	`

	var gen domain.Generation
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&gen.ID,
		&gen.UserID,
		&gen.Prompt,
		&gen.HTML,
		&gen.Model,
		&gen.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query generation: %w", err)
	}

	return &gen, nil
}

func (r *PostgresGenerationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Generation, error) {
	query := `
		SELECT id, user_id, prompt, html_code, model, created_at
		FROM generations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var limitArg sql.NullInt64
	if limit > 0 {
		limitArg = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	rows, err := r.db.QueryContext(ctx, query, userID, limitArg)
	if err != nil {
		return nil, fmt.Errorf("query generations: %w", err)
	}
	defer rows.Close()

	generations := make([]*domain.Generation, 0)
	for rows.Next() {
		var gen domain.Generation
		if err := rows.Scan(
			&gen.ID,
			&gen.UserID,
			&gen.Prompt,
			&gen.HTML,
			&gen.Model,
			&gen.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		generations = append(generations, &gen)
	}

	return generations, rows.Err()
}

type PostgresWalletRepository struct {
	db *sql.DB
}

func NewPostgresWalletRepository(db *sql.DB) *PostgresWalletRepository {
	return &PostgresWalletRepository{db: db}
}

func (r *PostgresWalletRepository) Balance(ctx context.Context, userID string) (float64, error) {
	var balance float64
	err := r.db.QueryRowContext(ctx, `SELECT balance FROM profiles WHERE id = $1`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return balance, nil
}

// Debit locks the profile row so concurrent debits cannot both read the old balance.
func (r *PostgresWalletRepository) Debit(ctx context.Context, userID string, amount float64) (float64, error) {
	query := `
		WITH prev AS (
			SELECT id, balance FROM profiles WHERE id = $1 FOR UPDATE
		)
		UPDATE profiles p
		SET balance = GREATEST(prev.balance - $2, 0), updated_at = $3
		FROM prev
		WHERE p.id = prev.id
		RETURNING p.balance, prev.balance
	`

	var balance, previous float64
	err := r.db.QueryRowContext(ctx, query, userID, amount, time.Now()).Scan(&balance, &previous)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("debit balance: %w", err)
	}

	if amount > previous {
		return balance, domain.ErrInsufficientBalance
	}
	return balance, nil
}

func (r *PostgresWalletRepository) Credit(ctx context.Context, userID string, amount float64) (float64, error) {
	query := `
		INSERT INTO profiles (id, balance, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET balance = profiles.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
		RETURNING balance
	`

	var balance float64
	if err := r.db.QueryRowContext(ctx, query, userID, amount, time.Now()).Scan(&balance); err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}
	return balance, nil
}
