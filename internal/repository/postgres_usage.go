package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/cost"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
)

// PostgresUsageRepository is the durable cost.Tracker.
type PostgresUsageRepository struct {
	db *sql.DB
}

func NewPostgresUsageRepository(db *sql.DB) *PostgresUsageRepository {
	return &PostgresUsageRepository{db: db}
}

// Record returns domain.ErrAlreadyReported when the request ID was already recorded.
func (r *PostgresUsageRepository) Record(ctx context.Context, record cost.UsageRecord) error {
	query := `
		INSERT INTO usage_records (request_id, user_id, model, prompt_tokens, completion_tokens, usage_source, cost_usd, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.RequestID,
		record.UserID,
		record.Model,
		record.PromptTokens,
		record.CompletionTokens,
		string(record.Source),
		record.CostUSD,
		record.Timestamp,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyReported
	}
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}

	return nil
}

func (r *PostgresUsageRepository) GetUserUsage(ctx context.Context, userID string, since time.Time) ([]cost.UsageRecord, error) {
	query := `
		SELECT request_id, user_id, model, prompt_tokens, completion_tokens, usage_source, cost_usd, created_at
		FROM usage_records
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("query usage records: %w", err)
	}
	defer rows.Close()

	var records []cost.UsageRecord
	for rows.Next() {
		var record cost.UsageRecord
		var source string
		err := rows.Scan(
			&record.RequestID,
			&record.UserID,
			&record.Model,
			&record.PromptTokens,
			&record.CompletionTokens,
			&source,
			&record.CostUSD,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		record.Source = domain.UsageSource(source)
		records = append(records, record)
	}

	return records, rows.Err()
}

func (r *PostgresUsageRepository) GetUserTotalCost(ctx context.Context, userID string, since time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(cost_usd), 0)
		FROM usage_records
		WHERE user_id = $1 AND created_at >= $2
	`

	var total float64
	if err := r.db.QueryRowContext(ctx, query, userID, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("query total cost: %w", err)
	}

	return total, nil
}
