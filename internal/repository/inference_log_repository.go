package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"siteinspect/internal/models"
)

// InferenceLogRepository appends denormalized inference log entries. Writes
// are best-effort at the call sites; rows are never updated or deleted here.
type InferenceLogRepository struct {
	pool *pgxpool.Pool
}

func NewInferenceLogRepository(pool *pgxpool.Pool) *InferenceLogRepository {
	return &InferenceLogRepository{pool: pool}
}

func (r *InferenceLogRepository) Insert(ctx context.Context, entry models.LogEntry) error {
	const query = `
		INSERT INTO inference_logs (
			id, filename, category, blob_url, status, total_objects, result, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.Filename,
		entry.Category,
		entry.BlobURL,
		entry.Status,
		entry.TotalObjects,
		entry.Result,
		entry.Timestamp,
	)
	return err
}

func (r *InferenceLogRepository) ListRecent(ctx context.Context, category models.Category, limit int) ([]models.LogEntry, error) {
	const query = `
		SELECT id, filename, category, blob_url, status, total_objects, result, created_at
		FROM inference_logs
		WHERE ($1 = '' OR category = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, string(category), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LogEntry
	for rows.Next() {
		var entry models.LogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Filename,
			&entry.Category,
			&entry.BlobURL,
			&entry.Status,
			&entry.TotalObjects,
			&entry.Result,
			&entry.Timestamp,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
