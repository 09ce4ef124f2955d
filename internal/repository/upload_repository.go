package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"siteinspect/internal/models"
)

var ErrUploadNotFound = errors.New("upload not found")

type UploadRepository struct {
	pool *pgxpool.Pool
}

func NewUploadRepository(pool *pgxpool.Pool) *UploadRepository {
	return &UploadRepository{pool: pool}
}

func (r *UploadRepository) Create(ctx context.Context, rec models.UploadRecord) error {
	const query = `
		INSERT INTO uploads (
			id, filename, content_type, category, bucket, object_key, size_bytes, blob_url, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.Filename,
		rec.ContentType,
		rec.Category,
		rec.Bucket,
		rec.ObjectKey,
		rec.SizeBytes,
		rec.BlobURL,
		rec.CreatedAt,
	)
	return err
}

func (r *UploadRepository) GetByID(ctx context.Context, id string) (models.UploadRecord, error) {
	const query = `
		SELECT id, filename, content_type, category, bucket, object_key, size_bytes, blob_url, created_at
		FROM uploads WHERE id = $1
	`

	row := r.pool.QueryRow(ctx, query, id)
	var rec models.UploadRecord
	if err := row.Scan(
		&rec.ID,
		&rec.Filename,
		&rec.ContentType,
		&rec.Category,
		&rec.Bucket,
		&rec.ObjectKey,
		&rec.SizeBytes,
		&rec.BlobURL,
		&rec.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.UploadRecord{}, ErrUploadNotFound
		}
		return models.UploadRecord{}, err
	}
	return rec, nil
}

func (r *UploadRepository) List(ctx context.Context, category models.Category, limit, offset int) ([]models.UploadRecord, error) {
	const query = `
		SELECT id, filename, content_type, category, bucket, object_key, size_bytes, blob_url, created_at
		FROM uploads
		WHERE ($1 = '' OR category = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, string(category), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.UploadRecord
	for rows.Next() {
		var rec models.UploadRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Filename,
			&rec.ContentType,
			&rec.Category,
			&rec.Bucket,
			&rec.ObjectKey,
			&rec.SizeBytes,
			&rec.BlobURL,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
