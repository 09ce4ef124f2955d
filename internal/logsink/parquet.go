// Package logsink maintains the date-partitioned columnar log in object
// storage. Partitions live at
// logs/{store}/{category}/year=YYYY/month=MM/day=DD/log.parquet and are
// merged by reading, concatenating and rewriting the partition file; the
// store has no append-in-place.
package logsink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"

	"siteinspect/internal/config"
	"siteinspect/internal/models"
	"siteinspect/internal/storage"
)

type Row struct {
	ID           string `parquet:"id"`
	Filename     string `parquet:"filename"`
	Category     string `parquet:"category"`
	BlobURL      string `parquet:"blob_url"`
	Status       string `parquet:"status"`
	TotalObjects int32  `parquet:"total_objects"`
	Result       string `parquet:"result"`
	TimestampMS  int64  `parquet:"timestamp_ms"`
}

// BlobStore is the slice of object storage the partition log needs.
// Satisfied by storage.ObjectStore.
type BlobStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key, contentType string, data []byte) error
	LogsBucket() string
}

type Store struct {
	store BlobStore
	cfg   config.LogSinkConfig
	log   zerolog.Logger
}

func NewStore(store BlobStore, cfg config.LogSinkConfig, log zerolog.Logger) *Store {
	return &Store{
		store: store,
		cfg:   cfg,
		log:   log,
	}
}

// Append merges entry into its partition file.
func (s *Store) Append(ctx context.Context, entry models.LogEntry) error {
	key := PartitionKey(s.cfg.Root, s.cfg.Store, string(entry.Category), entry.Timestamp)

	rows, err := s.readPartition(ctx, key)
	if err != nil {
		return err
	}
	rows = append(rows, toRow(entry))

	return s.writePartition(ctx, key, rows)
}

// Compact rewrites a partition keeping one row per id (redeliveries from
// the task stream can insert the same entry twice).
func (s *Store) Compact(ctx context.Context, category string, day time.Time) error {
	key := PartitionKey(s.cfg.Root, s.cfg.Store, category, day)

	rows, err := s.readPartition(ctx, key)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	seen := make(map[string]int, len(rows))
	deduped := rows[:0]
	for _, row := range rows {
		if idx, ok := seen[row.ID]; ok {
			deduped[idx] = row
			continue
		}
		seen[row.ID] = len(deduped)
		deduped = append(deduped, row)
	}

	if len(deduped) == len(rows) {
		return nil
	}

	s.log.Info().
		Str("key", key).
		Int("before", len(rows)).
		Int("after", len(deduped)).
		Msg("compacted log partition")

	return s.writePartition(ctx, key, deduped)
}

func (s *Store) readPartition(ctx context.Context, key string) ([]Row, error) {
	data, err := s.store.Get(ctx, s.store.LogsBucket(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read partition %s: %w", key, err)
	}

	rows, err := parquet.Read[Row](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("decode partition %s: %w", key, err)
	}
	return rows, nil
}

func (s *Store) writePartition(ctx context.Context, key string, rows []Row) error {
	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[Row](&buf)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("encode partition %s: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close partition writer %s: %w", key, err)
	}

	if err := s.store.Put(ctx, s.store.LogsBucket(), key, "application/octet-stream", buf.Bytes()); err != nil {
		return fmt.Errorf("write partition %s: %w", key, err)
	}
	return nil
}

func PartitionKey(root, store, category string, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s/%s/%s/year=%04d/month=%02d/day=%02d/log.parquet",
		root, store, category, t.Year(), int(t.Month()), t.Day())
}

func toRow(entry models.LogEntry) Row {
	return Row{
		ID:           entry.ID,
		Filename:     entry.Filename,
		Category:     string(entry.Category),
		BlobURL:      entry.BlobURL,
		Status:       entry.Status,
		TotalObjects: int32(entry.TotalObjects),
		Result:       entry.Result,
		TimestampMS:  entry.Timestamp.UTC().UnixMilli(),
	}
}
