// Package tasks executes the payloads the gateway, inferd and scheduler put
// on the task stream: record appends, retention cleanup and partition
// compaction.
package tasks

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"siteinspect/internal/besteffort"
	"siteinspect/internal/config"
	"siteinspect/internal/models"
)

// LogSink is the columnar log maintained in object storage.
type LogSink interface {
	Append(ctx context.Context, entry models.LogEntry) error
	Compact(ctx context.Context, category string, day time.Time) error
}

// LogStore is the row store for inference log entries. May be nil.
type LogStore interface {
	Insert(ctx context.Context, entry models.LogEntry) error
}

// BlobJanitor lists and removes expired upload blobs.
type BlobJanitor interface {
	ListOlderThan(ctx context.Context, bucket, prefix string, cutoff time.Time) ([]string, error)
	Remove(ctx context.Context, bucket, key string) error
	UploadsBucket() string
}

type Processor struct {
	sink  LogSink
	store LogStore
	blobs BlobJanitor
	cfg   config.LogSinkConfig
	log   zerolog.Logger
}

func NewProcessor(sink LogSink, store LogStore, blobs BlobJanitor, cfg config.LogSinkConfig, log zerolog.Logger) *Processor {
	return &Processor{
		sink:  sink,
		store: store,
		blobs: blobs,
		cfg:   cfg,
		log:   log,
	}
}

// Handle dispatches one stream message. Unknown task types are acked and
// dropped; redelivering them forever helps nobody.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	taskType := stringValue(msg.Values, "type")

	switch taskType {
	case "record":
		return p.handleRecord(ctx, msg.Values)
	case "cleanup":
		return p.handleCleanup(ctx)
	case "compact":
		return p.handleCompact(ctx, msg.Values)
	default:
		p.log.Warn().
			Str("message_id", msg.ID).
			Str("type", taskType).
			Msg("unknown task type, dropping")
		return nil
	}
}

func (p *Processor) handleRecord(ctx context.Context, values map[string]any) error {
	entry := models.LogEntry{
		ID:           stringValue(values, "id"),
		Filename:     stringValue(values, "filename"),
		Category:     models.Category(stringValue(values, "category")),
		BlobURL:      stringValue(values, "blob_url"),
		Status:       stringValue(values, "status"),
		TotalObjects: intValue(values, "total_objects"),
		Result:       stringValue(values, "result"),
		Timestamp:    timeValue(values, "timestamp"),
	}
	if entry.ID == "" {
		p.log.Warn().Msg("record task without id, dropping")
		return nil
	}
	if entry.Category == "" {
		entry.Category = models.CategoryGeneral
	}

	if err := p.sink.Append(ctx, entry); err != nil {
		return fmt.Errorf("append log entry %s: %w", entry.ID, err)
	}

	if p.store != nil {
		_ = besteffort.Run(p.log, "log row insert", func() error {
			return p.store.Insert(ctx, entry)
		})
	}

	p.log.Info().
		Str("id", entry.ID).
		Str("category", string(entry.Category)).
		Str("status", entry.Status).
		Msg("log entry recorded")
	return nil
}

func (p *Processor) handleCleanup(ctx context.Context) error {
	retention := time.Duration(p.cfg.RetentionDays) * 24 * time.Hour
	if retention <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-retention)

	keys, err := p.blobs.ListOlderThan(ctx, p.blobs.UploadsBucket(), "", cutoff)
	if err != nil {
		return fmt.Errorf("list expired uploads: %w", err)
	}

	removed := 0
	for _, key := range keys {
		if err := p.blobs.Remove(ctx, p.blobs.UploadsBucket(), key); err != nil {
			p.log.Error().Err(err).Str("key", key).Msg("remove expired upload")
			continue
		}
		removed++
	}

	p.log.Info().
		Int("candidates", len(keys)).
		Int("removed", removed).
		Msg("upload cleanup complete")
	return nil
}

func (p *Processor) handleCompact(ctx context.Context, values map[string]any) error {
	day := time.Now().UTC()
	if raw := stringValue(values, "day"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			p.log.Warn().Str("day", raw).Msg("bad compact day, using today")
		} else {
			day = parsed
		}
	}

	categories := []models.Category{
		models.CategoryGeneral,
		models.CategoryDresscode,
		models.CategoryDustbin,
		models.CategoryLights,
	}
	for _, category := range categories {
		if err := p.sink.Compact(ctx, string(category), day); err != nil {
			return fmt.Errorf("compact %s: %w", category, err)
		}
	}
	return nil
}

// Stream values arrive as strings regardless of the type they were
// enqueued with.
func stringValue(values map[string]any, key string) string {
	if v, ok := values[key].(string); ok {
		return v
	}
	return ""
}

func intValue(values map[string]any, key string) int {
	switch v := values[key].(type) {
	case string:
		n, _ := strconv.Atoi(v)
		return n
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func timeValue(values map[string]any, key string) time.Time {
	raw := stringValue(values, key)
	if raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}
