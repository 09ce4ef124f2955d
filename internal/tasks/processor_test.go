package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteinspect/internal/config"
	"siteinspect/internal/models"
)

type fakeSink struct {
	appended  []models.LogEntry
	compacted []string
	appendErr error
}

func (f *fakeSink) Append(_ context.Context, entry models.LogEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, entry)
	return nil
}

func (f *fakeSink) Compact(_ context.Context, category string, _ time.Time) error {
	f.compacted = append(f.compacted, category)
	return nil
}

type fakeStore struct {
	inserted []models.LogEntry
	err      error
}

func (f *fakeStore) Insert(_ context.Context, entry models.LogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, entry)
	return nil
}

type fakeJanitor struct {
	keys      []string
	removed   []string
	removeErr map[string]error
}

func (f *fakeJanitor) ListOlderThan(_ context.Context, _, _ string, _ time.Time) ([]string, error) {
	return f.keys, nil
}

func (f *fakeJanitor) Remove(_ context.Context, _, key string) error {
	if err := f.removeErr[key]; err != nil {
		return err
	}
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeJanitor) UploadsBucket() string { return "uploads" }

func newProcessor(sink *fakeSink, store *fakeStore, janitor *fakeJanitor) *Processor {
	cfg := config.LogSinkConfig{Store: "siteinspect", Root: "logs", RetentionDays: 30}
	var logStore LogStore
	if store != nil {
		logStore = store
	}
	return NewProcessor(sink, logStore, janitor, cfg, zerolog.Nop())
}

func recordMessage() redis.XMessage {
	return redis.XMessage{
		ID: "1-0",
		Values: map[string]any{
			"type":          "record",
			"id":            "rec-1",
			"filename":      "site.jpg",
			"category":      "dustbin",
			"blob_url":      "http://blobs/site.jpg",
			"status":        "no_dustbin",
			"total_objects": "0",
			"result":        `{"status":"no_dustbin"}`,
			"timestamp":     "2026-08-30T12:00:00.5Z",
		},
	}
}

func TestHandleRecord(t *testing.T) {
	sink := &fakeSink{}
	store := &fakeStore{}
	proc := newProcessor(sink, store, &fakeJanitor{})

	require.NoError(t, proc.Handle(context.Background(), recordMessage()))

	require.Len(t, sink.appended, 1)
	entry := sink.appended[0]
	assert.Equal(t, "rec-1", entry.ID)
	assert.Equal(t, models.CategoryDustbin, entry.Category)
	assert.Equal(t, "no_dustbin", entry.Status)
	assert.Equal(t, 0, entry.TotalObjects)
	assert.Equal(t, time.Date(2026, 8, 30, 12, 0, 0, 500000000, time.UTC), entry.Timestamp)

	require.Len(t, store.inserted, 1)
	assert.Equal(t, "rec-1", store.inserted[0].ID)
}

func TestHandleRecordSinkFailurePropagates(t *testing.T) {
	sink := &fakeSink{appendErr: errors.New("write partition: bucket missing")}
	proc := newProcessor(sink, nil, &fakeJanitor{})

	err := proc.Handle(context.Background(), recordMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append log entry rec-1")
}

func TestHandleRecordStoreFailureIsBestEffort(t *testing.T) {
	sink := &fakeSink{}
	store := &fakeStore{err: context.DeadlineExceeded}
	proc := newProcessor(sink, store, &fakeJanitor{})

	require.NoError(t, proc.Handle(context.Background(), recordMessage()))
	assert.Len(t, sink.appended, 1)
}

func TestHandleRecordWithoutIDIsDropped(t *testing.T) {
	sink := &fakeSink{}
	proc := newProcessor(sink, nil, &fakeJanitor{})

	msg := redis.XMessage{ID: "2-0", Values: map[string]any{"type": "record"}}
	require.NoError(t, proc.Handle(context.Background(), msg))
	assert.Empty(t, sink.appended)
}

func TestHandleCleanup(t *testing.T) {
	janitor := &fakeJanitor{
		keys:      []string{"dustbin/2026/07/01/a.jpg", "lights/2026/07/02/b.jpg", "stuck.jpg"},
		removeErr: map[string]error{"stuck.jpg": errors.New("locked")},
	}
	proc := newProcessor(&fakeSink{}, nil, janitor)

	msg := redis.XMessage{ID: "3-0", Values: map[string]any{"type": "cleanup"}}
	require.NoError(t, proc.Handle(context.Background(), msg))
	assert.Equal(t, []string{"dustbin/2026/07/01/a.jpg", "lights/2026/07/02/b.jpg"}, janitor.removed)
}

func TestHandleCompactCoversAllCategories(t *testing.T) {
	sink := &fakeSink{}
	proc := newProcessor(sink, nil, &fakeJanitor{})

	msg := redis.XMessage{ID: "4-0", Values: map[string]any{"type": "compact", "day": "2026-08-30"}}
	require.NoError(t, proc.Handle(context.Background(), msg))
	assert.Equal(t, []string{"general", "dresscode", "dustbin", "lights"}, sink.compacted)
}

func TestHandleUnknownTypeIsAcked(t *testing.T) {
	proc := newProcessor(&fakeSink{}, nil, &fakeJanitor{})

	msg := redis.XMessage{ID: "5-0", Values: map[string]any{"type": "reindex"}}
	require.NoError(t, proc.Handle(context.Background(), msg))
}
