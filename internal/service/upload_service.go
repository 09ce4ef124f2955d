package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/rs/zerolog"

	"siteinspect/internal/besteffort"
	"siteinspect/internal/ids"
	"siteinspect/internal/inference"
	"siteinspect/internal/media/sniffer"
	"siteinspect/internal/models"
)

// BlobStore is the slice of object storage the upload flow needs.
type BlobStore interface {
	Put(ctx context.Context, bucket, key, contentType string, data []byte) error
	PresignedGet(ctx context.Context, bucket, key string) (string, error)
	PublicURL(bucket, key string) string
	UploadsBucket() string
}

// Records persists upload metadata. Writes are best-effort.
type Records interface {
	Create(ctx context.Context, rec models.UploadRecord) error
}

// Analyzer dispatches a stored blob to the inference service.
type Analyzer interface {
	Analyze(ctx context.Context, category models.Category, blobURL string) (inference.Result, error)
}

// TaskQueue enqueues follow-up work for the log worker.
type TaskQueue interface {
	Enqueue(ctx context.Context, values map[string]any) error
}

type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
	Category    models.Category
	Analyze     bool
}

type UploadOutput struct {
	Record       models.UploadRecord
	BlobURL      string
	Inference    *inference.Result
	InferenceErr string
}

var (
	ErrEmptyFile   = errors.New("empty file")
	ErrBadMimeType = errors.New("content type mismatch")
)

type UploadService struct {
	store   BlobStore
	records Records
	infer   Analyzer
	tasks   TaskQueue
	log     zerolog.Logger
}

func NewUploadService(store BlobStore, records Records, infer Analyzer, tasks TaskQueue, log zerolog.Logger) *UploadService {
	return &UploadService{
		store:   store,
		records: records,
		infer:   infer,
		tasks:   tasks,
		log:     log,
	}
}

// Upload persists the file, optionally dispatches inference, and writes the
// metadata record and log task without ever failing the primary upload for
// them. The returned output always carries the storage location.
func (s *UploadService) Upload(ctx context.Context, input UploadInput) (UploadOutput, error) {
	if len(input.Data) == 0 {
		return UploadOutput{}, ErrEmptyFile
	}

	head := input.Data
	if len(head) > 512 {
		head = head[:512]
	}
	result, err := sniffer.DetectHead(head)
	if err != nil {
		// Salvage camera uploads that arrive with multipart debris around
		// the actual JPEG stream.
		if fixed, fixErr := sniffer.ExtractJPEG(input.Data); fixErr == nil {
			input.Data = fixed
			result = sniffer.Result{Type: sniffer.TypeJPEG, MIME: "image/jpeg"}
		} else {
			return UploadOutput{}, fmt.Errorf("detect type: %w", err)
		}
	}

	if input.ContentType != "" && input.ContentType != "application/octet-stream" && input.ContentType != result.MIME {
		return UploadOutput{}, fmt.Errorf("%w: declared %s, actual %s", ErrBadMimeType, input.ContentType, result.MIME)
	}

	recordID := ids.New()
	objectKey := buildObjectKey(input.Category, recordID, input.Filename, string(result.Type))

	bucket := s.store.UploadsBucket()
	if err := s.store.Put(ctx, bucket, objectKey, result.MIME, input.Data); err != nil {
		return UploadOutput{}, fmt.Errorf("store blob: %w", err)
	}

	blobURL, err := s.store.PresignedGet(ctx, bucket, objectKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", objectKey).Msg("presign failed, falling back to public url")
		blobURL = s.store.PublicURL(bucket, objectKey)
	}

	record := models.UploadRecord{
		ID:          recordID,
		Filename:    input.Filename,
		ContentType: result.MIME,
		Category:    input.Category,
		Bucket:      bucket,
		ObjectKey:   objectKey,
		SizeBytes:   int64(len(input.Data)),
		BlobURL:     blobURL,
		CreatedAt:   time.Now().UTC(),
	}

	output := UploadOutput{
		Record:  record,
		BlobURL: blobURL,
	}

	if input.Analyze {
		result, inferErr := s.infer.Analyze(ctx, input.Category, blobURL)
		if inferErr != nil {
			// The upload succeeded; surface the inference failure inside
			// the response instead of aborting.
			s.log.Warn().Err(inferErr).Str("category", string(input.Category)).Msg("inference dispatch failed")
			output.InferenceErr = inferErr.Error()
		} else {
			output.Inference = &result
		}
	}

	_ = besteffort.Run(s.log, "upload record insert", func() error {
		return s.records.Create(ctx, record)
	})

	_ = besteffort.Run(s.log, "log task enqueue", func() error {
		return s.tasks.Enqueue(ctx, logTask(record, output))
	})

	return output, nil
}

func buildObjectKey(category models.Category, recordID, filename, ext string) string {
	if filename == "" {
		filename = recordID + "." + ext
	}
	datePrefix := time.Now().UTC().Format("2006/01/02")
	return path.Join(string(category), datePrefix, recordID+"_"+filename)
}

func logTask(record models.UploadRecord, output UploadOutput) map[string]any {
	task := map[string]any{
		"type":      "record",
		"id":        record.ID,
		"filename":  record.Filename,
		"category":  string(record.Category),
		"blob_url":  record.BlobURL,
		"timestamp": record.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if output.Inference != nil {
		task["status"] = output.Inference.Status
		task["total_objects"] = output.Inference.TotalObjects
		task["result"] = string(output.Inference.Raw)
	} else {
		task["status"] = "uploaded"
		task["total_objects"] = 0
		if output.InferenceErr != "" {
			task["status"] = "inference_error"
			task["result"] = output.InferenceErr
		}
	}
	return task
}
