// Package inferd implements the inference service: it downloads a stored
// blob, runs the category's detector and applies the domain rule on top of
// the raw detections.
package inferd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"siteinspect/internal/besteffort"
	"siteinspect/internal/config"
	"siteinspect/internal/detector"
	"siteinspect/internal/ids"
	"siteinspect/internal/models"
	"siteinspect/internal/retry"
	"siteinspect/internal/vision/color"
	"siteinspect/internal/vision/dresscode"
	"siteinspect/internal/vision/passthrough"
)

var (
	ErrFetch        = errors.New("blob download failed")
	ErrInvalidImage = errors.New("invalid image payload")
)

// LogWriter appends a log entry to the document store.
type LogWriter interface {
	Insert(ctx context.Context, entry models.LogEntry) error
}

// TaskQueue enqueues follow-up work for the log worker.
type TaskQueue interface {
	Enqueue(ctx context.Context, values map[string]any) error
}

// DetectionView is a detection as it appears in the inference response,
// optionally enriched with the classified garment color.
type DetectionView struct {
	Label       string     `json:"label"`
	Confidence  float64    `json:"confidence"`
	Box         [4]float64 `json:"bbox"`
	Color       string     `json:"color,omitempty"`
	DominantRGB *color.RGB `json:"dominant_rgb,omitempty"`
	ColorShare  float64    `json:"color_percentage,omitempty"`
}

type Response struct {
	Status       string          `json:"status"`
	Message      string          `json:"message,omitempty"`
	Detections   []DetectionView `json:"detections"`
	TotalObjects int             `json:"total_objects"`
	ShirtColor   *string         `json:"shirt_color,omitempty"`
	PantColor    *string         `json:"pant_color,omitempty"`
	ShoeColor    *string         `json:"shoe_color,omitempty"`
}

type Service struct {
	detectors     map[models.Category]detector.Detector
	policy        dresscode.Policy
	logs          LogWriter
	tasks         TaskQueue
	client        *http.Client
	downloadRetry retry.Policy
	log           zerolog.Logger
}

// NewService wires the per-category detectors and the best-effort log sinks.
// logs and tasks may be nil; analysis still runs without them.
func NewService(cfg *config.AppConfig, detectors map[models.Category]detector.Detector, logs LogWriter, tasks TaskQueue, log zerolog.Logger) *Service {
	policy := dresscode.Policy{
		SlotPick:   dresscode.SlotPick(cfg.Policy.SlotPick),
		Violations: dresscode.ViolationStyle(cfg.Policy.ViolationStyle),
	}
	if policy.SlotPick == "" || policy.Violations == "" {
		policy = dresscode.DefaultPolicy()
	}

	return &Service{
		detectors:     detectors,
		policy:        policy,
		logs:          logs,
		tasks:         tasks,
		client:        &http.Client{Timeout: cfg.Detector.Timeout},
		downloadRetry: retry.Policy{Attempts: 3, Delay: time.Second},
		log:           log,
	}
}

// Analyze downloads the blob, runs the detector for the category and applies
// the category rule. The log entry and worker task are written best-effort
// after a successful analysis.
func (s *Service) Analyze(ctx context.Context, category models.Category, blobURL string) (Response, error) {
	data, err := s.download(ctx, blobURL)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	det, ok := s.detectors[category]
	if !ok {
		det = s.detectors[models.CategoryGeneral]
	}
	if det == nil {
		return Response{}, fmt.Errorf("no detector configured for category %s", category)
	}

	detections, err := det.Detect(ctx, data, filenameFromURL(blobURL))
	if err != nil {
		return Response{}, fmt.Errorf("detect: %w", err)
	}

	var resp Response
	if category == models.CategoryDresscode {
		resp = s.evaluateDresscode(img, detections)
	} else {
		verdict := passthrough.Evaluate(category, detections)
		resp = Response{
			Status:       verdict.Status,
			Message:      verdict.Message,
			Detections:   plainViews(detections),
			TotalObjects: len(detections),
		}
	}

	s.record(ctx, category, blobURL, resp)
	return resp, nil
}

func (s *Service) evaluateDresscode(img image.Image, detections []models.Detection) Response {
	views := make([]DetectionView, 0, len(detections))
	labeled := make([]dresscode.LabeledColor, 0, len(detections))

	for _, det := range detections {
		box := image.Rect(int(det.Box[0]), int(det.Box[1]), int(det.Box[2]), int(det.Box[3]))
		rgb, share := color.Dominant(img, box, color.DefaultK)
		name := color.Name(rgb)

		dominant := rgb
		views = append(views, DetectionView{
			Label:       det.Label,
			Confidence:  det.Confidence,
			Box:         det.Box,
			Color:       name,
			DominantRGB: &dominant,
			ColorShare:  share,
		})
		labeled = append(labeled, dresscode.LabeledColor{
			Label:      det.Label,
			Confidence: det.Confidence,
			Color:      name,
		})
	}

	outcome := dresscode.Evaluate(labeled, s.policy)
	return Response{
		Status:       outcome.Status,
		Message:      outcome.Message,
		Detections:   views,
		TotalObjects: len(detections),
		ShirtColor:   outcome.Shirt,
		PantColor:    outcome.Pant,
		ShoeColor:    outcome.Shoe,
	}
}

func (s *Service) download(ctx context.Context, blobURL string) ([]byte, error) {
	var data []byte
	err := retry.Do(ctx, s.downloadRetry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, blobURL, nil)
		if err != nil {
			return err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("blob fetch returned %d", resp.StatusCode)
		}
		// Storage backends disagree on the content type they report for
		// image blobs; only reject bodies that are clearly not an image,
		// such as an HTML error page served with a 200.
		ct := resp.Header.Get("Content-Type")
		if ct != "" && !strings.HasPrefix(ct, "image/") && ct != "application/octet-stream" {
			return fmt.Errorf("unexpected content type %s", ct)
		}

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return errors.New("empty blob body")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Service) record(ctx context.Context, category models.Category, blobURL string, resp Response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal inference response")
		return
	}

	entry := models.LogEntry{
		ID:           ids.New(),
		Filename:     filenameFromURL(blobURL),
		Category:     category,
		BlobURL:      blobURL,
		Status:       resp.Status,
		TotalObjects: resp.TotalObjects,
		Result:       string(raw),
		Timestamp:    time.Now().UTC(),
	}

	if s.logs != nil {
		_ = besteffort.Run(s.log, "inference log insert", func() error {
			return s.logs.Insert(ctx, entry)
		})
	}
	if s.tasks != nil {
		_ = besteffort.Run(s.log, "inference log task enqueue", func() error {
			return s.tasks.Enqueue(ctx, map[string]any{
				"type":          "record",
				"id":            entry.ID,
				"filename":      entry.Filename,
				"category":      string(entry.Category),
				"blob_url":      entry.BlobURL,
				"status":        entry.Status,
				"total_objects": entry.TotalObjects,
				"result":        entry.Result,
				"timestamp":     entry.Timestamp.Format(time.RFC3339Nano),
			})
		})
	}
}

func plainViews(detections []models.Detection) []DetectionView {
	views := make([]DetectionView, 0, len(detections))
	for _, det := range detections {
		views = append(views, DetectionView{
			Label:      det.Label,
			Confidence: det.Confidence,
			Box:        det.Box,
		})
	}
	return views
}

func filenameFromURL(blobURL string) string {
	parsed, err := url.Parse(blobURL)
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return "image"
	}
	return path.Base(parsed.Path)
}
