package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"siteinspect/internal/models"
)

type HTTPDetector struct {
	endpoint      string
	confThreshold float64
	client        *http.Client
	log           zerolog.Logger
}

func NewHTTPDetector(endpoint string, confThreshold float64, timeout time.Duration, log zerolog.Logger) *HTTPDetector {
	return &HTTPDetector{
		endpoint:      endpoint,
		confThreshold: confThreshold,
		client:        &http.Client{Timeout: timeout},
		log:           log,
	}
}

type detectResponse struct {
	Detections []models.Detection `json:"detections"`
}

// Detect posts the image as a multipart file and returns the detections at
// or above the confidence threshold.
func (d *HTTPDetector) Detect(ctx context.Context, image []byte, filename string) ([]models.Detection, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post image: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model runner returned %d: %s", resp.StatusCode, payload)
	}

	var decoded detectResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}

	detections := make([]models.Detection, 0, len(decoded.Detections))
	for _, det := range decoded.Detections {
		if det.Confidence < d.confThreshold {
			continue
		}
		detections = append(detections, det)
	}

	d.log.Debug().
		Str("endpoint", d.endpoint).
		Int("raw", len(decoded.Detections)).
		Int("kept", len(detections)).
		Msg("detector call complete")

	return detections, nil
}
