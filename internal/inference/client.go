// Package inference is the gateway-side client for the inference service.
// Calls are retried a small fixed number of times; a 4xx answer is not
// retried because it will not get better.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"siteinspect/internal/config"
	"siteinspect/internal/models"
	"siteinspect/internal/retry"
)

type Result struct {
	Status       string
	TotalObjects int
	Raw          json.RawMessage
}

type Client struct {
	baseURL string
	client  *http.Client
	policy  retry.Policy
	log     zerolog.Logger
}

func NewClient(cfg config.InferenceConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		policy: retry.Policy{
			Attempts: cfg.RetryAttempts,
			Delay:    cfg.RetryDelay,
			Jitter:   cfg.RetryJitter,
		},
		log: log,
	}
}

type permanentError struct {
	status int
	body   string
}

func (e *permanentError) Error() string {
	return fmt.Sprintf("inference service returned %d: %s", e.status, e.body)
}

// Analyze posts the blob reference to the category path and returns the raw
// result envelope together with the parsed status.
func (c *Client) Analyze(ctx context.Context, category models.Category, blobURL string) (Result, error) {
	payload, err := json.Marshal(map[string]string{"blob_url": blobURL})
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}

	var result Result
	var permErr *permanentError
	err = retry.Do(ctx, c.policy, func(ctx context.Context) error {
		var callErr error
		result, callErr = c.call(ctx, categoryPath(category), payload)
		if errors.As(callErr, &permErr) {
			return nil
		}
		return callErr
	})
	if err != nil {
		return Result{}, err
	}
	if permErr != nil {
		return Result{}, permErr
	}
	return result, nil
}

func (c *Client) call(ctx context.Context, path string, payload []byte) (Result, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return Result{}, &permanentError{status: resp.StatusCode, body: body.String()}
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("inference service returned %d: %s", resp.StatusCode, body.String())
	}

	var envelope struct {
		Status       string `json:"status"`
		TotalObjects int    `json:"total_objects"`
	}
	if err := json.Unmarshal(body.Bytes(), &envelope); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}

	c.log.Debug().
		Str("path", path).
		Str("status", envelope.Status).
		Dur("latency", time.Since(start)).
		Msg("inference call complete")

	return Result{
		Status:       envelope.Status,
		TotalObjects: envelope.TotalObjects,
		Raw:          json.RawMessage(append([]byte(nil), body.Bytes()...)),
	}, nil
}

func categoryPath(category models.Category) string {
	if category == models.CategoryGeneral || category == "" {
		return "/infer"
	}
	return "/infer/" + string(category)
}
