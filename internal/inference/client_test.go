package inference

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteinspect/internal/config"
)

func newTestClient(baseURL string, attempts int) *Client {
	return NewClient(config.InferenceConfig{
		BaseURL:       baseURL,
		Timeout:       time.Second,
		RetryAttempts: attempts,
		RetryDelay:    time.Millisecond,
	}, zerolog.Nop())
}

func TestAnalyzeRoutesByCategory(t *testing.T) {
	var gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"no_dustbin","total_objects":0,"detections":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 1)

	result, err := client.Analyze(context.Background(), "dustbin", "http://blobs/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/infer/dustbin", gotPath.Load())
	assert.Equal(t, "no_dustbin", result.Status)
	assert.Equal(t, 0, result.TotalObjects)
	assert.Contains(t, string(result.Raw), `"detections":[]`)

	_, err = client.Analyze(context.Background(), "general", "http://blobs/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/infer", gotPath.Load())
}

func TestAnalyzeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "warming up", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"status":"found","total_objects":2}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 3)
	result, err := client.Analyze(context.Background(), "general", "http://blobs/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "found", result.Status)
	assert.Equal(t, 2, result.TotalObjects)
}

func TestAnalyzeDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "Missing blob_url", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 5)
	_, err := client.Analyze(context.Background(), "general", "http://blobs/x.jpg")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, err.Error(), "400")
}

func TestAnalyzeExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 3)
	_, err := client.Analyze(context.Background(), "general", "http://blobs/x.jpg")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}
