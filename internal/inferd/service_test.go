package inferd

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	imgcolor "image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteinspect/internal/config"
	"siteinspect/internal/detector"
	"siteinspect/internal/models"
	"siteinspect/internal/retry"
)

type fakeDetector struct {
	detections []models.Detection
	err        error
	calls      int
}

func (f *fakeDetector) Detect(_ context.Context, _ []byte, _ string) ([]models.Detection, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.detections, nil
}

type capturingLog struct {
	entries []models.LogEntry
	err     error
}

func (c *capturingLog) Insert(_ context.Context, entry models.LogEntry) error {
	c.entries = append(c.entries, entry)
	return c.err
}

type capturingQueue struct {
	tasks []map[string]any
}

func (c *capturingQueue) Enqueue(_ context.Context, values map[string]any) error {
	c.tasks = append(c.tasks, values)
	return nil
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Detector: config.DetectorConfig{Timeout: 5 * time.Second},
		Policy:   config.PolicyConfig{SlotPick: "last", ViolationStyle: "folded"},
	}
}

func newTestService(det detector.Detector, logs LogWriter, tasks TaskQueue) *Service {
	detectors := map[models.Category]detector.Detector{
		models.CategoryGeneral:   det,
		models.CategoryDresscode: det,
		models.CategoryDustbin:   det,
		models.CategoryLights:    det,
	}
	svc := NewService(testConfig(), detectors, logs, tasks, zerolog.Nop())
	svc.downloadRetry = retry.Policy{Attempts: 3, Delay: time.Millisecond}
	return svc
}

// stripedPNG paints vertical bands of the given colors, each 30px wide and
// 30px tall, and returns the encoded image.
func stripedPNG(t *testing.T, bands ...imgcolor.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 30*len(bands), 30))
	for i, band := range bands {
		for y := 0; y < 30; y++ {
			for x := 30 * i; x < 30*(i+1); x++ {
				img.SetNRGBA(x, y, band)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func blobServer(t *testing.T, body []byte, contentType string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func inferRouter(svc Analyzer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandlerSet(zerolog.Nop(), svc).Register(router.Group(""), "")
	return router
}

func TestDustbinNoDetections(t *testing.T) {
	white := imgcolor.NRGBA{R: 250, G: 250, B: 250, A: 255}
	blob := blobServer(t, stripedPNG(t, white), "image/png")

	svc := newTestService(&fakeDetector{}, nil, nil)
	router := inferRouter(svc)

	body := `{"blob_url":"` + blob.URL + `/bin.png"}`
	req := httptest.NewRequest(http.MethodPost, "/infer/dustbin", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "no_dustbin", resp.Status)
	assert.Equal(t, "No dustbin detected in the image.", resp.Message)
	assert.Equal(t, 0, resp.TotalObjects)
	require.NotNil(t, resp.Detections)
	assert.Empty(t, resp.Detections)
	assert.Contains(t, rec.Body.String(), `"detections":[]`)
}

func TestDustbinFound(t *testing.T) {
	white := imgcolor.NRGBA{R: 250, G: 250, B: 250, A: 255}
	blob := blobServer(t, stripedPNG(t, white), "image/png")

	det := &fakeDetector{detections: []models.Detection{
		{Label: "dustbin", Confidence: 0.91, Box: [4]float64{0, 0, 10, 10}},
		{Label: "dustbin", Confidence: 0.84, Box: [4]float64{12, 0, 25, 10}},
	}}
	svc := newTestService(det, nil, nil)

	resp, err := svc.Analyze(context.Background(), models.CategoryDustbin, blob.URL+"/bin.png")
	require.NoError(t, err)
	assert.Equal(t, "dustbin_found", resp.Status)
	assert.Equal(t, "Detected 2 dustbin(s).", resp.Message)
	assert.Equal(t, 2, resp.TotalObjects)
	assert.Len(t, resp.Detections, 2)
}

func TestDresscodeCompliant(t *testing.T) {
	white := imgcolor.NRGBA{R: 250, G: 250, B: 250, A: 255}
	black := imgcolor.NRGBA{R: 10, G: 10, B: 10, A: 255}
	blob := blobServer(t, stripedPNG(t, white, black, black), "image/png")

	det := &fakeDetector{detections: []models.Detection{
		{Label: "shirt", Confidence: 0.9, Box: [4]float64{0, 0, 30, 30}},
		{Label: "trouser", Confidence: 0.8, Box: [4]float64{30, 0, 60, 30}},
		{Label: "shoe", Confidence: 0.7, Box: [4]float64{60, 0, 90, 30}},
	}}
	svc := newTestService(det, nil, nil)

	resp, err := svc.Analyze(context.Background(), models.CategoryDresscode, blob.URL+"/person.png")
	require.NoError(t, err)
	assert.Equal(t, "compliant", resp.Status)
	assert.Equal(t, "Dress code is appropriate.", resp.Message)
	require.NotNil(t, resp.ShirtColor)
	assert.Equal(t, "white", *resp.ShirtColor)
	require.NotNil(t, resp.PantColor)
	assert.Equal(t, "black", *resp.PantColor)
	require.NotNil(t, resp.ShoeColor)
	assert.Equal(t, "black", *resp.ShoeColor)

	require.Len(t, resp.Detections, 3)
	assert.Equal(t, "white", resp.Detections[0].Color)
	assert.InDelta(t, 100.0, resp.Detections[0].ColorShare, 0.01)
}

func TestDresscodeViolation(t *testing.T) {
	purple := imgcolor.NRGBA{R: 120, G: 40, B: 200, A: 255}
	black := imgcolor.NRGBA{R: 10, G: 10, B: 10, A: 255}
	blob := blobServer(t, stripedPNG(t, purple, black, black), "image/png")

	det := &fakeDetector{detections: []models.Detection{
		{Label: "t-shirt", Confidence: 0.9, Box: [4]float64{0, 0, 30, 30}},
		{Label: "jeans", Confidence: 0.8, Box: [4]float64{30, 0, 60, 30}},
		{Label: "sneaker", Confidence: 0.7, Box: [4]float64{60, 0, 90, 30}},
	}}
	svc := newTestService(det, nil, nil)

	resp, err := svc.Analyze(context.Background(), models.CategoryDresscode, blob.URL+"/person.png")
	require.NoError(t, err)
	assert.Equal(t, "non_compliant", resp.Status)
	assert.Equal(t, "Dress code violation: shirt must be white or black", resp.Message)
	require.NotNil(t, resp.ShirtColor)
	assert.Equal(t, "other", *resp.ShirtColor)
}

func TestAnalyzeRecordsLogEntryAndTask(t *testing.T) {
	white := imgcolor.NRGBA{R: 250, G: 250, B: 250, A: 255}
	blob := blobServer(t, stripedPNG(t, white), "image/png")

	logs := &capturingLog{}
	queue := &capturingQueue{}
	svc := newTestService(&fakeDetector{}, logs, queue)

	_, err := svc.Analyze(context.Background(), models.CategoryLights, blob.URL+"/hall.png")
	require.NoError(t, err)

	require.Len(t, logs.entries, 1)
	entry := logs.entries[0]
	assert.Equal(t, models.CategoryLights, entry.Category)
	assert.Equal(t, "no_lights", entry.Status)
	assert.Equal(t, "hall.png", entry.Filename)
	assert.NotEmpty(t, entry.ID)

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, "record", queue.tasks[0]["type"])
	assert.Equal(t, "no_lights", queue.tasks[0]["status"])
}

func TestAnalyzeLogFailureDoesNotFail(t *testing.T) {
	white := imgcolor.NRGBA{R: 250, G: 250, B: 250, A: 255}
	blob := blobServer(t, stripedPNG(t, white), "image/png")

	logs := &capturingLog{err: context.DeadlineExceeded}
	svc := newTestService(&fakeDetector{}, logs, nil)

	resp, err := svc.Analyze(context.Background(), models.CategoryGeneral, blob.URL+"/x.png")
	require.NoError(t, err)
	assert.Equal(t, "not_found", resp.Status)
}

func TestDownloadRetriesTransientFailures(t *testing.T) {
	white := imgcolor.NRGBA{R: 250, G: 250, B: 250, A: 255}
	body := stripedPNG(t, white)

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	svc := newTestService(&fakeDetector{}, nil, nil)

	resp, err := svc.Analyze(context.Background(), models.CategoryGeneral, srv.URL+"/x.png")
	require.NoError(t, err)
	assert.Equal(t, 3, hits)
	assert.Equal(t, "not_found", resp.Status)
}

func TestFetchFailureIsBadGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	svc := newTestService(&fakeDetector{}, nil, nil)
	router := inferRouter(svc)

	body := `{"blob_url":"` + srv.URL + `/missing.png"}`
	req := httptest.NewRequest(http.MethodPost, "/infer", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestInvalidImageIsBadRequest(t *testing.T) {
	blob := blobServer(t, []byte("definitely not an image"), "image/jpeg")

	svc := newTestService(&fakeDetector{}, nil, nil)
	router := inferRouter(svc)

	body := `{"blob_url":"` + blob.URL + `/broken.jpg"}`
	req := httptest.NewRequest(http.MethodPost, "/infer/lights", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInferRequestValidation(t *testing.T) {
	svc := newTestService(&fakeDetector{}, nil, nil)
	router := inferRouter(svc)

	cases := []struct {
		name string
		body string
		want string
	}{
		{"empty body", "", "Invalid JSON body"},
		{"malformed json", "{oops", "Invalid JSON body"},
		{"missing blob url", `{"category":"dustbin"}`, "Missing blob_url"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/infer", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}
