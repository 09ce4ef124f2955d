package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"siteinspect/internal/models"
	"siteinspect/internal/service"
)

type uploadResponse struct {
	ID           string          `json:"id"`
	BlobName     string          `json:"blob_name"`
	BlobURL      string          `json:"blob_url"`
	Category     models.Category `json:"category"`
	SizeBytes    int64           `json:"size_bytes"`
	CreatedAt    time.Time       `json:"created_at"`
	Status       string          `json:"status"`
	Inference    any             `json:"inference,omitempty"`
	InferenceErr string          `json:"inference_error,omitempty"`
}

// Upload accepts a multipart file ("file" or "files" field) or a raw body
// with the filename in the X-Filename header. The category query parameter
// selects the inference backend; action=analyze triggers the call.
func (h HandlerSet) Upload(c *gin.Context) {
	category, err := models.ParseCategory(c.Query("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filename, contentType, data, err := readUploadPayload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	analyze := c.Query("action") == "analyze"

	output, err := h.uploader.Upload(c.Request.Context(), service.UploadInput{
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
		Category:    category,
		Analyze:     analyze,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmptyFile) || errors.Is(err, service.ErrBadMimeType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error().Err(err).Str("filename", filename).Msg("upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := uploadResponse{
		ID:           output.Record.ID,
		BlobName:     output.Record.ObjectKey,
		BlobURL:      output.BlobURL,
		Category:     output.Record.Category,
		SizeBytes:    output.Record.SizeBytes,
		CreatedAt:    output.Record.CreatedAt,
		Status:       "uploaded",
		InferenceErr: output.InferenceErr,
	}
	if output.Inference != nil {
		resp.Status = output.Inference.Status
		resp.Inference = output.Inference.Raw
	}

	c.JSON(http.StatusOK, resp)
}

func readUploadPayload(c *gin.Context) (filename, contentType string, data []byte, err error) {
	contentTypeHeader := c.GetHeader("Content-Type")

	if strings.HasPrefix(contentTypeHeader, "multipart/form-data") {
		file, header, ferr := firstUploadedFile(c)
		if ferr != nil {
			return "", "", nil, errors.New("no file uploaded")
		}
		defer file.Close()

		data, err = io.ReadAll(file)
		if err != nil {
			return "", "", nil, err
		}
		return header.Filename, header.Header.Get("Content-Type"), data, nil
	}

	// Raw-body variant: the filename travels in a custom header.
	filename = c.GetHeader("X-Filename")
	if filename == "" {
		return "", "", nil, errors.New("no file uploaded")
	}
	data, err = io.ReadAll(c.Request.Body)
	if err != nil {
		return "", "", nil, err
	}
	return filename, contentTypeHeader, data, nil
}

// firstUploadedFile accepts both historical field names.
func firstUploadedFile(c *gin.Context) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := c.Request.FormFile("file")
	if err == nil {
		return file, header, nil
	}
	return c.Request.FormFile("files")
}
