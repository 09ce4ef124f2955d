package models

import (
	"fmt"
	"time"
)

type Category string

const (
	CategoryGeneral   Category = "general"
	CategoryDresscode Category = "dresscode"
	CategoryDustbin   Category = "dustbin"
	CategoryLights    Category = "lights"
)

func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryGeneral, CategoryDresscode, CategoryDustbin, CategoryLights:
		return Category(s), nil
	case "":
		return CategoryGeneral, nil
	default:
		return "", fmt.Errorf("unsupported category %q", s)
	}
}

// Detection is a single detector hit. Box is x1,y1,x2,y2 in pixel coordinates.
type Detection struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	Box        [4]float64 `json:"bbox"`
}

// UploadRecord is written once per incoming file and never updated.
type UploadRecord struct {
	ID          string
	Filename    string
	ContentType string
	Category    Category
	Bucket      string
	ObjectKey   string
	SizeBytes   int64
	BlobURL     string
	CreatedAt   time.Time
}

// LogEntry is the denormalized join of an upload and its inference result,
// appended to the log sinks by the worker.
type LogEntry struct {
	ID           string
	Filename     string
	Category     Category
	BlobURL      string
	Status       string
	TotalObjects int
	Result       string
	Timestamp    time.Time
}
