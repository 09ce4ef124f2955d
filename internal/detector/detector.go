// Package detector talks to the external model runner that hosts the
// pretrained object-detection models. The models themselves are an external
// dependency; this package only ships bytes and parses boxes.
package detector

import (
	"context"

	"siteinspect/internal/models"
)

type Detector interface {
	Detect(ctx context.Context, image []byte, filename string) ([]models.Detection, error)
}
