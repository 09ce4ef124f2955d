// Package passthrough turns raw detections into the presence verdicts used
// by the dustbin, lights and general categories. Detections non-empty means
// found; there is no further domain rule.
package passthrough

import (
	"fmt"

	"siteinspect/internal/models"
)

type Verdict struct {
	Status  string
	Message string
}

func Evaluate(category models.Category, detections []models.Detection) Verdict {
	n := len(detections)

	switch category {
	case models.CategoryDustbin:
		if n > 0 {
			return Verdict{Status: "dustbin_found", Message: fmt.Sprintf("Detected %d dustbin(s).", n)}
		}
		return Verdict{Status: "no_dustbin", Message: "No dustbin detected in the image."}
	case models.CategoryLights:
		if n > 0 {
			return Verdict{Status: "lights_found", Message: fmt.Sprintf("Detected %d light fixture(s).", n)}
		}
		return Verdict{Status: "no_lights", Message: "No lights detected in the image."}
	default:
		if n > 0 {
			return Verdict{Status: "found", Message: fmt.Sprintf("Detected %d object(s).", n)}
		}
		return Verdict{Status: "not_found", Message: "No objects detected in the image."}
	}
}
