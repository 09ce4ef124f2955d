// Package color classifies the dominant color of a detected image region.
// The thresholds are empirically chosen against the inspection photo sets
// and are fixed constants; do not tune them.
package color

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// DefaultK is the cluster count used by the analysis handlers.
	DefaultK = 3

	whiteBrightness = 170
	blackBrightness = 90
	chromaTolerance = 40
)

type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Dominant crops box out of img, clusters the pixels into k groups and
// returns the centroid of the largest cluster together with the share of
// pixels (0..100) it holds. A degenerate box yields ((0,0,0), 0.0); that is
// a defined result, not an error.
func Dominant(img image.Image, box image.Rectangle, k int) (RGB, float64) {
	if box.Dx() <= 0 || box.Dy() <= 0 {
		return RGB{}, 0.0
	}

	cropped := imaging.Crop(img, box)
	bounds := cropped.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return RGB{}, 0.0
	}

	samples := make([]RGB, 0, bounds.Dx()*bounds.Dy())
	for y := 0; y < bounds.Dy(); y++ {
		row := cropped.Pix[y*cropped.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			px := row[x*4:]
			samples = append(samples, RGB{
				R: float64(px[0]),
				G: float64(px[1]),
				B: float64(px[2]),
			})
		}
	}

	centroids, labels := cluster(samples, k)

	counts := make([]int, len(centroids))
	for _, label := range labels {
		counts[label]++
	}

	dominant := 0
	for i, count := range counts {
		if count > counts[dominant] {
			dominant = i
		}
	}

	percentage := float64(counts[dominant]) / float64(len(samples)) * 100
	return centroids[dominant], percentage
}

// Name maps a color to the coarse buckets the compliance rule understands.
// Brightness is the plain mean of the channels; near-gray bright colors are
// white, dark colors are black, everything else is other.
func Name(c RGB) string {
	brightness := (c.R + c.G + c.B) / 3
	if brightness > whiteBrightness &&
		math.Abs(c.R-c.G) < chromaTolerance &&
		math.Abs(c.R-c.B) < chromaTolerance {
		return "white"
	}
	if brightness < blackBrightness {
		return "black"
	}
	return "other"
}
