package color

import (
	"image"
	imgcolor "image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c imgcolor.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestDominantEmptyCrop(t *testing.T) {
	img := solidImage(10, 10, imgcolor.NRGBA{R: 200, G: 200, B: 200, A: 255})

	for _, box := range []image.Rectangle{
		image.Rect(5, 5, 5, 9), // x2 == x1
		image.Rect(5, 5, 9, 5), // y2 == y1
		image.Rect(8, 8, 2, 2), // inverted
	} {
		c, pct := Dominant(img, box, DefaultK)
		assert.Equal(t, RGB{}, c, "box %v", box)
		assert.Equal(t, 0.0, pct, "box %v", box)
	}
}

func TestDominantSolidColor(t *testing.T) {
	img := solidImage(12, 12, imgcolor.NRGBA{R: 250, G: 250, B: 250, A: 255})

	c, pct := Dominant(img, image.Rect(0, 0, 12, 12), DefaultK)
	require.InDelta(t, 250, c.R, 0.001)
	require.InDelta(t, 250, c.G, 0.001)
	require.InDelta(t, 250, c.B, 0.001)
	assert.Equal(t, 100.0, pct)
	assert.Equal(t, "white", Name(c))
}

func TestDominantTwoColorSplit(t *testing.T) {
	// Left 12 of 16 columns white, right 4 black: dominant share is 75%.
	img := image.NewNRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			px := imgcolor.NRGBA{R: 245, G: 245, B: 245, A: 255}
			if x >= 12 {
				px = imgcolor.NRGBA{R: 10, G: 10, B: 10, A: 255}
			}
			img.SetNRGBA(x, y, px)
		}
	}

	c, pct := Dominant(img, image.Rect(0, 0, 16, 8), 2)
	assert.InDelta(t, 75.0, pct, 0.001)
	assert.Equal(t, "white", Name(c))
}

func TestDominantDeterministic(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.SetNRGBA(x, y, imgcolor.NRGBA{
				R: uint8(40 + x*7),
				G: uint8(90 + y*5),
				B: uint8(120 + (x+y)*3),
				A: 255,
			})
		}
	}
	box := image.Rect(2, 2, 18, 18)

	first, firstPct := Dominant(img, box, DefaultK)
	for i := 0; i < 5; i++ {
		c, pct := Dominant(img, box, DefaultK)
		assert.Equal(t, first, c)
		assert.Equal(t, firstPct, pct)
	}
}

func TestName(t *testing.T) {
	cases := []struct {
		c    RGB
		want string
	}{
		{RGB{R: 250, G: 250, B: 250}, "white"},
		{RGB{R: 10, G: 10, B: 10}, "black"},
		{RGB{R: 120, G: 40, B: 200}, "other"},
		// Brightness boundary: 171 is white, 169 falls through to other.
		{RGB{R: 171, G: 171, B: 171}, "white"},
		{RGB{R: 169, G: 169, B: 169}, "other"},
		{RGB{R: 170, G: 170, B: 170}, "other"},
		// Bright but strongly tinted stays other.
		{RGB{R: 250, G: 200, B: 150}, "other"},
		{RGB{R: 89, G: 89, B: 89}, "black"},
		{RGB{R: 90, G: 90, B: 90}, "other"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Name(tc.c), "color %+v", tc.c)
	}
}
