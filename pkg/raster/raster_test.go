package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToOpaqueRGBA_CompositesOverWhite(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 12, 12))
	src.SetNRGBA(10, 10, color.NRGBA{R: 0, G: 0, B: 0, A: 0})
	src.SetNRGBA(11, 10, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	out := ToOpaqueRGBA(src)

	assert.Equal(t, image.Rect(0, 0, 2, 2), out.Bounds())
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, out.RGBAAt(1, 0))
	assert.True(t, out.Opaque())
}

func TestToOpaqueRGBA_Gray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 1, 1))
	src.SetGray(0, 0, color.Gray{Y: 77})

	out := ToOpaqueRGBA(src)
	assert.Equal(t, color.RGBA{R: 77, G: 77, B: 77, A: 255}, out.RGBAAt(0, 0))

	_, ok := IsNormalized(out)
	assert.True(t, ok)
	_, ok = IsNormalized(src)
	assert.False(t, ok)
}

func TestArea(t *testing.T) {
	assert.Equal(t, 12, Area(image.Rect(1, 1, 5, 4)))
}
