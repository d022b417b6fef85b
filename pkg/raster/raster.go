// Package raster converts decoded images into the opaque RGB layout the ELA engine works on.
package raster

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ToOpaqueRGBA copies img into a new *image.RGBA anchored at (0,0).
// Translucent pixels are composited over white, so every output pixel has A=255.
func ToOpaqueRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if isOpaque(img) {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}

	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// IsNormalized reports whether img already has the layout ToOpaqueRGBA produces
func IsNormalized(img image.Image) (*image.RGBA, bool) {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) || !rgba.Opaque() {
		return nil, false
	}
	return rgba, true
}

// Area returns width × height of a rectangle
func Area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}
