package ela

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"DocForensics/pkg/errs"
	"DocForensics/pkg/models"
	"DocForensics/pkg/raster"
)

/*
Error Level Analysis.
The image is re-saved as JPEG at a fixed quality entirely in memory, decoded
again, and the absolute per-channel difference against the original is
amplified into a heat map. Regions that already went through compression at
this quality re-compress with almost no residual; pasted or re-edited regions
carry a different compression history and light up.
*/

const (
	DefaultQuality         = 90
	DefaultAmplification   = 20.0
	DefaultBrightThreshold = 100
)

// Options configures one ELA computation
type Options struct {
	Quality         int     // JPEG quality of the re-save, 1-100
	Amplification   float64 // multiplier applied to the raw residual
	BrightThreshold uint8   // amplified value at which a pixel counts as bright
}

// DefaultOptions returns quality 90, amplification 20
func DefaultOptions() Options {
	return Options{
		Quality:         DefaultQuality,
		Amplification:   DefaultAmplification,
		BrightThreshold: DefaultBrightThreshold,
	}
}

// Validate checks the option ranges
func (o Options) Validate() error {
	if o.Quality < 1 || o.Quality > 100 {
		return errs.New(errs.KindInvalidArgument, "ela", fmt.Sprintf("quality must be within 1-100, got %d", o.Quality))
	}
	if o.Amplification <= 0 || math.IsNaN(o.Amplification) || math.IsInf(o.Amplification, 0) {
		return errs.New(errs.KindInvalidArgument, "ela", fmt.Sprintf("amplification must be a positive number, got %g", o.Amplification))
	}
	return nil
}

// ComputeQuality runs ELA at the given quality with the default amplification
func ComputeQuality(img image.Image, quality int) (*models.ELAResult, error) {
	opts := DefaultOptions()
	opts.Quality = quality
	return Compute(img, opts)
}

// Compute performs Error Level Analysis on img.
// The result has the same width and height as img and is anchored at (0,0).
func Compute(img image.Image, opts Options) (*models.ELAResult, error) {
	if img == nil {
		return nil, errs.New(errs.KindInvalidArgument, "ela", "nil image provided")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	original, ok := raster.IsNormalized(img)
	if !ok {
		original = raster.ToOpaqueRGBA(img)
	}

	recoded, err := Recompress(original, opts.Quality)
	if err != nil {
		return nil, err
	}

	if recoded.Bounds().Size() != original.Bounds().Size() {
		return nil, errs.New(errs.KindDecode, "ela",
			fmt.Sprintf("re-encoded image is %v, expected %v", recoded.Bounds().Size(), original.Bounds().Size()))
	}

	heat, stats := difference(original, recoded, amplificationTable(opts.Amplification), opts.BrightThreshold)

	return &models.ELAResult{
		Image:         heat,
		Quality:       opts.Quality,
		Amplification: opts.Amplification,
		Stats:         stats,
	}, nil
}

// Recompress round-trips img through the JPEG codec at quality and returns the decoded pixels
func Recompress(img image.Image, quality int) (*image.RGBA, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errs.Wrap(errs.KindDecode, "ela", "failed to re-encode image", err)
	}

	decoded, err := jpeg.Decode(&buf)
	if err != nil {
		return nil, errs.Wrap(errs.KindDecode, "ela", "failed to decode re-encoded image", err)
	}

	return raster.ToOpaqueRGBA(decoded), nil
}

// amplificationTable precomputes clamp(round(d * factor), 0, 255) for every possible residual d
func amplificationTable(factor float64) [256]uint8 {
	var table [256]uint8
	for d := range table {
		v := math.Round(float64(d) * factor)
		if v > 255 {
			v = 255
		}
		table[d] = uint8(v)
	}
	return table
}

func difference(a, b *image.RGBA, table [256]uint8, brightThreshold uint8) (*image.RGBA, models.ELAStats) {
	bounds := a.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(image.Rect(0, 0, width, height))

	var stats models.ELAStats
	var sum uint64

	for y := 0; y < height; y++ {
		ra := a.Pix[y*a.Stride : y*a.Stride+width*4]
		rb := b.Pix[y*b.Stride : y*b.Stride+width*4]
		ro := out.Pix[y*out.Stride : y*out.Stride+width*4]

		for i := 0; i < len(ra); i += 4 {
			var pixelMax uint8
			for c := 0; c < 3; c++ {
				v := table[absDiff(ra[i+c], rb[i+c])]
				ro[i+c] = v
				sum += uint64(v)
				if v > pixelMax {
					pixelMax = v
				}
			}
			ro[i+3] = 0xff

			if pixelMax > stats.MaxDifference {
				stats.MaxDifference = pixelMax
			}
			if pixelMax >= brightThreshold {
				stats.BrightPixels++
			}
		}
	}

	if pixels := width * height; pixels > 0 {
		stats.MeanDifference = float64(sum) / float64(pixels*3)
		stats.BrightRatio = float64(stats.BrightPixels) / float64(pixels)
	}

	return out, stats
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
