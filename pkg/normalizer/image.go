package normalizer

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"DocForensics/pkg/errs"
	"DocForensics/pkg/models"
	"DocForensics/pkg/raster"
)

// ImageNormalizer decodes raster images at native resolution
type ImageNormalizer struct {
	BaseNormalizer
}

// NewImageNormalizer creates a new image normalizer
func NewImageNormalizer() *ImageNormalizer {
	return &ImageNormalizer{
		BaseNormalizer: NewBaseNormalizer(
			"Image Decoder",
			"Decodes JPEG, PNG, GIF, BMP, TIFF and WebP images at native resolution",
			[]models.DocumentKind{models.KindImage},
		),
	}
}

// Normalize decodes data as a raster image
func (n *ImageNormalizer) Normalize(ctx context.Context, data []byte) (*Normalized, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, format, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}

	return &Normalized{
		Image:  img,
		Source: data,
		Format: format,
	}, nil
}

// DecodeImage decodes data with the registered codecs and converts it to opaque RGBA
func DecodeImage(data []byte) (*image.RGBA, string, error) {
	if len(data) == 0 {
		return nil, "", errs.New(errs.KindUnsupportedFormat, "decode image", "empty input")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errs.Wrap(errs.KindUnsupportedFormat, "decode image", "failed to decode image", err)
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, "", errs.New(errs.KindUnsupportedFormat, "decode image", "image has no pixels")
	}

	return raster.ToOpaqueRGBA(img), format, nil
}
