package normalizer

import (
	"context"
	"image"

	"DocForensics/pkg/models"
)

/*
Normalizer.go contains the interface and base implementation for document normalizers.
Normalizer: reduces one kind of document (image, PDF, DOCX) to a single representative raster image.
BaseNormalizer: provides the name, description and supported kinds shared by every normalizer.
Normalized: the decoded image in opaque RGBA layout plus, when the image came from an
encoded file (an upload or an embedded DOCX picture), the bytes it was decoded from.
*/

// Normalized is the representative raster image of a document
type Normalized struct {
	Image  *image.RGBA
	Source []byte // encoded bytes of Image, nil for rendered PDF pages
	Format string // codec name, "pdf" for rendered pages
}

// Normalizer is the interface that all document normalizers must implement
type Normalizer interface {
	// CanNormalize checks if this normalizer can handle the given kind
	CanNormalize(kind models.DocumentKind) bool

	// Normalize reduces the document bytes to one raster image
	Normalize(ctx context.Context, data []byte) (*Normalized, error)

	// Name returns the name of the normalizer
	Name() string

	// Description returns a short description of the conversion performed
	Description() string

	// SupportedKinds returns the document kinds this normalizer handles
	SupportedKinds() []models.DocumentKind
}

// BaseNormalizer provides common functionality for normalizers
type BaseNormalizer struct {
	name        string
	description string
	kinds       []models.DocumentKind
}

// NewBaseNormalizer creates a new BaseNormalizer
func NewBaseNormalizer(name, description string, kinds []models.DocumentKind) BaseNormalizer {
	return BaseNormalizer{
		name:        name,
		description: description,
		kinds:       kinds,
	}
}

// Name returns the normalizer name
func (b *BaseNormalizer) Name() string {
	return b.name
}

// Description returns the normalizer description
func (b *BaseNormalizer) Description() string {
	return b.description
}

// SupportedKinds returns the supported document kinds
func (b *BaseNormalizer) SupportedKinds() []models.DocumentKind {
	return b.kinds
}

// CanNormalize checks if the normalizer supports the given kind
func (b *BaseNormalizer) CanNormalize(kind models.DocumentKind) bool {
	for _, k := range b.kinds {
		if k == kind {
			return true
		}
	}
	return false
}
