package metadata

import (
	"DocForensics/pkg/models"
)

// Extractor is the interface that all metadata extractors must implement.
// Extract never fails: parsing problems are recorded in the returned record's Errors.
type Extractor interface {
	// CanExtract checks if this extractor can handle the given document kind
	CanExtract(kind models.DocumentKind) bool

	// Extract reads authoring metadata from the document bytes
	Extract(data []byte) *models.MetadataRecord

	// Name returns the name of the extractor
	Name() string

	// SupportedKinds returns the document kinds this extractor handles
	SupportedKinds() []models.DocumentKind
}

// BaseExtractor provides common functionality for extractors
type BaseExtractor struct {
	name  string
	kinds []models.DocumentKind
}

// NewBaseExtractor creates a new BaseExtractor
func NewBaseExtractor(name string, kinds []models.DocumentKind) BaseExtractor {
	return BaseExtractor{
		name:  name,
		kinds: kinds,
	}
}

// Name returns the extractor name
func (b *BaseExtractor) Name() string {
	return b.name
}

// SupportedKinds returns the supported document kinds
func (b *BaseExtractor) SupportedKinds() []models.DocumentKind {
	return b.kinds
}

// CanExtract checks if the extractor supports the given kind
func (b *BaseExtractor) CanExtract(kind models.DocumentKind) bool {
	for _, k := range b.kinds {
		if k == kind {
			return true
		}
	}
	return false
}
