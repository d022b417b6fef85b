package metadata

import (
	"fmt"
	"sync"

	"DocForensics/pkg/models"
)

// Registry is a container for all available metadata extractors
type Registry struct {
	extractors map[models.DocumentKind][]Extractor
	mu         sync.RWMutex
}

// NewRegistry creates a new, empty extractor registry
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[models.DocumentKind][]Extractor),
	}
}

// NewDefaultRegistry returns a registry with the image, PDF and DOCX extractors registered
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewImageExtractor())
	r.Register(NewPDFExtractor())
	r.Register(NewDOCXExtractor())
	return r
}

// Register adds an extractor to the registry
func (r *Registry) Register(extractor Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, kind := range extractor.SupportedKinds() {
		r.extractors[kind] = append(r.extractors[kind], extractor)
	}
}

// ForKind returns all extractors that support the given kind
func (r *Registry) ForKind(kind models.DocumentKind) []Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.extractors[kind]
}

// Extract runs the first extractor registered for the document's kind.
// The result is never nil; an unhandled kind yields an empty record.
func (r *Registry) Extract(doc models.RawDocument) (rec *models.MetadataRecord) {
	extractors := r.ForKind(doc.Kind)
	if len(extractors) == 0 {
		return models.NewMetadataRecord(doc.Kind)
	}

	extractor := extractors[0]
	defer func() {
		if p := recover(); p != nil {
			rec = models.NewMetadataRecord(doc.Kind)
			rec.AddError(fmt.Sprintf("%s crashed: %v", extractor.Name(), p))
		}
	}()

	rec = extractor.Extract(doc.Data)
	if rec == nil {
		rec = models.NewMetadataRecord(doc.Kind)
	}
	return rec
}

// Extract reads metadata from doc with the default extractors
func Extract(doc models.RawDocument) *models.MetadataRecord {
	return NewDefaultRegistry().Extract(doc)
}

// ExtractImage reads the allow-listed EXIF and container software fields of an image
func ExtractImage(data []byte) *models.MetadataRecord {
	return NewImageExtractor().Extract(data)
}
