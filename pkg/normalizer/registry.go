package normalizer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"DocForensics/pkg/errs"
	"DocForensics/pkg/models"
)

// Registry is a container for all available normalizers
type Registry struct {
	normalizers map[models.DocumentKind][]Normalizer
	mu          sync.RWMutex
}

// NewRegistry creates a new, empty normalizer registry
func NewRegistry() *Registry {
	return &Registry{
		normalizers: make(map[models.DocumentKind][]Normalizer),
	}
}

// NewDefaultRegistry registers the image, PDF and DOCX normalizers.
// PDF pages are rendered through rasterizer at dpi.
func NewDefaultRegistry(rasterizer Rasterizer, dpi int) *Registry {
	r := NewRegistry()
	r.Register(NewImageNormalizer())
	r.Register(NewPDFNormalizer(rasterizer, dpi))
	r.Register(NewDOCXNormalizer())
	return r
}

// Register adds a normalizer to the registry
func (r *Registry) Register(n Normalizer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, kind := range n.SupportedKinds() {
		r.normalizers[kind] = append(r.normalizers[kind], n)
	}
}

// ForKind returns all normalizers that support the given kind
func (r *Registry) ForKind(kind models.DocumentKind) []Normalizer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.normalizers[kind]
}

// SupportedKinds returns the kinds with at least one registered normalizer, sorted
func (r *Registry) SupportedKinds() []models.DocumentKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var kinds []models.DocumentKind
	for kind := range r.normalizers {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	return kinds
}

// Normalize hands data to the first normalizer registered for kind
func (r *Registry) Normalize(ctx context.Context, data []byte, kind models.DocumentKind) (*Normalized, error) {
	normalizers := r.ForKind(kind)
	if len(normalizers) == 0 {
		return nil, errs.New(errs.KindUnsupportedFormat, "normalize", fmt.Sprintf("no normalizer for %s documents", kind))
	}
	return normalizers[0].Normalize(ctx, data)
}
