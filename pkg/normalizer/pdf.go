package normalizer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ledongthuc/pdf"

	"DocForensics/pkg/errs"
	"DocForensics/pkg/models"
	"DocForensics/pkg/pdfdoc"
	"DocForensics/pkg/raster"
)

// points per inch in PDF user space
const pointsPerInch = 72.0

// used when no page in the tree carries a MediaBox
var letterBox = [4]float64{0, 0, 612, 792}

// PDFNormalizer renders the first page of a PDF
type PDFNormalizer struct {
	BaseNormalizer
	rasterizer Rasterizer
	dpi        int
}

// NewPDFNormalizer creates a PDF normalizer that renders through rasterizer at dpi
func NewPDFNormalizer(rasterizer Rasterizer, dpi int) *PDFNormalizer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &PDFNormalizer{
		BaseNormalizer: NewBaseNormalizer(
			"PDF Renderer",
			fmt.Sprintf("Renders the first page of a PDF at %d DPI", dpi),
			[]models.DocumentKind{models.KindPDF},
		),
		rasterizer: rasterizer,
		dpi:        dpi,
	}
}

// DPI returns the render resolution
func (n *PDFNormalizer) DPI() int {
	return n.dpi
}

// Normalize renders page 1. A document whose page tree parses with no pages is
// rejected up front; one the parser cannot read is still handed to the renderer.
func (n *PDFNormalizer) Normalize(ctx context.Context, data []byte) (*Normalized, error) {
	if pages, err := CountPages(data); err == nil && pages == 0 {
		return nil, errs.New(errs.KindNoContentFound, "normalize pdf", "document has no pages")
	}

	if n.rasterizer == nil {
		return nil, errs.New(errs.KindUnsupportedFormat, "normalize pdf", "no PDF rasterizer configured")
	}

	img, err := n.rasterizer.RasterizeFirstPage(ctx, data, n.dpi)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.Wrap(errs.KindUnsupportedFormat, "normalize pdf", "failed to render first page", err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, errs.New(errs.KindUnsupportedFormat, "normalize pdf", "renderer returned an empty page")
	}

	return &Normalized{
		Image:  raster.ToOpaqueRGBA(img),
		Format: "pdf",
	}, nil
}

// CountPages parses the document structure and returns the page count
func CountPages(data []byte) (pages int, err error) {
	err = pdfdoc.Open(data, func(r *pdf.Reader) error {
		pages = pdfdoc.PageCount(r)
		return nil
	})
	return pages, err
}

// FirstPageSize returns the pixel size page 1 renders to at dpi.
// The MediaBox is looked up through the page tree and /Rotate is honoured.
func FirstPageSize(data []byte, dpi int) (size image.Point, err error) {
	if dpi <= 0 {
		return image.Point{}, errs.New(errs.KindInvalidArgument, "pdf geometry", fmt.Sprintf("dpi must be positive, got %d", dpi))
	}

	err = pdfdoc.Open(data, func(r *pdf.Reader) error {
		if pdfdoc.PageCount(r) == 0 {
			return errs.New(errs.KindNoContentFound, "pdf geometry", "document has no pages")
		}
		page := r.Page(1)
		if page.V.IsNull() {
			return errs.New(errs.KindUnsupportedFormat, "pdf geometry", "page 1 not found")
		}

		box := mediaBox(page.V)
		w := math.Abs(box[2] - box[0])
		h := math.Abs(box[3] - box[1])

		rotate := int(inherited(page.V, "Rotate").Int64())
		if rotate%180 != 0 {
			w, h = h, w
		}

		scale := float64(dpi) / pointsPerInch
		size = image.Pt(int(math.Round(w*scale)), int(math.Round(h*scale)))
		return nil
	})
	return size, err
}

func mediaBox(page pdf.Value) [4]float64 {
	v := inherited(page, "MediaBox")
	if v.Kind() != pdf.Array || v.Len() != 4 {
		return letterBox
	}

	var box [4]float64
	for i := range box {
		box[i] = v.Index(i).Float64()
	}
	if box[0] == box[2] || box[1] == box[3] {
		return letterBox
	}
	return box
}

// inherited looks key up on the page and then on its ancestors
func inherited(page pdf.Value, key string) pdf.Value {
	// depth bound guards against cyclic /Parent chains
	for v, depth := page, 0; !v.IsNull() && depth < 64; v, depth = v.Key("Parent"), depth+1 {
		if found := v.Key(key); !found.IsNull() {
			return found
		}
	}
	return pdf.Value{}
}
