package normalizer

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"image"
	"io"
	"sort"

	"DocForensics/pkg/errs"
	"DocForensics/pkg/models"
	"DocForensics/pkg/ooxml"
	"DocForensics/pkg/raster"
)

const (
	nsWordDrawing = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsPicture     = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	nsDrawingMain = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsRelations   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// DOCXNormalizer picks the largest picture placed inline in a Word document
type DOCXNormalizer struct {
	BaseNormalizer
}

// NewDOCXNormalizer creates a new DOCX normalizer
func NewDOCXNormalizer() *DOCXNormalizer {
	return &DOCXNormalizer{
		BaseNormalizer: NewBaseNormalizer(
			"DOCX Image Extractor",
			"Selects the inline picture with the largest pixel area",
			[]models.DocumentKind{models.KindDOCX},
		),
	}
}

// candidate is an embedded picture whose header decoded
type candidate struct {
	data []byte
	area int
}

// Normalize decodes the largest inline picture. Ties go to the first in document order.
func (n *DOCXNormalizer) Normalize(ctx context.Context, data []byte) (*Normalized, error) {
	pkg, err := ooxml.Open(data)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnsupportedFormat, "normalize docx", "not a DOCX container", err)
	}

	document, err := pkg.ReadPart(ooxml.MainDocumentPart)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnsupportedFormat, "normalize docx", "missing main document", err)
	}

	ids, err := InlinePictureIDs(document)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnsupportedFormat, "normalize docx", "failed to parse main document", err)
	}

	rels, err := pkg.Relationships(ooxml.MainDocumentPart)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnsupportedFormat, "normalize docx", "failed to read document relationships", err)
	}

	candidates := collectCandidates(ctx, pkg, ids, rels)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// stable sort keeps document order among equal areas
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].area > candidates[j].area })

	for _, c := range candidates {
		img, format, err := DecodeImage(c.data)
		if err != nil {
			continue
		}
		return &Normalized{Image: img, Source: c.data, Format: format}, nil
	}

	return nil, errs.New(errs.KindNoContentFound, "normalize docx", "document contains no decodable inline pictures")
}

func collectCandidates(ctx context.Context, pkg *ooxml.Package, ids []string, rels map[string]ooxml.Relationship) []candidate {
	var out []candidate
	seen := make(map[string]bool)

	for _, id := range ids {
		if ctx.Err() != nil {
			return nil
		}

		rel, ok := rels[id]
		if !ok || seen[rel.Target] {
			continue
		}
		seen[rel.Target] = true

		blob, err := pkg.ReadPart(rel.Target)
		if err != nil {
			continue
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(blob))
		if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
			continue
		}

		out = append(out, candidate{
			data: blob,
			area: raster.Area(image.Rect(0, 0, cfg.Width, cfg.Height)),
		})
	}
	return out
}

// InlinePictureIDs returns the relationship ids of a:blip elements that sit inside
// a wp:inline → pic:pic drawing, in document order. Charts, SmartArt and floating
// shapes do not qualify.
func InlinePictureIDs(document []byte) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(document))

	var (
		ids         []string
		inlineDepth int
		picDepth    int
	)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to tokenize document: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Space == nsWordDrawing && t.Name.Local == "inline":
				inlineDepth++
			case t.Name.Space == nsPicture && t.Name.Local == "pic":
				picDepth++
			case t.Name.Space == nsDrawingMain && t.Name.Local == "blip" && inlineDepth > 0 && picDepth > 0:
				for _, attr := range t.Attr {
					if attr.Name.Space == nsRelations && attr.Name.Local == "embed" && attr.Value != "" {
						ids = append(ids, attr.Value)
					}
				}
			}
		case xml.EndElement:
			switch {
			case t.Name.Space == nsWordDrawing && t.Name.Local == "inline" && inlineDepth > 0:
				inlineDepth--
			case t.Name.Space == nsPicture && t.Name.Local == "pic" && picDepth > 0:
				picDepth--
			}
		}
	}
	return ids, nil
}
