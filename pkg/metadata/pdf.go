package metadata

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"DocForensics/pkg/models"
	"DocForensics/pkg/pdfdoc"
)

var pdfInfoFields = []struct {
	name string
	key  models.MetadataKey
	date bool
}{
	{"Producer", models.KeyProducer, false},
	{"Creator", models.KeyCreator, false},
	{"Author", models.KeyAuthor, false},
	{"Software", models.KeySoftware, false},
	{"CreationDate", models.KeyCreationDate, true},
	{"ModDate", models.KeyModDate, true},
}

// PDFExtractor reads the document information dictionary of a PDF
type PDFExtractor struct {
	BaseExtractor
}

// NewPDFExtractor creates a new PDF metadata extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{
		BaseExtractor: NewBaseExtractor("PDF Info", []models.DocumentKind{models.KindPDF}),
	}
}

// Extract reads /Info from the trailer. Dates keep their raw text and are parsed when valid.
func (e *PDFExtractor) Extract(data []byte) *models.MetadataRecord {
	rec := models.NewMetadataRecord(models.KindPDF)

	err := pdfdoc.Open(data, func(reader *pdf.Reader) error {
		info := reader.Trailer().Key("Info")
		if info.IsNull() {
			return nil
		}

		for _, f := range pdfInfoFields {
			v := info.Key(f.name)
			if v.IsNull() {
				continue
			}

			text := pdfText(v)
			if f.date {
				if t, ok := ParsePDFDate(text); ok {
					rec.SetTime(f.key, text, t)
					continue
				}
			}
			rec.Set(f.key, text)
		}
		return nil
	})
	if err != nil {
		rec.AddError(fmt.Sprintf("failed to open PDF: %v", err))
	}
	return rec
}

func pdfText(v pdf.Value) string {
	switch v.Kind() {
	case pdf.String:
		return strings.TrimSpace(strings.TrimRight(v.Text(), "\x00"))
	case pdf.Name:
		return v.Name()
	default:
		return strings.TrimSpace(v.String())
	}
}
