package metadata

import (
	"encoding/xml"
	"fmt"
	"strings"

	"DocForensics/pkg/models"
	"DocForensics/pkg/ooxml"
)

// coreProperties mirrors the parts of docProps/core.xml the extractor reads.
// Pointers distinguish a missing element from an empty one.
type coreProperties struct {
	Creator        *string `xml:"creator"`
	LastModifiedBy *string `xml:"lastModifiedBy"`
	Created        *string `xml:"created"`
	Modified       *string `xml:"modified"`
}

// DOCXExtractor reads the OOXML core properties of a Word document
type DOCXExtractor struct {
	BaseExtractor
}

// NewDOCXExtractor creates a new DOCX metadata extractor
func NewDOCXExtractor() *DOCXExtractor {
	return &DOCXExtractor{
		BaseExtractor: NewBaseExtractor("OOXML Core Properties", []models.DocumentKind{models.KindDOCX}),
	}
}

// Extract reads creator, last editor and the created/modified timestamps
func (e *DOCXExtractor) Extract(data []byte) *models.MetadataRecord {
	rec := models.NewMetadataRecord(models.KindDOCX)

	pkg, err := ooxml.Open(data)
	if err != nil {
		rec.AddError(err.Error())
		return rec
	}

	part, ok := pkg.CorePropertiesPart()
	if !ok {
		return rec
	}

	content, err := pkg.ReadPart(part)
	if err != nil {
		rec.AddError(err.Error())
		return rec
	}

	var props coreProperties
	if err := xml.Unmarshal(content, &props); err != nil {
		rec.AddError(fmt.Sprintf("failed to parse %s: %v", part, err))
		return rec
	}

	setText(rec, models.KeyAuthor, props.Creator)
	setText(rec, models.KeyLastModifiedBy, props.LastModifiedBy)
	setDate(rec, models.KeyCreated, props.Created)
	setDate(rec, models.KeyModified, props.Modified)
	return rec
}

func setText(rec *models.MetadataRecord, key models.MetadataKey, v *string) {
	if v == nil {
		return
	}
	rec.Set(key, strings.TrimSpace(*v))
}

func setDate(rec *models.MetadataRecord, key models.MetadataKey, v *string) {
	if v == nil {
		return
	}
	text := strings.TrimSpace(*v)
	if text == "" {
		rec.Set(key, text)
		return
	}

	if t, ok := ParseW3CDTF(text); ok {
		rec.SetTime(key, text, t)
		return
	}
	rec.Set(key, text)
}
