package redflag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DocForensics/pkg/config"
	"DocForensics/pkg/models"
)

func record(source models.DocumentKind, fields map[models.MetadataKey]string) *models.MetadataRecord {
	rec := models.NewMetadataRecord(source)
	for k, v := range fields {
		rec.Set(k, v)
	}
	return rec
}

func messages(flags []models.RedFlag) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		out = append(out, f.Message)
	}
	return out
}

func TestClassify_ImageSoftware(t *testing.T) {
	c := Default()

	flags := c.Classify(record(models.KindImage, map[models.MetadataKey]string{
		models.KeySoftware: "Adobe Photoshop 2023",
	}))
	require.NotEmpty(t, flags)

	var keywords []string
	for _, f := range flags {
		assert.Equal(t, RuleEditingSoftware, f.Rule)
		keywords = append(keywords, f.Keyword)
	}
	assert.Contains(t, keywords, "photoshop")
	assert.Contains(t, messages(flags), "Editing software 'photoshop' detected in EXIF Software: 'Adobe Photoshop 2023'")

	clean := c.Classify(record(models.KindImage, map[models.MetadataKey]string{
		models.KeySoftware: "Canon EOS Utility",
	}))
	assert.NotNil(t, clean)
	assert.Empty(t, clean)
}

func TestClassify_ImageSoftwareInfoSlot(t *testing.T) {
	flags := Default().Classify(record(models.KindImage, map[models.MetadataKey]string{
		models.KeySoftwareInfo: "GIMP 2.10",
	}))
	assert.Equal(t, []string{"Editing software 'gimp' detected in EXIF Software (Info): 'GIMP 2.10'"}, messages(flags))
}

func TestClassify_DocumentKeywordPerField(t *testing.T) {
	rec := record(models.KindPDF, map[models.MetadataKey]string{
		models.KeyProducer: "GIMP export",
		models.KeyCreator:  "gimp",
	})

	flags := Default().Classify(rec)
	assert.Equal(t, []string{
		"Suspicious keyword 'gimp' found in Producer: 'GIMP export'",
		"Suspicious keyword 'gimp' found in Creator: 'gimp'",
	}, messages(flags))
	assert.Equal(t, "Producer", flags[0].Field)
	assert.Equal(t, "gimp", flags[0].Keyword)
}

func TestClassify_DocumentKeywords(t *testing.T) {
	rec := record(models.KindPDF, map[models.MetadataKey]string{
		models.KeyProducer: "iLovePDF",
		models.KeyAuthor:   "I Love PDF online",
	})
	assert.Equal(t, []string{"Suspicious keyword 'i love pdf' found in Author: 'I Love PDF online'"},
		messages(Default().Classify(rec)))

	docx := record(models.KindDOCX, map[models.MetadataKey]string{
		models.KeyLastModifiedBy: "Modified by Adobe Acrobat",
	})
	assert.ElementsMatch(t, []string{
		"Suspicious keyword 'adobe' found in LastModifiedBy: 'Modified by Adobe Acrobat'",
		"Suspicious keyword 'modified' found in LastModifiedBy: 'Modified by Adobe Acrobat'",
	}, messages(Default().Classify(docx)))
}

func TestClassify_SourceSelectsRule(t *testing.T) {
	// "modified" is a document keyword only; the image rule uses the editing-tool list
	img := record(models.KindImage, map[models.MetadataKey]string{models.KeySoftware: "modified"})
	assert.Empty(t, Default().Classify(img))

	// Software (Info) is not a document field
	pdf := record(models.KindPDF, map[models.MetadataKey]string{models.KeySoftwareInfo: "Photoshop"})
	assert.Empty(t, Default().Classify(pdf))
}

func TestClassify_Idempotent(t *testing.T) {
	rec := record(models.KindPDF, map[models.MetadataKey]string{
		models.KeyProducer: "Adobe Photoshop",
		models.KeyCreator:  "GIMP",
	})
	c := Default()

	first := c.Classify(rec)
	second := c.Classify(rec)
	assert.Equal(t, first, second)

	twice := c.Classify(rec, rec)
	assert.Equal(t, first, twice)
}

func TestClassify_Temporal(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(48 * time.Hour)

	inverted := models.NewMetadataRecord(models.KindDOCX)
	inverted.SetTime(models.KeyCreated, "2024-01-03T12:00:00Z", t2)
	inverted.SetTime(models.KeyModified, "2024-01-01T12:00:00Z", t1)

	flags := Default().Classify(inverted)
	require.Len(t, flags, 1)
	assert.Equal(t, RuleTemporal, flags[0].Rule)
	assert.Equal(t, "Temporal Anomaly: Creation date (2024-01-03T12:00:00Z) is after Modification date (2024-01-01T12:00:00Z).", flags[0].Message)

	same := models.NewMetadataRecord(models.KindDOCX)
	same.SetTime(models.KeyCreated, "2024-01-01T12:00:00Z", t1)
	same.SetTime(models.KeyModified, "2024-01-01T12:00:00Z", t1)
	assert.Empty(t, Default().Classify(same))

	forward := models.NewMetadataRecord(models.KindDOCX)
	forward.SetTime(models.KeyCreated, "2024-01-01T12:00:00Z", t1)
	forward.SetTime(models.KeyModified, "2024-01-03T12:00:00Z", t2)
	assert.Empty(t, Default().Classify(forward))
	assert.Len(t, Default().Notes(forward), 1)
}

func TestClassify_TemporalPDFAndEXIF(t *testing.T) {
	pdf := record(models.KindPDF, map[models.MetadataKey]string{
		models.KeyCreationDate: "D:20240105000000Z",
		models.KeyModDate:      "D:20240101000000Z",
	})
	flags := Default().Classify(pdf)
	require.Len(t, flags, 1)
	assert.Equal(t, RuleTemporal, flags[0].Rule)

	exif := record(models.KindImage, map[models.MetadataKey]string{
		models.KeyDateTimeOriginal: "2024:01:05 00:00:00",
		models.KeyDateTime:         "2024:01:01 00:00:00",
	})
	flags = Default().Classify(exif)
	require.Len(t, flags, 1)
	assert.Equal(t, models.KeyDateTimeOriginal, models.MetadataKey(flags[0].Field))

	// same instant written in different offsets is not an edit
	offsets := record(models.KindPDF, map[models.MetadataKey]string{
		models.KeyCreationDate: "D:20240101120000Z",
		models.KeyModDate:      "D:20240101140000+02'00'",
	})
	assert.Empty(t, Default().Classify(offsets))
	assert.Empty(t, Default().Notes(offsets))
}

func TestClassify_UnparseableDates(t *testing.T) {
	rec := record(models.KindPDF, map[models.MetadataKey]string{
		models.KeyCreationDate: "last week",
		models.KeyModDate:      "today",
	})

	assert.Empty(t, Default().Classify(rec))
	assert.Equal(t, []string{"Edit history: CreationDate (last week) differs from ModDate (today)."}, Default().Notes(rec))

	strict := New(config.RulesConfig{FlagAnyEdit: true})
	assert.Equal(t, []string{anyEditMessage}, messages(strict.Classify(rec)))
}

func TestClassify_FlagAnyEdit(t *testing.T) {
	c := New(config.RulesConfig{FlagAnyEdit: true})

	pdf := record(models.KindPDF, map[models.MetadataKey]string{
		models.KeyCreationDate: "D:20240101000000Z",
		models.KeyModDate:      "D:20240201000000Z",
	})
	docx := record(models.KindDOCX, map[models.MetadataKey]string{
		models.KeyCreated:  "2024-01-01T00:00:00Z",
		models.KeyModified: "2024-02-01T00:00:00Z",
	})

	assert.Equal(t, []string{anyEditMessage}, messages(c.Classify(pdf)))
	assert.Equal(t, []string{anyEditMessage}, messages(c.Classify(docx)))
	assert.Equal(t, []string{anyEditMessage}, messages(c.Classify(pdf, docx)))
	assert.Empty(t, c.Notes(pdf))
}

func TestClassify_Diagnostics(t *testing.T) {
	rec := record(models.KindPDF, map[models.MetadataKey]string{models.KeyProducer: "Adobe"})
	rec.AddError("failed to open PDF: malformed xref")

	flags := Default().Classify(rec)
	assert.Equal(t, []string{
		"Suspicious keyword 'adobe' found in Producer: 'Adobe'",
		"Error scanning metadata: failed to open PDF: malformed xref",
	}, messages(flags))
	assert.Equal(t, RuleDiagnostic, flags[1].Rule)
}

func TestClassify_DocumentBeforeImage(t *testing.T) {
	doc := record(models.KindPDF, map[models.MetadataKey]string{models.KeyProducer: "Photoshop PDF"})
	img := record(models.KindImage, map[models.MetadataKey]string{models.KeySoftware: "Photoshop"})

	flags := Default().Classify(doc, nil, img)
	require.Len(t, flags, 2)
	assert.Equal(t, RuleKeyword, flags[0].Rule)
	assert.Equal(t, RuleEditingSoftware, flags[1].Rule)
}

func TestClassify_EmptyInput(t *testing.T) {
	flags := Default().Classify()
	assert.NotNil(t, flags)
	assert.Empty(t, flags)

	flags = Default().Classify(models.NewMetadataRecord(models.KindDOCX))
	assert.NotNil(t, flags)
	assert.Empty(t, flags)
}

func TestNew_NormalizesLists(t *testing.T) {
	c := New(config.RulesConfig{Keywords: []string{"  ACME  ", ""}})
	flags := c.Classify(record(models.KindPDF, map[models.MetadataKey]string{models.KeyCreator: "acme writer"}))
	assert.Equal(t, []string{"Suspicious keyword 'acme' found in Creator: 'acme writer'"}, messages(flags))
}
