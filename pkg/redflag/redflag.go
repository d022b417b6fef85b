// Package redflag turns extracted metadata into human-readable forgery indicators.
package redflag

import (
	"fmt"
	"strings"
	"time"

	"DocForensics/pkg/config"
	"DocForensics/pkg/metadata"
	"DocForensics/pkg/models"
)

// Rule names carried by RedFlag.Rule
const (
	RuleKeyword         = "keyword"
	RuleTemporal        = "temporal"
	RuleEditHistory     = "edit_history"
	RuleEditingSoftware = "editing_software"
	RuleDiagnostic      = "diagnostic"
)

// keywordFields are scanned in document-level records
var keywordFields = []models.MetadataKey{
	models.KeyProducer,
	models.KeyCreator,
	models.KeyAuthor,
	models.KeySoftware,
	models.KeyLastModifiedBy,
}

// softwareFields are scanned in image records
var softwareFields = []models.MetadataKey{
	models.KeySoftware,
	models.KeySoftwareInfo,
}

// datePairs are (creation, modification) fields compared by the temporal rule
var datePairs = [][2]models.MetadataKey{
	{models.KeyCreationDate, models.KeyModDate},
	{models.KeyCreated, models.KeyModified},
	{models.KeyDateTimeOriginal, models.KeyDateTime},
}

const anyEditMessage = "Modification detected: Creation and Modification dates differ."

// Classifier applies the keyword, temporal, editing-software and diagnostic rules.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	keywords     []string
	editingTools []string
	flagAnyEdit  bool
}

// New creates a classifier from the rules configuration
func New(cfg config.RulesConfig) *Classifier {
	return &Classifier{
		keywords:     normalizeList(cfg.Keywords),
		editingTools: normalizeList(cfg.EditingTools),
		flagAnyEdit:  cfg.FlagAnyEdit,
	}
}

// Default returns a classifier with the built-in keyword lists
func Default() *Classifier {
	return New(config.Default().Rules)
}

// Classify evaluates every rule over the records in order. Flags are unique by
// message and ordered by discovery. The result is never nil.
func (c *Classifier) Classify(records ...*models.MetadataRecord) []models.RedFlag {
	flags := make([]models.RedFlag, 0)
	seen := make(map[string]bool)
	add := func(f models.RedFlag) {
		if seen[f.Message] {
			return
		}
		seen[f.Message] = true
		flags = append(flags, f)
	}

	for _, rec := range records {
		if rec == nil {
			continue
		}

		if rec.Source == models.KindImage {
			c.softwareRule(rec, add)
		} else {
			c.keywordRule(rec, add)
		}
		c.temporalRule(rec, add)

		for _, e := range rec.Errors {
			add(models.RedFlag{
				Rule:    RuleDiagnostic,
				Message: fmt.Sprintf("Error scanning metadata: %s", e),
			})
		}
	}
	return flags
}

// Notes returns informational observations that are not red flags on their own
func (c *Classifier) Notes(records ...*models.MetadataRecord) []string {
	var notes []string
	if c.flagAnyEdit {
		return notes
	}

	for _, rec := range records {
		for _, pair := range datePairs {
			created, modified, ok := pairValues(rec, pair)
			if !ok {
				continue
			}
			cmp, comparable := compare(created, modified)
			switch {
			case comparable && cmp < 0:
				notes = append(notes, fmt.Sprintf("Edit history: %s (%s) precedes %s (%s).",
					pair[0], created.Text, pair[1], modified.Text))
			case !comparable && created.Text != modified.Text:
				notes = append(notes, fmt.Sprintf("Edit history: %s (%s) differs from %s (%s).",
					pair[0], created.Text, pair[1], modified.Text))
			}
		}
	}
	return notes
}

func (c *Classifier) keywordRule(rec *models.MetadataRecord, add func(models.RedFlag)) {
	for _, field := range keywordFields {
		v, ok := rec.Get(field)
		if !ok || v.Text == "" {
			continue
		}
		lower := strings.ToLower(v.Text)
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				add(models.RedFlag{
					Rule:    RuleKeyword,
					Field:   string(field),
					Keyword: kw,
					Message: fmt.Sprintf("Suspicious keyword '%s' found in %s: '%s'", kw, field, v.Text),
				})
			}
		}
	}
}

func (c *Classifier) softwareRule(rec *models.MetadataRecord, add func(models.RedFlag)) {
	for _, field := range softwareFields {
		v, ok := rec.Get(field)
		if !ok || v.Text == "" {
			continue
		}
		lower := strings.ToLower(v.Text)
		for _, tool := range c.editingTools {
			if strings.Contains(lower, tool) {
				add(models.RedFlag{
					Rule:    RuleEditingSoftware,
					Field:   string(field),
					Keyword: tool,
					Message: fmt.Sprintf("Editing software '%s' detected in EXIF %s: '%s'", tool, field, v.Text),
				})
			}
		}
	}
}

// temporalRule flags a creation instant strictly after the modification instant.
// With flagAnyEdit set, any difference is flagged as well.
func (c *Classifier) temporalRule(rec *models.MetadataRecord, add func(models.RedFlag)) {
	for _, pair := range datePairs {
		created, modified, ok := pairValues(rec, pair)
		if !ok {
			continue
		}

		cmp, comparable := compare(created, modified)
		if comparable && cmp > 0 {
			add(models.RedFlag{
				Rule:  RuleTemporal,
				Field: string(pair[0]),
				Message: fmt.Sprintf("Temporal Anomaly: Creation date (%s) is after Modification date (%s).",
					created.Text, modified.Text),
			})
		}

		differ := created.Text != modified.Text
		if comparable {
			differ = cmp != 0
		}
		if c.flagAnyEdit && differ {
			add(models.RedFlag{
				Rule:    RuleEditHistory,
				Field:   string(pair[0]),
				Message: anyEditMessage,
			})
		}
	}
}

func pairValues(rec *models.MetadataRecord, pair [2]models.MetadataKey) (models.MetadataValue, models.MetadataValue, bool) {
	created, ok := rec.Get(pair[0])
	if !ok {
		return models.MetadataValue{}, models.MetadataValue{}, false
	}
	modified, ok := rec.Get(pair[1])
	if !ok {
		return models.MetadataValue{}, models.MetadataValue{}, false
	}
	return created, modified, true
}

// compare orders two timestamps. comparable is false when either side cannot be resolved to an instant.
func compare(a, b models.MetadataValue) (cmp int, comparable bool) {
	ta, ok := instant(a)
	if !ok {
		return 0, false
	}
	tb, ok := instant(b)
	if !ok {
		return 0, false
	}
	return ta.Compare(tb), true
}

func instant(v models.MetadataValue) (time.Time, bool) {
	if v.Time != nil {
		return *v.Time, true
	}
	return metadata.ParseTimestamp(v.Text)
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
