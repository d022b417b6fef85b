package models

import (
	"time"
)

// MetadataKey names one of the authoring metadata fields the engine understands
type MetadataKey string

const (
	KeySoftware         MetadataKey = "Software"
	KeySoftwareInfo     MetadataKey = "Software (Info)" // container-level slot outside the EXIF table
	KeyAuthor           MetadataKey = "Author"
	KeyCreator          MetadataKey = "Creator"
	KeyProducer         MetadataKey = "Producer"
	KeyDateTimeOriginal MetadataKey = "DateTimeOriginal"
	KeyDateTime         MetadataKey = "DateTime"
	KeyCreationDate     MetadataKey = "CreationDate"
	KeyModDate          MetadataKey = "ModDate"
	KeyLastModifiedBy   MetadataKey = "LastModifiedBy"
	KeyCreated          MetadataKey = "Created"
	KeyModified         MetadataKey = "Modified"
)

// AllMetadataKeys lists the known keys in display order
var AllMetadataKeys = []MetadataKey{
	KeySoftware,
	KeySoftwareInfo,
	KeyProducer,
	KeyCreator,
	KeyAuthor,
	KeyLastModifiedBy,
	KeyDateTimeOriginal,
	KeyDateTime,
	KeyCreationDate,
	KeyModDate,
	KeyCreated,
	KeyModified,
}

// MetadataValue holds the raw text of a field and, for timestamps, its parsed instant
type MetadataValue struct {
	Text string     `json:"text"`
	Time *time.Time `json:"time,omitempty"`
}

// MetadataRecord is the extracted authoring metadata of one document or embedded image.
// A key missing from Fields is absent; a present key with empty Text is an empty value.
type MetadataRecord struct {
	Source DocumentKind                  `json:"source"`
	Fields map[MetadataKey]MetadataValue `json:"fields"`
	Errors []string                      `json:"errors,omitempty"`
}

// NewMetadataRecord returns an empty record for the given source
func NewMetadataRecord(source DocumentKind) *MetadataRecord {
	return &MetadataRecord{
		Source: source,
		Fields: make(map[MetadataKey]MetadataValue),
	}
}

// Set stores a text value
func (m *MetadataRecord) Set(key MetadataKey, text string) {
	m.ensure()
	m.Fields[key] = MetadataValue{Text: text}
}

// SetTime stores a timestamp, keeping the raw text alongside it
func (m *MetadataRecord) SetTime(key MetadataKey, text string, t time.Time) {
	m.ensure()
	m.Fields[key] = MetadataValue{Text: text, Time: &t}
}

// Get returns the value for key and whether it is present
func (m *MetadataRecord) Get(key MetadataKey) (MetadataValue, bool) {
	if m == nil || m.Fields == nil {
		return MetadataValue{}, false
	}
	v, ok := m.Fields[key]
	return v, ok
}

// Has reports whether key is present
func (m *MetadataRecord) Has(key MetadataKey) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of present fields
func (m *MetadataRecord) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Fields)
}

// AddError records a parsing failure without aborting extraction
func (m *MetadataRecord) AddError(msg string) {
	m.Errors = append(m.Errors, msg)
}

// Keys returns the present keys in display order
func (m *MetadataRecord) Keys() []MetadataKey {
	var keys []MetadataKey
	for _, k := range AllMetadataKeys {
		if m.Has(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (m *MetadataRecord) ensure() {
	if m.Fields == nil {
		m.Fields = make(map[MetadataKey]MetadataValue)
	}
}
