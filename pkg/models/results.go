package models

import (
	"image"
	"time"
)

// DocumentKind identifies the container type of an uploaded document
type DocumentKind string

const (
	KindUnknown DocumentKind = "unknown"
	KindImage   DocumentKind = "image"
	KindPDF     DocumentKind = "pdf"
	KindDOCX    DocumentKind = "docx"
)

// RawDocument is the uploaded byte sequence together with its detected kind
type RawDocument struct {
	Data     []byte
	Filename string
	Kind     DocumentKind
}

// ELAStats summarises an ELA heat map
type ELAStats struct {
	MaxDifference  uint8   `json:"maxDifference"`
	MeanDifference float64 `json:"meanDifference"`
	BrightPixels   int     `json:"brightPixels"`
	BrightRatio    float64 `json:"brightRatio"` // 0.0-1.0 share of pixels at or above the bright threshold
}

// ELAResult is the amplified compression-difference heat map of a normalized image
type ELAResult struct {
	Image         *image.RGBA `json:"-"`
	Quality       int         `json:"quality"`
	Amplification float64     `json:"amplification"`
	Stats         ELAStats    `json:"stats"`
}

// RedFlag is one human-readable anomaly found in document metadata
type RedFlag struct {
	Rule    string `json:"rule"`
	Field   string `json:"field,omitempty"`
	Keyword string `json:"keyword,omitempty"`
	Message string `json:"message"`
}

// String returns the display form of the flag
func (f RedFlag) String() string {
	return f.Message
}

// ForensicReport contains everything collected for one analysed document
type ForensicReport struct {
	ID               string          `json:"id"`
	Filename         string          `json:"filename"`
	Kind             DocumentKind    `json:"kind"`
	Image            image.Image     `json:"-"`
	ELA              *ELAResult      `json:"ela"`
	Metadata         *MetadataRecord `json:"metadata"`
	EmbeddedMetadata *MetadataRecord `json:"embeddedMetadata,omitempty"`
	RedFlags         []RedFlag       `json:"redFlags"`
	Notes            []string        `json:"notes,omitempty"`
	AnalysisTime     time.Time       `json:"analysisTime"`
	AnalysisDuration time.Duration   `json:"analysisDuration"`
}

// AddRedFlag appends a flag unless one with the same message is already present
func (r *ForensicReport) AddRedFlag(flag RedFlag) {
	for _, existing := range r.RedFlags {
		if existing.Message == flag.Message {
			return
		}
	}
	r.RedFlags = append(r.RedFlags, flag)
}

// AddNote adds an informational observation to the report
func (r *ForensicReport) AddNote(note string) {
	r.Notes = append(r.Notes, note)
}

// HasRedFlags reports whether any anomaly was found
func (r *ForensicReport) HasRedFlags() bool {
	return len(r.RedFlags) > 0
}
