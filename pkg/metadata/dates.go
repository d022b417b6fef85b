package metadata

import (
	"strconv"
	"strings"
	"time"
)

const exifDateLayout = "2006:01:02 15:04:05"

var w3cdtfLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParsePDFDate parses a PDF date string of the form D:YYYYMMDDHHmmSSOHH'mm'.
// Everything after the year is optional.
func ParsePDFDate(s string) (time.Time, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")

	n := 0
	for n < len(s) && n < 14 && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n < 4 || n%2 != 0 {
		return time.Time{}, false
	}

	// year, month, day, hour, minute, second
	parts := []int{0, 1, 1, 0, 0, 0}
	parts[0], _ = strconv.Atoi(s[0:4])
	for i, off := 1, 4; off < n; i, off = i+1, off+2 {
		parts[i], _ = strconv.Atoi(s[off : off+2])
	}

	loc, ok := pdfZone(s[n:])
	if !ok {
		return time.Time{}, false
	}

	t := time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, loc)
	// time.Date normalises overflow; reject it instead
	if t.Month() != time.Month(parts[1]) || t.Day() != parts[2] || t.Hour() != parts[3] ||
		t.Minute() != parts[4] || t.Second() != parts[5] {
		return time.Time{}, false
	}
	return t, true
}

func pdfZone(rest string) (*time.Location, bool) {
	rest = strings.TrimSpace(rest)
	if rest == "" || rest == "Z" || strings.HasPrefix(rest, "Z") {
		return time.UTC, true
	}

	sign := 1
	switch rest[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, false
	}

	digits := strings.NewReplacer("'", "", ":", "").Replace(rest[1:])
	if len(digits) != 2 && len(digits) != 4 {
		return nil, false
	}
	hours, err := strconv.Atoi(digits[:2])
	if err != nil || hours > 23 {
		return nil, false
	}
	minutes := 0
	if len(digits) == 4 {
		if minutes, err = strconv.Atoi(digits[2:]); err != nil || minutes > 59 {
			return nil, false
		}
	}

	offset := sign * (hours*3600 + minutes*60)
	if offset == 0 {
		return time.UTC, true
	}
	return time.FixedZone("", offset), true
}

// ParseEXIFDate parses the "YYYY:MM:DD HH:MM:SS" form used by EXIF tags
func ParseEXIFDate(s string) (time.Time, bool) {
	t, err := time.Parse(exifDateLayout, strings.TrimSpace(strings.TrimRight(s, "\x00")))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseW3CDTF parses the ISO 8601 profile used by OOXML core properties
func ParseW3CDTF(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range w3cdtfLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseTimestamp tries every timestamp syntax the extractors know about
func ParseTimestamp(s string) (time.Time, bool) {
	if t, ok := ParsePDFDate(s); ok {
		return t, true
	}
	if t, ok := ParseW3CDTF(s); ok {
		return t, true
	}
	return ParseEXIFDate(s)
}
