package metadata

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"DocForensics/pkg/models"
)

var (
	exifHeader   = []byte("Exif\x00\x00")
	pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	tiffLE       = []byte("II*\x00")
	tiffBE       = []byte("MM\x00*")
)

// maximum inflated size of a compressed PNG text chunk
const maxTextChunk = 1 << 20

// exifFields is the allow-list of EXIF tags copied into the record
var exifFields = []struct {
	name exif.FieldName
	key  models.MetadataKey
	date bool
}{
	{exif.Software, models.KeySoftware, false},
	{exif.DateTime, models.KeyDateTime, true},
	{exif.DateTimeOriginal, models.KeyDateTimeOriginal, true},
}

// ImageExtractor reads EXIF tags and container-level software strings from raster images
type ImageExtractor struct {
	BaseExtractor
}

// NewImageExtractor creates a new image metadata extractor
func NewImageExtractor() *ImageExtractor {
	return &ImageExtractor{
		BaseExtractor: NewBaseExtractor("EXIF", []models.DocumentKind{models.KindImage}),
	}
}

// Extract returns the allow-listed EXIF fields. An image without EXIF yields an empty record.
func (e *ImageExtractor) Extract(data []byte) *models.MetadataRecord {
	rec := models.NewMetadataRecord(models.KindImage)

	var (
		payload  []byte
		software string
		err      error
	)
	switch {
	case bytes.HasPrefix(data, []byte{0xff, 0xd8}):
		payload, software, err = scanJPEG(data)
	case bytes.HasPrefix(data, pngSignature):
		payload, software, err = scanPNG(data)
	case bytes.HasPrefix(data, tiffLE), bytes.HasPrefix(data, tiffBE):
		payload = data
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		payload, err = scanWebP(data)
	}
	if err != nil {
		rec.AddError(err.Error())
	}

	if software != "" {
		rec.Set(models.KeySoftwareInfo, software)
	}
	if len(payload) > 0 {
		decodeEXIF(payload, rec)
	}
	return rec
}

func decodeEXIF(payload []byte, rec *models.MetadataRecord) {
	payload = bytes.TrimPrefix(payload, exifHeader)

	x, err := exif.Decode(bytes.NewReader(payload))
	if x == nil {
		if err != nil {
			rec.AddError(fmt.Sprintf("failed to decode EXIF: %v", err))
		}
		return
	}
	if err != nil && exif.IsCriticalError(err) {
		rec.AddError(fmt.Sprintf("failed to decode EXIF: %v", err))
	}

	for _, f := range exifFields {
		tag, err := x.Get(f.name)
		if err != nil {
			continue
		}
		val, err := tag.StringVal()
		if err != nil {
			rec.AddError(fmt.Sprintf("EXIF %s: %v", f.name, err))
			continue
		}
		val = strings.TrimSpace(strings.TrimRight(val, "\x00"))

		if f.date {
			if t, ok := ParseEXIFDate(val); ok {
				rec.SetTime(f.key, val, t)
				continue
			}
		}
		rec.Set(f.key, val)
	}
}

// scanJPEG walks the marker segments up to the start of scan and returns the
// first APP1 EXIF payload and the first COM text.
func scanJPEG(data []byte) (payload []byte, comment string, err error) {
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xff {
			return payload, comment, fmt.Errorf("invalid JPEG marker at offset %d", pos)
		}
		marker := data[pos+1]
		// fill bytes and standalone markers carry no length
		if marker == 0xff {
			pos++
			continue
		}
		if marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7) {
			pos += 2
			continue
		}
		if marker == 0xd9 || marker == 0xda {
			break
		}

		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		end := pos + 2 + length
		if length < 2 || end > len(data) {
			return payload, comment, fmt.Errorf("truncated JPEG segment 0x%02X at offset %d", marker, pos)
		}
		seg := data[pos+4 : end]

		switch {
		case marker == 0xe1 && payload == nil && bytes.HasPrefix(seg, exifHeader):
			payload = seg[len(exifHeader):]
		case marker == 0xfe && comment == "":
			comment = strings.TrimSpace(strings.TrimRight(string(seg), "\x00"))
		}
		pos = end
	}
	return payload, comment, nil
}

// scanPNG returns the eXIf chunk and the text of a "Software" tEXt, zTXt or iTXt chunk
func scanPNG(data []byte) (payload []byte, software string, err error) {
	pos := len(pngSignature)
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		typ := string(data[pos+4 : pos+8])
		end := pos + 8 + length + 4
		if length < 0 || end > len(data) {
			return payload, software, fmt.Errorf("truncated PNG chunk %q at offset %d", typ, pos)
		}
		chunk := data[pos+8 : pos+8+length]

		switch typ {
		case "eXIf":
			if payload == nil {
				payload = chunk
			}
		case "tEXt", "zTXt", "iTXt":
			if software != "" {
				break
			}
			key, text, terr := pngText(typ, chunk)
			if terr != nil {
				err = terr
				break
			}
			if key == "Software" {
				software = strings.TrimSpace(text)
			}
		case "IEND":
			return payload, software, err
		}
		pos = end
	}
	return payload, software, err
}

func pngText(typ string, chunk []byte) (key, text string, err error) {
	null := bytes.IndexByte(chunk, 0)
	if null < 1 {
		return "", "", fmt.Errorf("malformed PNG %s chunk", typ)
	}
	key = string(chunk[:null])
	rest := chunk[null+1:]

	switch typ {
	case "tEXt":
		return key, string(rest), nil
	case "zTXt":
		if len(rest) < 1 {
			return key, "", fmt.Errorf("malformed PNG zTXt chunk %q", key)
		}
		text, err = inflate(rest[1:])
		return key, text, err
	}

	// iTXt: compression flag, method, language\0, translated keyword\0, text
	if len(rest) < 2 {
		return key, "", fmt.Errorf("malformed PNG iTXt chunk %q", key)
	}
	compressed := rest[0] == 1
	rest = rest[2:]
	for i := 0; i < 2; i++ {
		n := bytes.IndexByte(rest, 0)
		if n < 0 {
			return key, "", fmt.Errorf("malformed PNG iTXt chunk %q", key)
		}
		rest = rest[n+1:]
	}
	if compressed {
		text, err = inflate(rest)
		return key, text, err
	}
	return key, string(rest), nil
}

func inflate(b []byte) (string, error) {
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("failed to inflate PNG text: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxTextChunk))
	if err != nil {
		return "", fmt.Errorf("failed to inflate PNG text: %w", err)
	}
	return string(out), nil
}

// scanWebP returns the payload of the RIFF "EXIF" chunk
func scanWebP(data []byte) ([]byte, error) {
	pos := 12
	for pos+8 <= len(data) {
		fourcc := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		if size < 0 || pos+8+size > len(data) {
			return nil, fmt.Errorf("truncated WebP chunk %q at offset %d", fourcc, pos)
		}
		if fourcc == "EXIF" {
			return data[pos+8 : pos+8+size], nil
		}
		// chunks are padded to even sizes
		pos += 8 + size + size%2
	}
	return nil, nil
}
