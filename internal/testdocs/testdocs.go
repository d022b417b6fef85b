// Package testdocs builds small in-memory JPEG, PNG, PDF and DOCX documents for tests.
package testdocs

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sort"
	"strings"
)

// Gradient returns an opaque w×h test image
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / max(w, 1)),
				G: uint8(y * 255 / max(h, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// EXIF holds the tags written by EXIFBlock. Empty strings are omitted.
type EXIF struct {
	Software         string
	DateTime         string
	DateTimeOriginal string
}

type ifdEntry struct {
	tag   uint16
	typ   uint16
	value string // ASCII values
	long  uint32 // LONG values
}

// EXIFBlock encodes a little-endian TIFF structure with IFD0 and, when needed, an Exif sub-IFD
func EXIFBlock(e EXIF) []byte {
	var ifd0, sub []ifdEntry
	if e.Software != "" {
		ifd0 = append(ifd0, ifdEntry{tag: 0x0131, typ: 2, value: e.Software})
	}
	if e.DateTime != "" {
		ifd0 = append(ifd0, ifdEntry{tag: 0x0132, typ: 2, value: e.DateTime})
	}
	if e.DateTimeOriginal != "" {
		sub = append(sub, ifdEntry{tag: 0x9003, typ: 2, value: e.DateTimeOriginal})
	}

	ifd0Size := 2 + 12*(len(ifd0)+1) + 4
	if len(sub) == 0 {
		ifd0Size -= 12
	}
	subOff := 8 + ifd0Size
	subSize := 0
	if len(sub) > 0 {
		subSize = 2 + 12*len(sub) + 4
		ifd0 = append(ifd0, ifdEntry{tag: 0x8769, typ: 4, long: uint32(subOff)})
	}
	dataOff := subOff + subSize

	var head, data bytes.Buffer
	head.WriteString("II")
	le16(&head, 0x2a)
	le32(&head, 8)

	writeIFD := func(entries []ifdEntry) {
		le16(&head, uint16(len(entries)))
		for _, en := range entries {
			le16(&head, en.tag)
			le16(&head, en.typ)
			if en.typ == 4 {
				le32(&head, 1)
				le32(&head, en.long)
				continue
			}
			val := en.value + "\x00"
			le32(&head, uint32(len(val)))
			if len(val) <= 4 {
				padded := make([]byte, 4)
				copy(padded, val)
				head.Write(padded)
				continue
			}
			le32(&head, uint32(dataOff+data.Len()))
			data.WriteString(val)
		}
		le32(&head, 0)
	}

	writeIFD(ifd0)
	if len(sub) > 0 {
		writeIFD(sub)
	}
	head.Write(data.Bytes())
	return head.Bytes()
}

// JPEG encodes img and inserts an EXIF APP1 segment and a COM segment when given
func JPEG(img image.Image, quality int, exif []byte, comment string) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		panic(err)
	}
	encoded := buf.Bytes()

	var segs bytes.Buffer
	if len(exif) > 0 {
		payload := append([]byte("Exif\x00\x00"), exif...)
		segs.Write([]byte{0xff, 0xe1})
		be16(&segs, uint16(len(payload)+2))
		segs.Write(payload)
	}
	if comment != "" {
		segs.Write([]byte{0xff, 0xfe})
		be16(&segs, uint16(len(comment)+2))
		segs.WriteString(comment)
	}

	out := make([]byte, 0, len(encoded)+segs.Len())
	out = append(out, encoded[:2]...)
	out = append(out, segs.Bytes()...)
	return append(out, encoded[2:]...)
}

// PNGChunk is an ancillary chunk inserted right after IHDR
type PNGChunk struct {
	Type string
	Data []byte
}

// TextChunk builds a tEXt chunk
func TextChunk(keyword, text string) PNGChunk {
	return PNGChunk{Type: "tEXt", Data: []byte(keyword + "\x00" + text)}
}

// PNG encodes img and inserts the given chunks after IHDR
func PNG(img image.Image, chunks ...PNGChunk) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	encoded := buf.Bytes()

	// signature (8) + IHDR (4 length + 4 type + 13 data + 4 crc)
	const ihdrEnd = 8 + 25

	var extra bytes.Buffer
	for _, c := range chunks {
		be32(&extra, uint32(len(c.Data)))
		extra.WriteString(c.Type)
		extra.Write(c.Data)
		be32(&extra, crc32.ChecksumIEEE(append([]byte(c.Type), c.Data...)))
	}

	out := make([]byte, 0, len(encoded)+extra.Len())
	out = append(out, encoded[:ihdrEnd]...)
	out = append(out, extra.Bytes()...)
	return append(out, encoded[ihdrEnd:]...)
}

// PDF describes a minimal document
type PDF struct {
	Info     map[string]string // written as literal strings
	MediaBox [4]float64        // set on the page tree root, inherited by the pages
	Pages    int
	Version  string // header version, "1.4" when empty
	NoCount  bool   // omit /Count from the page tree root
}

// Letter returns a one-page US Letter PDF description
func Letter(info map[string]string) PDF {
	return PDF{Info: info, MediaBox: [4]float64{0, 0, 612, 792}, Pages: 1}
}

// Bytes serialises the document with a valid cross-reference table
func (p PDF) Bytes() []byte {
	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	var kids []string
	for i := 0; i < p.Pages; i++ {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+i))
	}
	count := fmt.Sprintf(" /Count %d", p.Pages)
	if p.NoCount {
		count = ""
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s]%s /MediaBox [%g %g %g %g] >>",
		strings.Join(kids, " "), count, p.MediaBox[0], p.MediaBox[1], p.MediaBox[2], p.MediaBox[3]))

	var info strings.Builder
	info.WriteString("<<")
	for _, k := range sortedKeys(p.Info) {
		fmt.Fprintf(&info, " /%s (%s)", k, escapePDF(p.Info[k]))
	}
	info.WriteString(" >>")
	objects = append(objects, info.String())

	for i := 0; i < p.Pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R >>")
	}

	var buf bytes.Buffer
	version := p.Version
	if version == "" {
		version = "1.4"
	}
	buf.WriteString("%PDF-" + version + "\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 3 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// DOCXImage is a picture placed inline in the document body
type DOCXImage struct {
	Name string // file name under word/media
	Data []byte
}

// DOCX describes a minimal Word document
type DOCX struct {
	Creator        string
	LastModifiedBy string
	Created        string
	Modified       string
	Images         []DOCXImage
	Chart          bool // adds an inline chart ahead of the pictures
}

// Bytes serialises the package as a zip archive
func (d DOCX) Bytes() []byte {
	var body, rels strings.Builder
	rels.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)

	if d.Chart {
		rels.WriteString(`<Relationship Id="rIdChart" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/chart" Target="charts/chart1.xml"/>`)
		body.WriteString(`<w:p><w:r><w:drawing><wp:inline><wp:extent cx="5486400" cy="3200400"/>` +
			`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/chart">` +
			`<c:chart r:id="rIdChart"/></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`)
	}

	for i, img := range d.Images {
		id := fmt.Sprintf("rIdImg%d", i+1)
		fmt.Fprintf(&rels, `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/%s"/>`, id, img.Name)
		fmt.Fprintf(&body, `<w:p><w:r><w:drawing><wp:inline><wp:extent cx="914400" cy="914400"/>`+
			`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
			`<pic:pic><pic:nvPicPr><pic:cNvPr id="%d" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>`+
			`<pic:blipFill><a:blip r:embed="%s"/></pic:blipFill></pic:pic>`+
			`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`, i+1, img.Name, id)
	}
	rels.WriteString(`</Relationships>`)

	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
		` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"` +
		` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
		` xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture"` +
		` xmlns:c="http://schemas.openxmlformats.org/drawingml/2006/chart"` +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		`<w:body><w:p><w:r><w:t>Invoice</w:t></w:r></w:p>` + body.String() + `</w:body></w:document>`

	var core strings.Builder
	core.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"` +
		` xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/"` +
		` xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	if d.Creator != "" {
		fmt.Fprintf(&core, `<dc:creator>%s</dc:creator>`, d.Creator)
	}
	if d.LastModifiedBy != "" {
		fmt.Fprintf(&core, `<cp:lastModifiedBy>%s</cp:lastModifiedBy>`, d.LastModifiedBy)
	}
	if d.Created != "" {
		fmt.Fprintf(&core, `<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>`, d.Created)
	}
	if d.Modified != "" {
		fmt.Fprintf(&core, `<dcterms:modified xsi:type="dcterms:W3CDTF">%s</dcterms:modified>`, d.Modified)
	}
	core.WriteString(`</cp:coreProperties>`)

	files := []struct{ name, content string }{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
			`<Default Extension="xml" ContentType="application/xml"/>` +
			`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
			`</Types>`},
		{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
			`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
			`</Relationships>`},
		{"docProps/core.xml", core.String()},
		{"word/document.xml", document},
		{"word/_rels/document.xml.rels", rels.String()},
	}
	if d.Chart {
		files = append(files, struct{ name, content string }{"word/charts/chart1.xml", `<c:chartSpace xmlns:c="http://schemas.openxmlformats.org/drawingml/2006/chart"/>`})
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			panic(err)
		}
	}
	for _, img := range d.Images {
		w, err := zw.Create("word/media/" + img.Name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(img.Data); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escapePDF(s string) string {
	return strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace(s)
}

func le16(b *bytes.Buffer, v uint16) { _ = binary.Write(b, binary.LittleEndian, v) }
func le32(b *bytes.Buffer, v uint32) { _ = binary.Write(b, binary.LittleEndian, v) }
func be16(b *bytes.Buffer, v uint16) { _ = binary.Write(b, binary.BigEndian, v) }
func be32(b *bytes.Buffer, v uint32) { _ = binary.Write(b, binary.BigEndian, v) }
