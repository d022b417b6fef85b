// Package pdfdoc opens PDF documents for structural inspection.
// The parser is strict about the header version and the position of %%EOF,
// so documents it rejects are retried on a repaired copy.
package pdfdoc

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"DocForensics/pkg/errs"
)

var (
	headerPrefix = []byte("%PDF-")
	eofMarker    = []byte("%%EOF")
)

// upper bound on page tree nodes visited when /Count is missing
const maxTreeNodes = 100000

// Open parses data and runs fn on the reader. When the parser rejects data,
// a copy with a 1.x header and nothing after the last %%EOF is tried once.
// Parser panics become unsupported_format errors.
func Open(data []byte, fn func(r *pdf.Reader) error) error {
	r, err := newReader(data)
	if err != nil {
		fixed, ok := Repair(data)
		if !ok {
			return err
		}
		var rerr error
		if r, rerr = newReader(fixed); rerr != nil {
			return err
		}
	}
	return run(r, fn)
}

// Repair returns a copy of data the parser accepts more readily: a header
// version outside 1.0-1.7 is rewritten to 1.7 in place and bytes after the
// last %%EOF are dropped. Object offsets are unchanged. ok is false when
// there was nothing to repair.
func Repair(data []byte) (fixed []byte, ok bool) {
	fixed = data

	if needsHeaderRewrite(data) {
		fixed = bytes.Clone(data)
		copy(fixed[5:8], "1.7")
		ok = true
	}

	if i := bytes.LastIndex(fixed, eofMarker); i >= 0 {
		end := i + len(eofMarker)
		if end == len(fixed) || !bytes.Equal(fixed[end:], []byte("\n")) {
			trimmed := make([]byte, 0, end+1)
			trimmed = append(trimmed, fixed[:end]...)
			fixed = append(trimmed, '\n')
			ok = true
		}
	}

	if !ok {
		return data, false
	}
	return fixed, true
}

// needsHeaderRewrite reports a "%PDF-x.y" header line the parser refuses
func needsHeaderRewrite(data []byte) bool {
	if len(data) < 9 || !bytes.HasPrefix(data, headerPrefix) {
		return false
	}
	if data[8] != '\n' && data[8] != '\r' {
		return false
	}
	major, dot, minor := data[5], data[6], data[7]
	if dot != '.' || major < '0' || major > '9' || minor < '0' || minor > '9' {
		return false
	}
	return major != '1' || minor > '7'
}

// PageCount returns /Count of the page tree root, or the number of page
// leaves under /Kids when /Count is missing or zero.
func PageCount(r *pdf.Reader) int {
	if n := r.NumPage(); n > 0 {
		return n
	}

	visited := 0
	var leaves func(node pdf.Value) int
	leaves = func(node pdf.Value) int {
		visited++
		if node.IsNull() || visited > maxTreeNodes {
			return 0
		}
		if node.Key("Type").Name() == "Page" {
			return 1
		}
		kids := node.Key("Kids")
		n := 0
		for i := 0; i < kids.Len(); i++ {
			n += leaves(kids.Index(i))
		}
		return n
	}
	return leaves(r.Trailer().Key("Root").Key("Pages"))
}

func newReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, errs.New(errs.KindUnsupportedFormat, "parse pdf", fmt.Sprintf("malformed PDF: %v", p))
		}
	}()

	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errs.Wrap(errs.KindUnsupportedFormat, "parse pdf", "failed to parse PDF", err)
	}
	return r, nil
}

func run(r *pdf.Reader, fn func(r *pdf.Reader) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errs.New(errs.KindUnsupportedFormat, "parse pdf", fmt.Sprintf("malformed PDF: %v", p))
		}
	}()
	return fn(r)
}
