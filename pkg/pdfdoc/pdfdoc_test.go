package pdfdoc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DocForensics/internal/testdocs"
	"DocForensics/pkg/errs"
)

func letter() []byte {
	return testdocs.Letter(map[string]string{"Producer": "Nitro PDF"}).Bytes()
}

func TestRepair(t *testing.T) {
	base := letter()

	tests := []struct {
		name   string
		data   []byte
		ok     bool
		header string
	}{
		{"already accepted", base, false, "%PDF-1.4"},
		{"pdf 2.0 header", bytes.Replace(base, []byte("%PDF-1.4"), []byte("%PDF-2.0"), 1), true, "%PDF-1.7"},
		{"pdf 1.9 header", bytes.Replace(base, []byte("%PDF-1.4"), []byte("%PDF-1.9"), 1), true, "%PDF-1.7"},
		{"padding after eof", append(bytes.Clone(base), bytes.Repeat([]byte(" "), 200)...), true, "%PDF-1.4"},
		{"eof without newline", bytes.TrimSuffix(bytes.Clone(base), []byte("\n")), true, "%PDF-1.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := bytes.Clone(tt.data)

			fixed, ok := Repair(tt.data)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, original, tt.data, "input must not be modified")
			assert.True(t, bytes.HasPrefix(fixed, []byte(tt.header)))
			assert.True(t, bytes.HasSuffix(fixed, []byte("%%EOF\n")))

			// object offsets stay valid
			assert.Equal(t, base[9:], fixed[9:len(base)])
		})
	}
}

func TestRepair_NothingToDo(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("not a pdf"), []byte("%PDF-1.4\nno trailer")} {
		fixed, ok := Repair(data)
		assert.False(t, ok)
		assert.Equal(t, data, fixed)
	}
}

func TestOpen_RetriesOnRepairedCopy(t *testing.T) {
	data := append(bytes.Replace(letter(), []byte("%PDF-1.4"), []byte("%PDF-2.0"), 1), bytes.Repeat([]byte("\x00"), 300)...)

	var producer string
	err := Open(data, func(r *pdf.Reader) error {
		producer = r.Trailer().Key("Info").Key("Producer").Text()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Nitro PDF", producer)
}

func TestOpen_Failures(t *testing.T) {
	noop := func(*pdf.Reader) error { return nil }

	err := Open([]byte("%PDF-1.4\nthis is not a pdf"), noop)
	assert.True(t, errs.IsKind(err, errs.KindUnsupportedFormat))

	sentinel := errors.New("stop")
	err = Open(letter(), func(*pdf.Reader) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)

	err = Open(letter(), func(*pdf.Reader) error { panic("bad object") })
	assert.True(t, errs.IsKind(err, errs.KindUnsupportedFormat))
}

func TestPageCount(t *testing.T) {
	box := [4]float64{0, 0, 612, 792}

	tests := []struct {
		name string
		doc  testdocs.PDF
		want int
	}{
		{"count present", testdocs.PDF{MediaBox: box, Pages: 3}, 3},
		{"count missing", testdocs.PDF{MediaBox: box, Pages: 3, NoCount: true}, 3},
		{"no pages", testdocs.PDF{MediaBox: box, NoCount: true}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got int
			require.NoError(t, Open(tt.doc.Bytes(), func(r *pdf.Reader) error {
				got = PageCount(r)
				return nil
			}))
			assert.Equal(t, tt.want, got)
		})
	}
}
