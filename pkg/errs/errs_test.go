package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "error with cause",
			err:      Wrap(KindUnsupportedFormat, "normalize", "failed to decode image", errors.New("bad header")),
			contains: []string{"[unsupported_format:normalize]", "failed to decode image", "bad header"},
		},
		{
			name:     "error without cause",
			err:      New(KindNoContentFound, "docx", "no embedded images"),
			contains: []string{"[no_content_found:docx]", "no embedded images"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, substr := range tt.contains {
				assert.Contains(t, tt.err.Error(), substr)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(KindIO, "read", "x", nil))
	})

	t.Run("unwrap reaches cause", func(t *testing.T) {
		cause := errors.New("original")
		assert.ErrorIs(t, Wrap(KindDecode, "ela", "redecode", cause), cause)
	})

	t.Run("existing kind is preserved", func(t *testing.T) {
		inner := New(KindRenderTimeout, "pdftoppm", "deadline exceeded")
		outer := Wrap(KindUnsupportedFormat, "pdf", "render failed", fmt.Errorf("render: %w", inner))
		assert.True(t, IsKind(outer, KindRenderTimeout))
		assert.False(t, IsKind(outer, KindUnsupportedFormat))
	})
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(New(KindDecode, "op", "m"), KindDecode))
	assert.True(t, IsKind(fmt.Errorf("ctx: %w", New(KindNoContentFound, "op", "m")), KindNoContentFound))
	assert.False(t, IsKind(errors.New("plain"), KindDecode))
	assert.False(t, IsKind(nil, KindDecode))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, KindIO, KindOf(New(KindIO, "op", "m")))
}
