package models

import (
	"fmt"
	"strings"

	"github.com/mamadbah2/chapaquote/pkg/apperrors"
)

// Byte widths of the string fields in the on-disk layout.
const (
	ClientNameWidth = 50
	DateWidth       = 11
	ProductWidth    = 30
	MaterialWidth   = 20
)

// FixedString is a string known to fit a fixed-width field. The only way to
// build a non-empty one is NewFixedString, so encoding never has to truncate.
type FixedString struct {
	value string
}

// NewFixedString validates that value fits in width bytes and holds no NUL,
// which is the padding byte on disk.
func NewFixedString(value string, width int) (FixedString, error) {
	if len(value) > width {
		return FixedString{}, fmt.Errorf("%w: %q is %d bytes, limit %d", apperrors.ErrFieldTooLong, value, len(value), width)
	}
	if strings.IndexByte(value, 0) >= 0 {
		return FixedString{}, fmt.Errorf("%w: %q contains a NUL byte", apperrors.ErrValidation, value)
	}
	return FixedString{value: value}, nil
}

// MustFixedString is NewFixedString for constants; it panics on error.
func MustFixedString(value string, width int) FixedString {
	fs, err := NewFixedString(value, width)
	if err != nil {
		panic(err)
	}
	return fs
}

func (f FixedString) String() string { return f.value }

// Len is the encoded length in bytes.
func (f FixedString) Len() int { return len(f.value) }

// EqualFold reports whether the text matches s ignoring case.
func (f FixedString) EqualFold(s string) bool { return strings.EqualFold(f.value, s) }
