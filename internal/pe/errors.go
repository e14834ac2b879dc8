package pe

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/ZacharyZcR/pecoff/internal/binio"
)

// Error taxonomy. Every decode failure wraps exactly one of these, so callers
// can branch with errors.Is.
var (
	// ErrTruncatedInput means the buffer ended before a fixed-width field.
	ErrTruncatedInput = errors.New("truncated input")
	// ErrOutOfBoundsOffset means a computed seek target lies outside the buffer.
	ErrOutOfBoundsOffset = errors.New("offset out of bounds")
	// ErrMalformedStructure means a decoded invariant does not hold.
	ErrMalformedStructure = errors.New("malformed structure")
)

// classify maps cursor failures onto the taxonomy and adds context.
func classify(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, ErrTruncatedInput), errors.Is(err, ErrOutOfBoundsOffset), errors.Is(err, ErrMalformedStructure):
		return errors.Wrap(err, msg)
	case errors.Is(err, binio.ErrUnexpectedEOF):
		return errors.Wrapf(ErrTruncatedInput, "%s: %v", msg, err)
	case errors.Is(err, binio.ErrSeekOutOfRange):
		return errors.Wrapf(ErrOutOfBoundsOffset, "%s: %v", msg, err)
	default:
		return errors.Wrap(err, msg)
	}
}

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformedStructure, format, args...)
}

func outOfBounds(format string, args ...interface{}) error {
	return errors.Wrapf(ErrOutOfBoundsOffset, format, args...)
}
