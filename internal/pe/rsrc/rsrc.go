// Package rsrc decodes the payloads stored at resource tree leaves.
package rsrc

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/ZacharyZcR/pecoff/internal/binio"
	"github.com/ZacharyZcR/pecoff/internal/pe"
)

// wrap maps cursor failures onto the pe error taxonomy.
func wrap(err error, format string, args ...interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, binio.ErrUnexpectedEOF):
		return errors.Wrapf(pe.ErrTruncatedInput, "%s: %v", fmt.Sprintf(format, args...), err)
	case errors.Is(err, binio.ErrSeekOutOfRange):
		return errors.Wrapf(pe.ErrOutOfBoundsOffset, "%s: %v", fmt.Sprintf(format, args...), err)
	default:
		return errors.Wrapf(err, format, args...)
	}
}

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(pe.ErrMalformedStructure, format, args...)
}
