package document

import (
	"errors"
	"fmt"
)

// Document-level errors. Structural failures abort the whole load; nothing is
// partially applied.
var (
	ErrUnsupportedFormat = errors.New("unsupported scene document format version")
	ErrMalformedDocument = errors.New("malformed scene document")
)

// UnsupportedFormatError reports a document whose shape version is newer than
// this process supports. Document-shape upgrades are a code deployment
// decision, never guessed at load time.
type UnsupportedFormatError struct {
	Version   int
	Supported int
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("scene document format version %d is newer than supported version %d",
		e.Version, e.Supported)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }
