package envelope

import "errors"

// Envelope-specific errors
var (
	ErrMalformedEnvelope = errors.New("malformed component envelope")
	ErrInvalidVersion    = errors.New("envelope version must be a positive integer")
)
