package envelope

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Envelope is the unit of persisted component data: an opaque payload tagged
// with the component type that wrote it and the schema version it was written
// at. The payload stays raw JSON so envelopes of unrecognized types survive a
// load/save cycle byte-for-byte.
type Envelope struct {
	TypeID  string          `json:"typeId"`
	Version int             `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

// New wraps a payload in an envelope. It is purely structural: the only
// requirement is a non-empty type id and a version of at least 1.
func New(typeID string, version int, payload []byte) (Envelope, error) {
	if typeID == "" {
		return Envelope{}, fmt.Errorf("%w: empty typeId", ErrMalformedEnvelope)
	}
	if version < 1 {
		return Envelope{}, fmt.Errorf("%w: version %d", ErrInvalidVersion, version)
	}
	return Envelope{
		TypeID:  typeID,
		Version: version,
		Payload: append(json.RawMessage(nil), payload...),
	}, nil
}

// rawEnvelope distinguishes absent keys from zero values during decode.
type rawEnvelope struct {
	TypeID  *string         `json:"typeId"`
	Version *int            `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses a serialized envelope, checking structure only: all three
// keys must be present and the version must be a positive integer. The
// registry is never consulted here.
func Decode(raw []byte) (Envelope, error) {
	var re rawEnvelope
	if err := json.Unmarshal(raw, &re); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	e := Envelope{Payload: re.Payload}
	if re.TypeID != nil {
		e.TypeID = *re.TypeID
	}
	if re.Version != nil {
		e.Version = *re.Version
	}
	if err := validate(re); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// Validate applies the same structural checks Decode performs to an envelope
// assembled in memory.
func (e Envelope) Validate() error {
	if e.TypeID == "" {
		return fmt.Errorf("%w: missing typeId", ErrMalformedEnvelope)
	}
	if e.Version < 1 {
		return fmt.Errorf("%w: typeId %q version %d", ErrInvalidVersion, e.TypeID, e.Version)
	}
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: typeId %q missing payload", ErrMalformedEnvelope, e.TypeID)
	}
	return nil
}

// Encode serializes the envelope back to its wire form.
func (e Envelope) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// Clone returns a copy whose payload shares no memory with the receiver.
func (e Envelope) Clone() Envelope {
	c := e
	c.Payload = append(json.RawMessage(nil), e.Payload...)
	return c
}

// PayloadDigest is a content hash of the raw payload bytes, used to assert
// that opaque payloads are carried through untouched.
func (e Envelope) PayloadDigest() uint64 {
	return xxhash.Sum64(e.Payload)
}

func validate(re rawEnvelope) error {
	if re.TypeID == nil {
		return fmt.Errorf("%w: missing typeId", ErrMalformedEnvelope)
	}
	if *re.TypeID == "" {
		return fmt.Errorf("%w: empty typeId", ErrMalformedEnvelope)
	}
	if re.Version == nil {
		return fmt.Errorf("%w: typeId %q missing version", ErrMalformedEnvelope, *re.TypeID)
	}
	if *re.Version < 1 {
		return fmt.Errorf("%w: typeId %q version %d", ErrInvalidVersion, *re.TypeID, *re.Version)
	}
	if len(re.Payload) == 0 {
		return fmt.Errorf("%w: typeId %q missing payload", ErrMalformedEnvelope, *re.TypeID)
	}
	return nil
}
