package encoding

import "encoding/json"

// PayloadCodec converts between a component's wire payload and its typed
// in-memory value.
type PayloadCodec interface {
	Encode(v any) ([]byte, error)
	Decode(raw []byte) (any, error)
}

// JSONCodec is a PayloadCodec for any JSON-marshalable type T.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec[T]) Decode(raw []byte) (any, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
