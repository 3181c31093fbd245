package codec

import (
	gojson "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

/*
JSONCodec is the default Codec, backed by goccy/go-json: an
encoding/json-API-compatible marshaler with a faster reflection-free
fast path. It is a drop-in replacement, not a different wire format, so
persisted state written by one vom process can always be read back by
another.
*/
type JSONCodec struct{}

// NewJSONCodec returns the default JSON-backed Codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

func (JSONCodec) Serialize(value interface{}) (string, error) {
	b, err := gojson.Marshal(value)
	if err != nil {
		return "", errors.Wrap(err, "codec: serialize")
	}
	return string(b), nil
}

func (JSONCodec) Unserialize(ground string, out interface{}) error {
	if err := gojson.Unmarshal([]byte(ground), out); err != nil {
		return errors.Wrap(err, "codec: unserialize")
	}
	return nil
}
