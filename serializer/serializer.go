// Package serializer implements the value transforms applied by the forage
// driver at the storage boundary.
//
// A Serializer is one of Passthrough, SyncPair or CallbackPair. It's
// validated once by NewCodec, and the resulting Codec is what the driver
// calls on every write (Encode) and read (Decode).
package serializer

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInvalidSerializer is returned by NewCodec for a nil serializer, or a
	// pair with a missing function.
	ErrInvalidSerializer = errors.New("invalid serializer")
	// ErrUnsupportedValue is returned by the passthrough codec for values
	// that can't be stored as-is.
	ErrUnsupportedValue = errors.New("unsupported value type")
	// ErrSerialize wraps errors returned by a serialize function.
	ErrSerialize = errors.New("failed serializing value")
	// ErrDeserialize wraps errors returned by a deserialize function.
	ErrDeserialize = errors.New("failed deserializing value")
)

// Serializer selects how values are encoded before they're written to the
// backing store, and decoded after they're read back.
type Serializer interface {
	isSerializer()
}

// Passthrough hands values to the backing store unmodified. Since stores
// hold bytes, only string, []byte and encoding.TextMarshaler values are
// accepted. Values are read back as strings.
type Passthrough struct{}

// SyncPair is a pair of synchronous serialize and deserialize functions.
type SyncPair struct {
	Serialize   func(value any) ([]byte, error)
	Deserialize func(data []byte) (any, error)
}

// CallbackPair is a pair of asynchronous serialize and deserialize functions.
// Each function must eventually call done exactly once, possibly from another
// goroutine. Subsequent calls are ignored.
type CallbackPair struct {
	Serialize   func(value any, done func(data []byte, err error))
	Deserialize func(data []byte, done func(value any, err error))
}

func (Passthrough) isSerializer()  {}
func (SyncPair) isSerializer()     {}
func (CallbackPair) isSerializer() {}

// JSON returns a SyncPair that encodes values as JSON, and decodes them into
// a value of type T.
func JSON[T any]() SyncPair {
	return SyncPair{
		Serialize: func(value any) ([]byte, error) {
			return json.Marshal(value)
		},
		Deserialize: func(data []byte) (any, error) {
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// Default returns the default serializer, which encodes values as JSON and
// decodes them into generic Go values (map[string]any, []any, string,
// float64, bool or nil).
func Default() SyncPair {
	return JSON[any]()
}

func passthroughEncode(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case encoding.TextMarshaler:
		return v.MarshalText()
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
}
