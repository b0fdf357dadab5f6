package serializer

import (
	"context"
	"fmt"
	"sync"
)

// Codec applies a validated Serializer to values.
type Codec struct {
	encode func(ctx context.Context, value any) ([]byte, error)
	decode func(ctx context.Context, data []byte) (any, error)
}

// NewCodec validates s and returns a Codec that uses it.
func NewCodec(s Serializer) (*Codec, error) {
	switch s := s.(type) {
	case Passthrough:
		return &Codec{
			encode: func(_ context.Context, value any) ([]byte, error) {
				return passthroughEncode(value)
			},
			decode: func(_ context.Context, data []byte) (any, error) {
				return string(data), nil
			},
		}, nil
	case SyncPair:
		if s.Serialize == nil || s.Deserialize == nil {
			return nil, fmt.Errorf("%w: missing serialize or deserialize function", ErrInvalidSerializer)
		}
		return &Codec{
			encode: func(_ context.Context, value any) ([]byte, error) {
				return s.Serialize(value)
			},
			decode: func(_ context.Context, data []byte) (any, error) {
				return s.Deserialize(data)
			},
		}, nil
	case CallbackPair:
		if s.Serialize == nil || s.Deserialize == nil {
			return nil, fmt.Errorf("%w: missing serialize or deserialize function", ErrInvalidSerializer)
		}
		return &Codec{
			encode: func(ctx context.Context, value any) ([]byte, error) {
				return await(ctx, func(done func([]byte, error)) {
					s.Serialize(value, done)
				})
			},
			decode: func(ctx context.Context, data []byte) (any, error) {
				return await(ctx, func(done func(any, error)) {
					s.Deserialize(data, done)
				})
			},
		}, nil
	case nil:
		return nil, fmt.Errorf("%w: nil serializer", ErrInvalidSerializer)
	default:
		return nil, fmt.Errorf("%w: unknown serializer type %T", ErrInvalidSerializer, s)
	}
}

// Encode serializes value.
func (c *Codec) Encode(ctx context.Context, value any) ([]byte, error) {
	data, err := c.encode(ctx, value)
	if err != nil {
		if ctx.Err() != nil && err == ctx.Err() {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrSerialize, err)
	}

	return data, nil
}

// Decode deserializes data.
func (c *Codec) Decode(ctx context.Context, data []byte) (any, error) {
	value, err := c.decode(ctx, data)
	if err != nil {
		if ctx.Err() != nil && err == ctx.Err() {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDeserialize, err)
	}

	return value, nil
}

// await starts an asynchronous operation and waits for its first completion,
// or for ctx to be done.
func await[T any](ctx context.Context, start func(done func(T, error))) (T, error) {
	type result struct {
		val T
		err error
	}

	ch := make(chan result, 1)
	var once sync.Once
	start(func(val T, err error) {
		once.Do(func() { ch <- result{val: val, err: err} })
	})

	// Prefer a result that's already available.
	select {
	case r := <-ch:
		return r.val, r.err
	default:
	}

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
