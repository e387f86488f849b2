// Package encoding defines how message payloads are written to and read from
// the bus.
//
// An Encoding is chosen once, when a bus is constructed, and applied to every
// publish and subscribe made through it. Decode receives the topic the
// payload arrived on so that an encoding can pick a variant by topic.
//
// Encodings must be pure: Encode only appends to the supplied buffer and
// Decode only reads its input. The bus always encodes into a fresh buffer and
// discards it on error, so a failed Encode never leaks a partial payload.
package encoding

import (
	"bytes"
	"errors"

	"github.com/nerrad567/gray-logic-bus/topic"
)

// Encoding serializes messages of type M.
type Encoding[M any] interface {
	// Name identifies the encoding in logs and metrics (e.g. "json").
	Name() string

	// Encode appends the serialized form of msg to w.
	Encode(msg M, w *bytes.Buffer) error

	// Decode parses data delivered on t.
	Decode(t topic.Topic, data []byte) (M, error)
}

// ErrNilMessage is returned when encoding a nil pointer message.
var ErrNilMessage = errors.New("encoding: nil message")

// Funcs adapts a pair of functions to the Encoding interface.
type Funcs[M any] struct {
	EncodingName string
	EncodeFunc   func(msg M, w *bytes.Buffer) error
	DecodeFunc   func(t topic.Topic, data []byte) (M, error)
}

// Name implements Encoding.
func (f Funcs[M]) Name() string { return f.EncodingName }

// Encode implements Encoding.
func (f Funcs[M]) Encode(msg M, w *bytes.Buffer) error { return f.EncodeFunc(msg, w) }

// Decode implements Encoding.
func (f Funcs[M]) Decode(t topic.Topic, data []byte) (M, error) { return f.DecodeFunc(t, data) }

// Bytes passes payloads through unchanged.
type Bytes struct{}

// Name implements Encoding.
func (Bytes) Name() string { return "bytes" }

// Encode implements Encoding.
func (Bytes) Encode(msg []byte, w *bytes.Buffer) error {
	_, err := w.Write(msg)
	return err
}

// Decode implements Encoding. The returned slice is a copy of data.
func (Bytes) Decode(_ topic.Topic, data []byte) ([]byte, error) {
	return bytes.Clone(data), nil
}
