package encoding

import (
	"bytes"
	"fmt"

	"google.golang.org/protobuf/proto"

	"github.com/nerrad567/gray-logic-bus/topic"
)

// Protobuf encodes protobuf messages in the binary wire format.
//
// New must return an empty message to decode into. Marshalling is
// deterministic so that equal messages always produce equal payloads.
type Protobuf[M proto.Message] struct {
	New func() M
}

// NewProtobuf returns a Protobuf encoding using newFn to allocate messages.
func NewProtobuf[M proto.Message](newFn func() M) Protobuf[M] {
	return Protobuf[M]{New: newFn}
}

// Name implements Encoding.
func (Protobuf[M]) Name() string { return "protobuf" }

// Encode implements Encoding.
func (Protobuf[M]) Encode(msg M, w *bytes.Buffer) error {
	if !msg.ProtoReflect().IsValid() {
		return ErrNilMessage
	}
	data, err := MarshalProto(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Decode implements Encoding.
func (p Protobuf[M]) Decode(_ topic.Topic, data []byte) (M, error) {
	msg := p.New()
	if err := proto.Unmarshal(data, msg); err != nil {
		var zero M
		return zero, fmt.Errorf("protobuf decode: %w", err)
	}
	return msg, nil
}

// MarshalProto serializes msg deterministically.
func MarshalProto(msg proto.Message) ([]byte, error) {
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protobuf encode: %w", err)
	}
	return data, nil
}
