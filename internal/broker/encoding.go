package broker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/nerrad567/gray-logic-bus/encoding"
	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-bus/topic"
)

// ErrUnsupportedEncoding is returned for an encoding name RawEncoding does not know.
var ErrUnsupportedEncoding = errors.New("broker: unsupported encoding")

// RawEncoding returns a pass-through encoding for already-serialized
// payloads. The json, yaml and protobuf variants check that payloads are
// well formed in both directions without re-encoding them.
func RawEncoding(name string) (encoding.Encoding[[]byte], error) {
	switch name {
	case config.EncodingBytes:
		return encoding.Bytes{}, nil
	case config.EncodingJSON:
		return validated(name, func(data []byte) error {
			if !json.Valid(data) {
				return errors.New("invalid JSON document")
			}
			return nil
		}), nil
	case config.EncodingYAML:
		yamlDoc := encoding.YAML[any]{}
		return validated(name, func(data []byte) error {
			_, err := yamlDoc.Decode(nil, data)
			return err
		}), nil
	case config.EncodingProtobuf:
		// Empty keeps every field as unknown, so any well formed message
		// decodes and truncated or corrupt wire data does not.
		wire := encoding.NewProtobuf(func() *emptypb.Empty { return &emptypb.Empty{} })
		return validated(name, func(data []byte) error {
			_, err := wire.Decode(nil, data)
			return err
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, name)
	}
}

func validated(name string, check func([]byte) error) encoding.Funcs[[]byte] {
	return encoding.Funcs[[]byte]{
		EncodingName: name,
		EncodeFunc: func(msg []byte, w *bytes.Buffer) error {
			if err := check(msg); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			_, err := w.Write(msg)
			return err
		},
		DecodeFunc: func(_ topic.Topic, data []byte) ([]byte, error) {
			if err := check(data); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return bytes.Clone(data), nil
		},
	}
}
