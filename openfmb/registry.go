package openfmb

import (
	"bytes"
	"fmt"
	"sync"

	"google.golang.org/protobuf/proto"

	"github.com/nerrad567/gray-logic-bus/encoding"
	"github.com/nerrad567/gray-logic-bus/topic"
)

// Registry maps profiles to the protobuf message types that carry them.
//
// Generated OpenFMB bindings register one constructor per profile; the
// registry itself has no dependency on them.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Registry struct {
	mu    sync.RWMutex
	types map[Profile]func() proto.Message
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[Profile]func() proto.Message)}
}

// Register associates profile with a constructor returning an empty message.
// Registering a profile again replaces its constructor.
func (r *Registry) Register(profile Profile, newFn func() proto.Message) error {
	if !profile.Supported() {
		return fmt.Errorf("%w: %q", ErrUnsupportedProfile, profile)
	}
	if newFn == nil {
		return fmt.Errorf("openfmb: nil constructor for %s", profile)
	}

	r.mu.Lock()
	r.types[profile] = newFn
	r.mu.Unlock()
	return nil
}

// New allocates an empty message for profile.
func (r *Registry) New(profile Profile) (proto.Message, error) {
	r.mu.RLock()
	newFn, ok := r.types[profile]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no message type registered for %s", ErrUnsupportedProfile, profile)
	}
	return newFn(), nil
}

// ProfileEncoding is a protobuf encoding for buses carrying several
// OpenFMB profiles. Decode picks the message type from the profile level of
// the delivery topic.
type ProfileEncoding struct {
	Registry *Registry
}

var _ encoding.Encoding[proto.Message] = ProfileEncoding{}

// Name implements encoding.Encoding.
func (ProfileEncoding) Name() string { return "openfmb-protobuf" }

// Encode implements encoding.Encoding.
func (ProfileEncoding) Encode(msg proto.Message, w *bytes.Buffer) error {
	if msg == nil || !msg.ProtoReflect().IsValid() {
		return encoding.ErrNilMessage
	}
	data, err := encoding.MarshalProto(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Decode implements encoding.Encoding.
func (e ProfileEncoding) Decode(t topic.Topic, data []byte) (proto.Message, error) {
	pt, err := ParseTopic(t)
	if err != nil {
		return nil, err
	}
	msg, err := e.Registry.New(pt.Profile)
	if err != nil {
		return nil, err
	}
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("protobuf decode %s: %w", pt.Profile, err)
	}
	return msg, nil
}
