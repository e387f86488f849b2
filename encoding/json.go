package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-bus/topic"
)

// JSON encodes messages with encoding/json.
//
// Unknown fields are rejected on decode when Strict is set.
type JSON[M any] struct {
	Strict bool
}

// Name implements Encoding.
func (JSON[M]) Name() string { return "json" }

// Encode implements Encoding.
func (JSON[M]) Encode(msg M, w *bytes.Buffer) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// Decode implements Encoding.
func (j JSON[M]) Decode(_ topic.Topic, data []byte) (M, error) {
	var msg M
	dec := json.NewDecoder(bytes.NewReader(data))
	if j.Strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&msg); err != nil {
		var zero M
		return zero, fmt.Errorf("json decode: %w", err)
	}
	return msg, nil
}

// YAML encodes messages with gopkg.in/yaml.v3.
type YAML[M any] struct{}

// Name implements Encoding.
func (YAML[M]) Name() string { return "yaml" }

// Encode implements Encoding.
func (YAML[M]) Encode(msg M, w *bytes.Buffer) error {
	data, err := yaml.Marshal(msg)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// Decode implements Encoding.
func (YAML[M]) Decode(_ topic.Topic, data []byte) (M, error) {
	var msg M
	if err := yaml.Unmarshal(data, &msg); err != nil {
		var zero M
		return zero, fmt.Errorf("yaml decode: %w", err)
	}
	return msg, nil
}
