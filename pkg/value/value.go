// Package value implements DynamicValue, a runtime-typed value carrying
// its own type tag and a JSON-compatible payload, plus the codec that
// turns a poll outcome into the wire shapes the HTTP façade returns.
//
// There is no prior art for this in the teacher library — pumped-go is an
// in-process dependency graph, it never serializes a value to JSON for a
// caller. The naming (tag + payload, constructors per primitive shape)
// follows the design notes in SPEC_FULL.md / spec.md §9.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/zflow-run/zflow/pkg/schema"
)

// DynamicValue is a tag plus a JSON-compatible payload, self-describing
// enough to round-trip through JSON without an external schema.
type DynamicValue struct {
	Tag     string          `json:"tag"`
	Payload json.RawMessage `json:"payload"`
}

// Int creates an Int-tagged dynamic value.
func Int(v int64) DynamicValue {
	raw, _ := json.Marshal(v)
	return DynamicValue{Tag: "Int", Payload: raw}
}

// Float creates a Float-tagged dynamic value.
func Float(v float64) DynamicValue {
	raw, _ := json.Marshal(v)
	return DynamicValue{Tag: "Float", Payload: raw}
}

// String creates a String-tagged dynamic value.
func String(v string) DynamicValue {
	raw, _ := json.Marshal(v)
	return DynamicValue{Tag: "String", Payload: raw}
}

// Bool creates a Bool-tagged dynamic value.
func Bool(v bool) DynamicValue {
	raw, _ := json.Marshal(v)
	return DynamicValue{Tag: "Bool", Payload: raw}
}

// Record creates a Record-tagged dynamic value from named fields.
func Record(fields map[string]DynamicValue) DynamicValue {
	encoded := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		encoded[k] = v.encodeTagged()
	}
	raw, _ := json.Marshal(encoded)
	return DynamicValue{Tag: "Record", Payload: raw}
}

// Decode parses raw JSON into a DynamicValue using the declared schema,
// which determines both the type tag and the validation applied to the
// payload.
func Decode(s schema.Schema, raw json.RawMessage) (DynamicValue, error) {
	decoded, err := s.Decode(raw)
	if err != nil {
		return DynamicValue{}, fmt.Errorf("decode dynamic value: %w", err)
	}
	payload, err := json.Marshal(decoded)
	if err != nil {
		return DynamicValue{}, fmt.Errorf("encode decoded value: %w", err)
	}
	return DynamicValue{Tag: s.TypeTag(), Payload: payload}, nil
}

// Equal reports whether two dynamic values are structurally equal: same
// tag, byte-equal canonical JSON payload.
func (v DynamicValue) Equal(other DynamicValue) bool {
	if v.Tag != other.Tag {
		return false
	}
	a, errA := canonicalize(v.Payload)
	b, errB := canonicalize(other.Payload)
	if errA != nil || errB != nil {
		return bytes.Equal(v.Payload, other.Payload)
	}
	return bytes.Equal(a, b)
}

func canonicalize(raw json.RawMessage) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// encodeTagged renders {"<Tag>": <payload>} — the wire shape used both
// inside records and at the top level of a poll outcome.
func (v DynamicValue) encodeTagged() json.RawMessage {
	obj := map[string]json.RawMessage{v.Tag: v.Payload}
	raw, _ := json.Marshal(obj)
	return raw
}

// MarshalJSON renders the {"<Tag>": payload} wire shape directly, so a
// DynamicValue embedded anywhere in a response encodes correctly without
// callers needing to know about encodeTagged.
func (v DynamicValue) MarshalJSON() ([]byte, error) {
	return v.encodeTagged(), nil
}

// UnmarshalJSON parses the {"<Tag>": payload} wire shape.
func (v *DynamicValue) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if len(obj) != 1 {
		return fmt.Errorf("dynamic value must have exactly one tag, got %d", len(obj))
	}
	for tag, payload := range obj {
		v.Tag = tag
		v.Payload = payload
	}
	return nil
}
