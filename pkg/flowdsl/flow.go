// Package flowdsl represents flow values: opaque, serializable trees of
// operations that the executor runs and the core otherwise never
// interprets (spec.md §1 names the real flow expression language and its
// interpreter as an external collaborator). This package supplies the
// minimal node set the spec's own testable examples exercise — Succeed,
// Fail, Input, Provide, Map — as a JSON-serializable value with
// structural equality, plus (in eval.go) the small reference evaluator
// the reference executor uses to make the lifecycle contract observable.
//
// The teacher library's Flow[R] (flow.go) is the opposite shape: a live
// Go closure with injected dependencies, executed in-process. That is a
// different concept from a serializable program a durable executor
// schedules and may resume after a restart, so this package is new code;
// what it keeps from the teacher is the vocabulary (Flow, tags) and the
// emphasis on explicit, typed parameter binding.
package flowdsl

import (
	"encoding/json"
	"fmt"

	"github.com/zflow-run/zflow/pkg/schema"
	"github.com/zflow-run/zflow/pkg/value"
)

// Kind tags the shape of a flow node.
type Kind string

const (
	KindSucceed Kind = "Succeed"
	KindFail    Kind = "Fail"
	KindInput   Kind = "Input"
	KindProvide Kind = "Provide"
	KindMap     Kind = "Map"
)

// Flow is an opaque, serializable node in a flow's operation tree.
type Flow struct {
	Kind Kind

	// Succeed / Fail
	Value value.DynamicValue

	// Input
	InputSchema schema.Schema

	// Provide
	Base  *Flow
	Param value.DynamicValue

	// Map
	FuncTag string

	// Tags holds debug metadata only (node names surfaced by
	// pkg/httpapi's tree-debug endpoint). Tags are serialized with the
	// flow, so Equal, which compares serialized forms, reports flows
	// whose tags differ as unequal.
	Tags map[string]string
}

// Succeed builds a flow that always completes with v.
func Succeed(v value.DynamicValue) *Flow {
	return &Flow{Kind: KindSucceed, Value: v}
}

// Fail builds a flow that always fails with v.
func Fail(v value.DynamicValue) *Flow {
	return &Flow{Kind: KindFail, Value: v}
}

// Input builds a flow that evaluates to whatever value is bound via
// Provide. s is kept as the node's declared input schema; Eval does not
// check the bound value against it.
func Input(s schema.Schema) *Flow {
	return &Flow{Kind: KindInput, InputSchema: s}
}

// Provide returns a new flow equal to base with param bound as its input.
// This is the flow.provide(input) operation named in spec §4.3/§9: the
// HTTP façade calls it before handing a flow to the executor, and the
// bound flow — not the raw one — is what gets persisted and compared for
// equality.
func (f *Flow) Provide(param value.DynamicValue) *Flow {
	return &Flow{Kind: KindProvide, Base: f, Param: param}
}

// Map wraps base with a named transform. funcTag identifies a transform
// known to the reference evaluator (see eval.go); this package does not
// interpret funcTag itself, matching the "interpreter is out of scope"
// boundary — only the minimal reference evaluator gives it meaning.
func (f *Flow) Map(funcTag string) *Flow {
	return &Flow{Kind: KindMap, Base: f, FuncTag: funcTag}
}

// WithTag attaches a debug tag to a flow node and returns it, the way the
// teacher names its executors.
func (f *Flow) WithTag(key, val string) *Flow {
	if f.Tags == nil {
		f.Tags = make(map[string]string)
	}
	f.Tags[key] = val
	return f
}

// Tag reads back a tag set via WithTag.
func (f *Flow) Tag(key string) (string, bool) {
	v, ok := f.Tags[key]
	return v, ok
}

// Equal reports whether two flows are structurally equal on their
// serialized form, per spec §9.
func (f *Flow) Equal(other *Flow) bool {
	if f == nil || other == nil {
		return f == other
	}
	a, errA := json.Marshal(f)
	b, errB := json.Marshal(other)
	if errA != nil || errB != nil {
		return false
	}
	return jsonEqual(a, b)
}

func jsonEqual(a, b []byte) bool {
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return string(a) == string(b)
	}
	ca, _ := json.Marshal(va)
	cb, _ := json.Marshal(vb)
	return string(ca) == string(cb)
}

// wireFlow is Flow's JSON-serializable shadow.
type wireFlow struct {
	Kind        Kind                `json:"kind"`
	Value       *value.DynamicValue `json:"value,omitempty"`
	InputSchema json.RawMessage     `json:"inputSchema,omitempty"`
	Base        *Flow               `json:"base,omitempty"`
	Param       *value.DynamicValue `json:"param,omitempty"`
	FuncTag     string              `json:"func,omitempty"`
	Tags        map[string]string   `json:"tags,omitempty"`
}

// MarshalJSON renders the flow's self-describing wire form.
func (f *Flow) MarshalJSON() ([]byte, error) {
	w := wireFlow{Kind: f.Kind, Base: f.Base, FuncTag: f.FuncTag, Tags: f.Tags}

	switch f.Kind {
	case KindSucceed, KindFail:
		v := f.Value
		w.Value = &v
	case KindInput:
		if f.InputSchema != nil {
			encoded, err := schema.Encode(f.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("marshal flow: %w", err)
			}
			w.InputSchema = encoded
		}
	case KindProvide:
		p := f.Param
		w.Param = &p
	}

	return json.Marshal(w)
}

// UnmarshalJSON parses the flow's self-describing wire form.
func (f *Flow) UnmarshalJSON(data []byte) error {
	var w wireFlow
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("unmarshal flow: %w", err)
	}

	f.Kind = w.Kind
	f.Base = w.Base
	f.FuncTag = w.FuncTag
	f.Tags = w.Tags

	switch w.Kind {
	case KindSucceed, KindFail:
		if w.Value == nil {
			return fmt.Errorf("unmarshal flow: %s node missing value", w.Kind)
		}
		f.Value = *w.Value
	case KindInput:
		if len(w.InputSchema) > 0 {
			s, err := schema.Decode(w.InputSchema)
			if err != nil {
				return fmt.Errorf("unmarshal flow: %w", err)
			}
			f.InputSchema = s
		}
	case KindProvide:
		if w.Param == nil {
			return fmt.Errorf("unmarshal flow: Provide node missing param")
		}
		f.Param = *w.Param
	}

	return nil
}
