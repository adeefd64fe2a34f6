package flowdsl

import (
	"encoding/json"
	"fmt"

	"github.com/zflow-run/zflow/pkg/schema"
)

// Template is a named, persisted flow, optionally parameterized by a
// typed input schema (spec §3).
type Template struct {
	Flow        *Flow
	InputSchema schema.Schema // nil if the template takes no parameter
}

type wireTemplate struct {
	Flow        *Flow           `json:"flow"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// MarshalJSON renders the template's self-describing wire form, used by
// the registry to persist templates through the KV store.
func (t Template) MarshalJSON() ([]byte, error) {
	w := wireTemplate{Flow: t.Flow}
	if t.InputSchema != nil {
		encoded, err := schema.Encode(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("marshal template: %w", err)
		}
		w.InputSchema = encoded
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses a template's wire form.
func (t *Template) UnmarshalJSON(data []byte) error {
	var w wireTemplate
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("unmarshal template: %w", err)
	}
	t.Flow = w.Flow
	if len(w.InputSchema) > 0 {
		s, err := schema.Decode(w.InputSchema)
		if err != nil {
			return fmt.Errorf("unmarshal template: %w", err)
		}
		t.InputSchema = s
	} else {
		t.InputSchema = nil
	}
	return nil
}
