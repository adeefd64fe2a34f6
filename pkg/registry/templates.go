// Package registry implements the template registry (spec §4.2): named
// flow templates persisted through a kv.Store under a fixed
// namespace, at a fixed timestamp — templates don't carry their own
// history, only their current definition.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/zflow-run/zflow/pkg/flowdsl"
	"github.com/zflow-run/zflow/pkg/kv"
)

// namespace is the fixed kv.Store namespace templates live in.
const namespace = "_zflow_workflow_templates"

// timestamp is the fixed version every template is written at; templates
// are not versioned history, only current definitions.
const timestamp uint64 = 0

// NotFoundError reports that a template id has no registered definition.
type NotFoundError struct {
	TemplateID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("registry: template %q not found", e.TemplateID)
}

// Registry is the template store built on top of kv.Store.
type Registry struct {
	store kv.Store
}

// New wraps a kv.Store as a template registry.
func New(store kv.Store) *Registry {
	return &Registry{store: store}
}

// Put registers (or replaces) the template definition for templateID.
func (r *Registry) Put(ctx context.Context, templateID string, tmpl flowdsl.Template) error {
	raw, err := json.Marshal(tmpl)
	if err != nil {
		return fmt.Errorf("registry: encode template %q: %w", templateID, err)
	}
	return r.store.Put(ctx, namespace, []byte(templateID), raw, timestamp)
}

// Get returns the current definition for templateID, or NotFoundError if
// none is registered.
func (r *Registry) Get(ctx context.Context, templateID string) (flowdsl.Template, error) {
	raw, ok, err := r.store.GetLatest(ctx, namespace, []byte(templateID), nil)
	if err != nil {
		return flowdsl.Template{}, fmt.Errorf("registry: get template %q: %w", templateID, err)
	}
	if !ok {
		return flowdsl.Template{}, &NotFoundError{TemplateID: templateID}
	}

	var tmpl flowdsl.Template
	if err := json.Unmarshal(raw, &tmpl); err != nil {
		return flowdsl.Template{}, fmt.Errorf("registry: decode template %q: %w", templateID, err)
	}
	return tmpl, nil
}

// All streams every registered (id, template) pair, per spec §4.2's
// all() → lazy sequence<(id, template)>. Decoding happens inside the
// yield loop, one definition at a time, so a caller that stops early
// (e.g. break) never pays for templates it didn't ask for — the same
// laziness kv.Store's own ScanAll guarantees.
func (r *Registry) All(ctx context.Context) (iter.Seq2[string, *flowdsl.Template], error) {
	seq, err := r.store.ScanAll(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("registry: list templates: %w", err)
	}

	return func(yield func(string, *flowdsl.Template) bool) {
		for key, raw := range seq {
			var tmpl flowdsl.Template
			if err := json.Unmarshal(raw, &tmpl); err != nil {
				continue
			}
			if !yield(string(key), &tmpl) {
				return
			}
		}
	}, nil
}

// Delete removes a template's definition. Deleting an unknown id is a
// no-op, matching kv.Store's delete-is-idempotent contract.
func (r *Registry) Delete(ctx context.Context, templateID string) error {
	if err := r.store.Delete(ctx, namespace, []byte(templateID), nil); err != nil {
		return fmt.Errorf("registry: delete template %q: %w", templateID, err)
	}
	return nil
}
