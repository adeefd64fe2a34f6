// Package wiring is the composition root: it builds the KV backend,
// template registry, executor and HTTP server and wires them together at
// process start. It is a deliberately small rewrite of the teacher's root
// dependency-graph engine (Scope/Provide/Extension in scope.go,
// extension.go, errors.go) — kept because the teacher's "declare a
// component, resolve it lazily, let extensions observe resolution" shape
// is exactly what a composition root needs, trimmed of the parts this
// service has no use for (reactive recomputation, derived executors,
// flow execution lifecycle hooks — those belonged to the teacher's
// in-process computation graph, not a one-shot startup wiring step).
package wiring

import "context"

// Extension observes component resolution during wiring, mirroring the
// teacher's Extension interface (extension.go) narrowed to the hooks a
// composition root actually fires: Wrap around each Resolve call and
// OnError when one fails.
type Extension interface {
	Name() string
	Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error)
	OnError(err error, op *Operation)
}

// BaseExtension gives Extension implementations no-op defaults, as the
// teacher's BaseExtension does.
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a base extension with a name.
func NewBaseExtension(name string) BaseExtension { return BaseExtension{name: name} }

func (e BaseExtension) Name() string { return e.name }

func (e BaseExtension) Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error) {
	return next()
}

func (e BaseExtension) OnError(err error, op *Operation) {}

// Operation describes the component currently being resolved.
type Operation struct {
	Component string
}
