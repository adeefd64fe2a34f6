package wiring

import (
	"context"
	"fmt"
	"sync"
)

// ResolveError wraps a component factory's failure with the component
// name, mirroring the teacher's ResolveError (errors.go).
type ResolveError struct {
	Component string
	Cause     error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("wiring: resolve %q: %v", e.Component, e.Cause)
}

func (e *ResolveError) Unwrap() error { return e.Cause }

// Component is a lazily-resolved, memoized value, the trimmed-down
// analogue of the teacher's AnyExecutor/Executor[T] pair (scope.go):
// a named factory plus the cached result of running it once.
type Component[T any] struct {
	name    string
	factory func(*Scope) (T, error)
	once    sync.Once
	value   T
	err     error
}

// Provide declares a component: a named factory function resolved at
// most once, matching the teacher's Provide/pumped.Provide vocabulary.
// The result is cached on the Component itself, so resolving it again
// through a different Scope returns the first result.
func Provide[T any](name string, factory func(*Scope) (T, error)) *Component[T] {
	return &Component[T]{name: name, factory: factory}
}

// Resolve runs c's factory (if not already run) through every extension
// registered on s, caching the result.
func Resolve[T any](s *Scope, c *Component[T]) (T, error) {
	c.once.Do(func() {
		op := &Operation{Component: c.name}
		result, err := s.runWithExtensions(op, func() (any, error) {
			return c.factory(s)
		})
		if err != nil {
			c.err = &ResolveError{Component: c.name, Cause: err}
			for _, ext := range s.extensions {
				ext.OnError(c.err, op)
			}
			return
		}
		c.value = result.(T)
	})
	return c.value, c.err
}

// Scope holds the extensions active for one wiring pass and the
// cleanup functions components register via OnClose.
type Scope struct {
	extensions []Extension
	mu         sync.Mutex
	closers    []func() error
}

// NewScope creates a Scope with the given extensions, applied in
// registration order — same convention as the teacher's NewScope(opts...).
func NewScope(extensions ...Extension) *Scope {
	return &Scope{extensions: extensions}
}

func (s *Scope) runWithExtensions(op *Operation, next func() (any, error)) (any, error) {
	wrapped := next
	for i := len(s.extensions) - 1; i >= 0; i-- {
		ext := s.extensions[i]
		prev := wrapped
		wrapped = func() (any, error) { return ext.Wrap(context.Background(), prev, op) }
	}
	return wrapped()
}

// OnClose registers a cleanup function run in reverse order by Dispose,
// the way the teacher's Scope tracks disposable executors.
func (s *Scope) OnClose(closer func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, closer)
}

// Dispose runs every registered closer in reverse registration order,
// without short-circuiting on errors, and returns the first error seen.
func (s *Scope) Dispose() error {
	s.mu.Lock()
	closers := append([]func() error(nil), s.closers...)
	s.mu.Unlock()

	var firstErr error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
