// Package kv implements the versioned key-value store described in
// spec.md §4.1: a durable mapping from (namespace, key) to an ordered
// sequence of (timestamp, value) entries, with range scans and
// marker-based truncation. It is the hardest piece of this core and
// everything else (the template registry, the executor's durable
// promises) is built on top of the Store interface here.
package kv

import (
	"context"
	"fmt"
	"iter"
)

// Entry is one timestamped version of a key, per spec §3: the primary key
// is (namespace, key, timestamp).
type Entry struct {
	Namespace string
	Key       []byte
	Timestamp uint64
	Value     []byte
}

// IOError wraps a storage failure with the operation and namespace it
// happened in, per spec §7 ("carry a wrapped cause and a contextual
// message naming operation and namespace"). Grounded on the teacher's
// ResolveError (errors.go).
type IOError struct {
	Op        string
	Namespace string
	Cause     error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("kv %s on namespace %q: %v", e.Op, e.Namespace, e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }

func wrapIOError(op, ns string, cause error) error {
	if cause == nil {
		return nil
	}
	return &IOError{Op: op, Namespace: ns, Cause: cause}
}

// Store is the versioned KV contract every backend (memory, sqlite,
// cassandra) implements identically. Every operation may suspend on I/O;
// getLatest/scans never fail for "not found" — they return ok=false or an
// empty sequence.
type Store interface {
	// Put inserts the version (ns, key, ts, value), overwriting any prior
	// write at the same (ns, key, ts).
	Put(ctx context.Context, ns string, key []byte, value []byte, ts uint64) error

	// GetLatest returns the value of the largest-timestamp version with
	// ts <= before, or ok=false if no such version exists. before=nil
	// means "no bound" (return the largest version overall).
	GetLatest(ctx context.Context, ns string, key []byte, before *uint64) (value []byte, ok bool, err error)

	// GetLatestTimestamp is GetLatest but returns only the timestamp.
	GetLatestTimestamp(ctx context.Context, ns string, key []byte) (ts uint64, ok bool, err error)

	// GetAllTimestamps returns every timestamp for (ns, key), descending.
	GetAllTimestamps(ctx context.Context, ns string, key []byte) (iter.Seq[uint64], error)

	// ScanAll streams one (key, value) pair per key in ns — the newest
	// surviving version — without buffering the whole namespace.
	ScanAll(ctx context.Context, ns string) (iter.Seq2[[]byte, []byte], error)

	// ScanAllKeys is ScanAll with values omitted.
	ScanAllKeys(ctx context.Context, ns string) (iter.Seq[[]byte], error)

	// Delete truncates history for (ns, key). With marker != nil: removes
	// every version with ts <= *marker except the most recent such
	// version (the retained snapshot). With marker == nil: removes every
	// version.
	Delete(ctx context.Context, ns string, key []byte, marker *uint64) error
}
