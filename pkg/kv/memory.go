package kv

import (
	"context"
	"iter"
	"sort"
	"sync"
)

// versionEntry is one timestamped version of a key.
type versionEntry struct {
	ts    uint64
	value []byte
}

// keyVersions holds every surviving version of one key, sorted ascending
// by timestamp.
type keyVersions struct {
	key     []byte
	entries []versionEntry
}

// MemoryStore is the in-process reference implementation of Store (spec
// §4.6 / C6): an ordered map-of-maps behind a single RWMutex, the same
// concurrency shape as the teacher's TypeSafeCache (cache.go) and the
// in-process storage.MemoryStorage pattern from examples/http-api.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]*keyVersions // namespace -> string(key) -> versions
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]*keyVersions)}
}

func (s *MemoryStore) Put(ctx context.Context, ns string, key []byte, value []byte, ts uint64) error {
	if err := ctx.Err(); err != nil {
		return wrapIOError("put", ns, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys, ok := s.data[ns]
	if !ok {
		keys = make(map[string]*keyVersions)
		s.data[ns] = keys
	}

	kv, ok := keys[string(key)]
	if !ok {
		kv = &keyVersions{key: append([]byte(nil), key...)}
		keys[string(key)] = kv
	}

	valCopy := append([]byte(nil), value...)
	idx := sort.Search(len(kv.entries), func(i int) bool { return kv.entries[i].ts >= ts })
	if idx < len(kv.entries) && kv.entries[idx].ts == ts {
		kv.entries[idx].value = valCopy
		return nil
	}

	kv.entries = append(kv.entries, versionEntry{})
	copy(kv.entries[idx+1:], kv.entries[idx:])
	kv.entries[idx] = versionEntry{ts: ts, value: valCopy}
	return nil
}

func (s *MemoryStore) GetLatest(ctx context.Context, ns string, key []byte, before *uint64) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, wrapIOError("getLatest", ns, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.entriesLocked(ns, key)
	if len(entries) == 0 {
		return nil, false, nil
	}

	if before == nil {
		last := entries[len(entries)-1]
		return append([]byte(nil), last.value...), true, nil
	}

	idx := sort.Search(len(entries), func(i int) bool { return entries[i].ts > *before }) - 1
	if idx < 0 {
		return nil, false, nil
	}
	return append([]byte(nil), entries[idx].value...), true, nil
}

func (s *MemoryStore) GetLatestTimestamp(ctx context.Context, ns string, key []byte) (uint64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, wrapIOError("getLatestTimestamp", ns, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.entriesLocked(ns, key)
	if len(entries) == 0 {
		return 0, false, nil
	}
	return entries[len(entries)-1].ts, true, nil
}

func (s *MemoryStore) GetAllTimestamps(ctx context.Context, ns string, key []byte) (iter.Seq[uint64], error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapIOError("getAllTimestamps", ns, err)
	}

	s.mu.RLock()
	entries := s.entriesLocked(ns, key)
	snapshot := make([]uint64, len(entries))
	for i, e := range entries {
		snapshot[i] = e.ts
	}
	s.mu.RUnlock()

	return func(yield func(uint64) bool) {
		// descending, per spec §9 open question #2
		for i := len(snapshot) - 1; i >= 0; i-- {
			if !yield(snapshot[i]) {
				return
			}
		}
	}, nil
}

func (s *MemoryStore) ScanAll(ctx context.Context, ns string) (iter.Seq2[[]byte, []byte], error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapIOError("scanAll", ns, err)
	}

	s.mu.RLock()
	keys := s.sortedKeysLocked(ns)
	s.mu.RUnlock()

	return func(yield func([]byte, []byte) bool) {
		for _, key := range keys {
			value, ok, err := s.GetLatest(ctx, ns, key, nil)
			if err != nil || !ok {
				continue
			}
			if !yield(key, value) {
				return
			}
		}
	}, nil
}

func (s *MemoryStore) ScanAllKeys(ctx context.Context, ns string) (iter.Seq[[]byte], error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapIOError("scanAllKeys", ns, err)
	}

	s.mu.RLock()
	keys := s.sortedKeysLocked(ns)
	s.mu.RUnlock()

	return func(yield func([]byte) bool) {
		for _, key := range keys {
			if !yield(key) {
				return
			}
		}
	}, nil
}

func (s *MemoryStore) Delete(ctx context.Context, ns string, key []byte, marker *uint64) error {
	if err := ctx.Err(); err != nil {
		return wrapIOError("delete", ns, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys, ok := s.data[ns]
	if !ok {
		return nil
	}
	kv, ok := keys[string(key)]
	if !ok {
		return nil
	}

	if marker == nil {
		delete(keys, string(key))
		return nil
	}

	// Collect indices with ts <= marker, drop the last (retained), remove
	// the rest in one pass. Per spec §4.1's delete algorithm.
	cut := sort.Search(len(kv.entries), func(i int) bool { return kv.entries[i].ts > *marker })
	if cut <= 1 {
		// zero or one version <= marker: nothing to truncate, the single
		// version (if any) is the retained snapshot.
		return nil
	}

	retained := kv.entries[cut-1]
	rest := append([]versionEntry(nil), kv.entries[cut:]...)
	kv.entries = append([]versionEntry{retained}, rest...)
	return nil
}

func (s *MemoryStore) entriesLocked(ns string, key []byte) []versionEntry {
	keys, ok := s.data[ns]
	if !ok {
		return nil
	}
	kv, ok := keys[string(key)]
	if !ok {
		return nil
	}
	return kv.entries
}

func (s *MemoryStore) sortedKeysLocked(ns string) [][]byte {
	keys, ok := s.data[ns]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	result := make([][]byte, 0, len(names))
	for _, name := range names {
		result = append(result, append([]byte(nil), keys[name].key...))
	}
	return result
}
