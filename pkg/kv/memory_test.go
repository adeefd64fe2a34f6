package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGetLatestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "ns", []byte("k"), []byte("v1"), 10))
	require.NoError(t, s.Put(ctx, "ns", []byte("k"), []byte("v2"), 20))

	value, ok, err := s.GetLatest(ctx, "ns", []byte("k"), nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), value)

	before := uint64(15)
	value, ok, err = s.GetLatest(ctx, "ns", []byte("k"), &before)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), value)

	tooEarly := uint64(5)
	_, ok, err = s.GetLatest(ctx, "ns", []byte("k"), &tooEarly)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreGetLatestMissingKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok, err := s.GetLatest(ctx, "ns", []byte("missing"), nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStorePutOverwritesSameTimestamp(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "ns", []byte("k"), []byte("first"), 10))
	require.NoError(t, s.Put(ctx, "ns", []byte("k"), []byte("second"), 10))

	value, ok, err := s.GetLatest(ctx, "ns", []byte("k"), nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("second"), value)

	ts, ok, err := s.GetLatestTimestamp(ctx, "ns", []byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(10), ts)
}

func TestMemoryStoreGetAllTimestampsDescending(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, ts := range []uint64{5, 30, 10, 20} {
		require.NoError(t, s.Put(ctx, "ns", []byte("k"), []byte("v"), ts))
	}

	seq, err := s.GetAllTimestamps(ctx, "ns", []byte("k"))
	require.NoError(t, err)

	var got []uint64
	for ts := range seq {
		got = append(got, ts)
	}
	require.Equal(t, []uint64{30, 20, 10, 5}, got)
}

func TestMemoryStoreDeleteWithMarkerRetainsNewestSurvivor(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, ts := range []uint64{10, 20, 30, 40} {
		require.NoError(t, s.Put(ctx, "ns", []byte("k"), []byte("v"), ts))
	}

	marker := uint64(25)
	require.NoError(t, s.Delete(ctx, "ns", []byte("k"), &marker))

	seq, err := s.GetAllTimestamps(ctx, "ns", []byte("k"))
	require.NoError(t, err)

	var got []uint64
	for ts := range seq {
		got = append(got, ts)
	}
	// 10 and 20 collapse to the single retained snapshot at 20; 30 and 40 survive untouched.
	require.Equal(t, []uint64{40, 30, 20}, got)
}

func TestMemoryStoreDeleteWithoutMarkerRemovesKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "ns", []byte("k"), []byte("v"), 10))
	require.NoError(t, s.Delete(ctx, "ns", []byte("k"), nil))

	_, ok, err := s.GetLatest(ctx, "ns", []byte("k"), nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreScanAllReturnsNewestPerKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "ns", []byte("a"), []byte("a1"), 1))
	require.NoError(t, s.Put(ctx, "ns", []byte("a"), []byte("a2"), 2))
	require.NoError(t, s.Put(ctx, "ns", []byte("b"), []byte("b1"), 1))

	seq, err := s.ScanAll(ctx, "ns")
	require.NoError(t, err)

	got := make(map[string]string)
	for key, value := range seq {
		got[string(key)] = string(value)
	}
	require.Equal(t, map[string]string{"a": "a2", "b": "b1"}, got)
}

func TestMemoryStoreScanAllKeysOmitsDeleted(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "ns", []byte("a"), []byte("a1"), 1))
	require.NoError(t, s.Put(ctx, "ns", []byte("b"), []byte("b1"), 1))
	require.NoError(t, s.Delete(ctx, "ns", []byte("a"), nil))

	seq, err := s.ScanAllKeys(ctx, "ns")
	require.NoError(t, err)

	var got []string
	for key := range seq {
		got = append(got, string(key))
	}
	require.Equal(t, []string{"b"}, got)
}

func TestMemoryStoreScanAllKeysStopsEarly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(ctx, "ns", []byte(k), []byte("v"), 1))
	}

	seq, err := s.ScanAllKeys(ctx, "ns")
	require.NoError(t, err)

	count := 0
	for range seq {
		count++
		break
	}
	require.Equal(t, 1, count)
}

func TestMemoryStoreNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "ns1", []byte("k"), []byte("v1"), 1))
	require.NoError(t, s.Put(ctx, "ns2", []byte("k"), []byte("v2"), 1))

	v1, ok, err := s.GetLatest(ctx, "ns1", []byte("k"), nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v1)

	v2, ok, err := s.GetLatest(ctx, "ns2", []byte("k"), nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), v2)
}
