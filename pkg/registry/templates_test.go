package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zflow-run/zflow/pkg/flowdsl"
	"github.com/zflow-run/zflow/pkg/kv"
	"github.com/zflow-run/zflow/pkg/schema"
	"github.com/zflow-run/zflow/pkg/value"
)

func TestRegistryPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())

	tmpl := flowdsl.Template{
		Flow:        flowdsl.Input(schema.Int()),
		InputSchema: schema.Int(),
	}
	require.NoError(t, r.Put(ctx, "double", tmpl))

	got, err := r.Get(ctx, "double")
	require.NoError(t, err)
	require.True(t, got.Flow.Equal(tmpl.Flow))
}

func TestRegistryGetUnknownTemplate(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())

	_, err := r.Get(ctx, "missing")
	require.Error(t, err)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestRegistryPutReplacesDefinition(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())

	require.NoError(t, r.Put(ctx, "t", flowdsl.Template{Flow: flowdsl.Succeed(value.Int(1))}))
	require.NoError(t, r.Put(ctx, "t", flowdsl.Template{Flow: flowdsl.Succeed(value.Int(2))}))

	got, err := r.Get(ctx, "t")
	require.NoError(t, err)
	require.True(t, got.Flow.Equal(flowdsl.Succeed(value.Int(2))))
}

func TestRegistryAllListsTemplates(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())

	require.NoError(t, r.Put(ctx, "a", flowdsl.Template{Flow: flowdsl.Succeed(value.Int(1))}))
	require.NoError(t, r.Put(ctx, "b", flowdsl.Template{Flow: flowdsl.Succeed(value.Int(2))}))

	seq, err := r.All(ctx)
	require.NoError(t, err)

	got := map[string]*flowdsl.Template{}
	for id, tmpl := range seq {
		got[id] = tmpl
	}

	require.Len(t, got, 2)
	require.True(t, got["a"].Flow.Equal(flowdsl.Succeed(value.Int(1))))
	require.True(t, got["b"].Flow.Equal(flowdsl.Succeed(value.Int(2))))
}

func TestRegistryAllStopsEarly(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())

	require.NoError(t, r.Put(ctx, "a", flowdsl.Template{Flow: flowdsl.Succeed(value.Int(1))}))
	require.NoError(t, r.Put(ctx, "b", flowdsl.Template{Flow: flowdsl.Succeed(value.Int(2))}))

	seq, err := r.All(ctx)
	require.NoError(t, err)

	seen := 0
	for range seq {
		seen++
		break
	}
	require.Equal(t, 1, seen)
}

func TestRegistryDeleteRemovesTemplate(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())

	require.NoError(t, r.Put(ctx, "a", flowdsl.Template{Flow: flowdsl.Succeed(value.Int(1))}))
	require.NoError(t, r.Delete(ctx, "a"))

	_, err := r.Get(ctx, "a")
	require.Error(t, err)
}

func TestRegistryDeleteUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemoryStore())

	require.NoError(t, r.Delete(ctx, "missing"))
}
