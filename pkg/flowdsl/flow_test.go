package flowdsl

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zflow-run/zflow/pkg/schema"
	"github.com/zflow-run/zflow/pkg/value"
)

func TestFlowWithTagRoundTrip(t *testing.T) {
	f := Succeed(value.Int(1)).WithTag("name", "double-result")

	name, ok := f.Tag("name")
	require.True(t, ok)
	require.Equal(t, "double-result", name)

	_, ok = f.Tag("missing")
	require.False(t, ok)
}

func TestFlowEqual(t *testing.T) {
	a := Succeed(value.Int(11))
	b := Succeed(value.Int(11))
	c := Succeed(value.Int(12))

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestFlowProvideChangesEquality(t *testing.T) {
	base := Input(schema.Int())
	bound := base.Provide(value.Int(11))

	require.False(t, base.Equal(bound))

	other := Input(schema.Int()).Provide(value.Int(11))
	require.True(t, bound.Equal(other))
}

func TestFlowJSONRoundTrip(t *testing.T) {
	original := Input(schema.Int()).Provide(value.Int(11))

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Flow
	require.NoError(t, json.Unmarshal(raw, &decoded))

	require.True(t, original.Equal(&decoded))
}

func TestEvalSucceed(t *testing.T) {
	outcome := Eval(Succeed(value.String("hello")))
	require.Equal(t, value.OutcomeSucceeded, outcome.Kind)
	require.True(t, outcome.Value.Equal(value.String("hello")))
}

func TestEvalFail(t *testing.T) {
	outcome := Eval(Fail(value.String("hello")))
	require.Equal(t, value.OutcomeFailed, outcome.Kind)
	require.True(t, outcome.Value.Equal(value.String("hello")))
}

func TestEvalProvideBindsInput(t *testing.T) {
	flow := Input(schema.Int()).Provide(value.Int(11))
	outcome := Eval(flow)
	require.Equal(t, value.OutcomeSucceeded, outcome.Kind)
	require.True(t, outcome.Value.Equal(value.Int(11)))
}

func TestEvalInputWithoutProvideDies(t *testing.T) {
	outcome := Eval(Input(schema.Int()))
	require.Equal(t, value.OutcomeDied, outcome.Kind)
	require.Equal(t, "MissingVariable", outcome.Err.Tag)
}
