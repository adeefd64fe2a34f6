package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodePollOutcomeRunning(t *testing.T) {
	raw, err := EncodePollOutcome(Running())
	require.NoError(t, err)
	require.JSONEq(t, `{"Running":{}}`, string(raw))
}

func TestEncodePollOutcomeSucceeded(t *testing.T) {
	raw, err := EncodePollOutcome(Succeeded(String("hello")))
	require.NoError(t, err)
	require.JSONEq(t, `{"Succeeded":{"String":"hello"}}`, string(raw))
}

func TestEncodePollOutcomeFailed(t *testing.T) {
	raw, err := EncodePollOutcome(Failed(String("hello")))
	require.NoError(t, err)
	require.JSONEq(t, `{"Failed":{"String":"hello"}}`, string(raw))
}

func TestEncodePollOutcomeDied(t *testing.T) {
	raw, err := EncodePollOutcome(Died(MissingVariable("x", "y")))
	require.NoError(t, err)
	require.JSONEq(t, `{"Died":{"MissingVariable":{"name":"x","context":"y"}}}`, string(raw))
}

func TestPollOutcomeRoundTrip(t *testing.T) {
	cases := []PollOutcome{
		Running(),
		Succeeded(Int(1)),
		Failed(String("boom")),
		Died(InvalidOperationArguments("flow is running")),
	}

	for _, outcome := range cases {
		raw, err := EncodePollOutcome(outcome)
		require.NoError(t, err)

		decoded, err := DecodePollOutcome(raw)
		require.NoError(t, err)
		require.Equal(t, outcome.Kind, decoded.Kind)

		if outcome.Kind == OutcomeSucceeded || outcome.Kind == OutcomeFailed {
			require.True(t, outcome.Value.Equal(decoded.Value))
		}
		if outcome.Kind == OutcomeDied {
			require.Equal(t, outcome.Err.Tag, decoded.Err.Tag)
		}
	}
}
