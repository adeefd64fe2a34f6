package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zflow-run/zflow/pkg/flowdsl"
	"github.com/zflow-run/zflow/pkg/value"
)

func TestMockPollRunsUntilThreshold(t *testing.T) {
	ctx := context.Background()
	m := NewMock()

	require.NoError(t, m.Start(ctx, "f", flowdsl.Succeed(value.Int(9))))
	m.PollAfter["f"] = 3
	m.Outcomes["f"] = value.Succeeded(value.Int(9))

	for i := 0; i < 2; i++ {
		outcome, ok, err := m.Poll(ctx, "f")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, value.OutcomeRunning, outcome.Kind)
	}

	outcome, ok, err := m.Poll(ctx, "f")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, value.OutcomeSucceeded, outcome.Kind)
	require.True(t, outcome.Value.Equal(value.Int(9)))
}

func TestMockPollWithoutThresholdStaysRunning(t *testing.T) {
	ctx := context.Background()
	m := NewMock()

	require.NoError(t, m.Start(ctx, "f", flowdsl.Succeed(value.Int(1))))
	for i := 0; i < 5; i++ {
		outcome, ok, err := m.Poll(ctx, "f")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, value.OutcomeRunning, outcome.Kind)
	}
}

func TestMockDeleteFailsWhileRunning(t *testing.T) {
	ctx := context.Background()
	m := NewMock()
	require.NoError(t, m.Start(ctx, "f", flowdsl.Succeed(value.Int(1))))

	err := m.Delete(ctx, "f")
	require.Error(t, err)
	var running *FlowRunningError
	require.ErrorAs(t, err, &running)
}

func TestMockDeleteSucceedsAfterSettled(t *testing.T) {
	ctx := context.Background()
	m := NewMock()
	require.NoError(t, m.Start(ctx, "f", flowdsl.Succeed(value.Int(1))))
	m.PollAfter["f"] = 1
	_, _, err := m.Poll(ctx, "f")
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, "f"))
	_, ok, err := m.Poll(ctx, "f")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMockPauseResume(t *testing.T) {
	ctx := context.Background()
	m := NewMock()
	require.NoError(t, m.Start(ctx, "f", flowdsl.Succeed(value.Int(1))))

	require.NoError(t, m.Pause(ctx, "f"))
	seq, err := m.GetAll(ctx)
	require.NoError(t, err)
	statuses := map[string]Status{}
	for id, s := range seq {
		statuses[id] = s
	}
	require.Equal(t, StatusPaused, statuses["f"])

	require.NoError(t, m.Resume(ctx, "f"))
	seq, err = m.GetAll(ctx)
	require.NoError(t, err)
	for id, s := range seq {
		statuses[id] = s
	}
	require.Equal(t, StatusRunning, statuses["f"])
}

func TestMockAbortProducesDied(t *testing.T) {
	ctx := context.Background()
	m := NewMock()
	require.NoError(t, m.Start(ctx, "f", flowdsl.Succeed(value.Int(1))))
	require.NoError(t, m.Abort(ctx, "f"))

	outcome, ok, err := m.Poll(ctx, "f")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, value.OutcomeDied, outcome.Kind)
}

func TestMockForceGarbageCollectionDropsSettledFlows(t *testing.T) {
	ctx := context.Background()
	m := NewMock()
	require.NoError(t, m.Start(ctx, "f", flowdsl.Succeed(value.Int(1))))
	m.PollAfter["f"] = 1
	_, _, err := m.Poll(ctx, "f")
	require.NoError(t, err)

	require.NoError(t, m.ForceGarbageCollection(ctx))

	_, ok, err := m.Poll(ctx, "f")
	require.NoError(t, err)
	require.False(t, ok)
}
