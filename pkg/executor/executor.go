// Package executor defines the Executor contract (spec §4.3): the
// subsystem that turns a persisted flow description into a running
// computation. reference.go is a durable, goroutine-per-flow
// implementation built on pkg/kv + pkg/flowdsl; mock.go is the
// deterministic in-memory test double spec §8/§9 asks for.
package executor

import (
	"context"
	"fmt"
	"iter"

	"github.com/zflow-run/zflow/pkg/flowdsl"
	"github.com/zflow-run/zflow/pkg/value"
)

// Status is a flow's lifecycle state. The reference and mock executors
// produce Running, Paused (via Pause) and Done; Suspended is reserved for
// richer executors and must still round-trip through the HTTP API, per
// spec §3.
type Status string

const (
	StatusRunning   Status = "Running"
	StatusDone      Status = "Done"
	StatusPaused    Status = "Paused"
	StatusSuspended Status = "Suspended"
)

// NotRunningError reports a control operation (pause/resume/abort) or
// delete against a flow id the executor has no record of.
type NotRunningError struct {
	FlowID string
}

func (e *NotRunningError) Error() string {
	return fmt.Sprintf("executor: flow %q is not running", e.FlowID)
}

// FlowRunningError is returned by Delete when the target flow is still
// live, per spec §4.3 ("must fail with InvalidOperationArguments(\"flow
// is running\") if the flow is currently live").
type FlowRunningError struct {
	FlowID string
}

func (e *FlowRunningError) Error() string {
	return fmt.Sprintf("executor: flow %q is running", e.FlowID)
}

// Executor is the contract every backend (reference, mock) implements
// identically, per spec §4.3.
type Executor interface {
	// Start registers flow under id and schedules it. Returning does not
	// imply completion, only that the flow has been durably recorded.
	Start(ctx context.Context, id string, flow *flowdsl.Flow) error

	// Poll returns (outcome, true) if id is known, or (_, false) if not.
	Poll(ctx context.Context, id string) (value.PollOutcome, bool, error)

	// Pause, Resume and Abort are idempotent control operations.
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) error
	Abort(ctx context.Context, id string) error

	// Delete reclaims a finished flow's durable state. It fails with
	// *FlowRunningError if the flow is currently live; deleting an
	// unknown id succeeds.
	Delete(ctx context.Context, id string) error

	// GetAll streams every known flow id with its current status.
	GetAll(ctx context.Context) (iter.Seq2[string, Status], error)

	// RestartAll re-schedules every persisted, non-terminal flow. No-op
	// for pure in-memory backends.
	RestartAll(ctx context.Context) error

	// ForceGarbageCollection is a best-effort reclamation pass over
	// finished-flow state.
	ForceGarbageCollection(ctx context.Context) error
}
