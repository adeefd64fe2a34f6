package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/zflow-run/zflow/internal/reactive"
	"github.com/zflow-run/zflow/pkg/flowdsl"
	"github.com/zflow-run/zflow/pkg/kv"
	"github.com/zflow-run/zflow/pkg/value"
)

const (
	flowsNamespace    = "_zflow_executor_flows"
	promisesNamespace = "_zflow_executor_promises"
	statusNamespace   = "_zflow_executor_status"
)

// promiseID derives a PromiseId one-to-one from a FlowId, per spec §3.
func promiseID(flowID string) string { return "promise:" + flowID }

// Reference is the durable, goroutine-per-flow reference implementation
// of Executor. Start persists the bound flow and dispatches it to
// pkg/flowdsl's reference evaluator; the terminal outcome is written back
// through kv.Store under the flow's derived PromiseId. It leans on
// internal/reactive.Cell (the teacher's Accessor idea, trimmed down) to
// hold the settled outcome of each flow started or restarted in this
// process, so Poll answers from memory once such a flow has settled;
// while a flow is still in flight, Poll reads its promise and status from
// the store.
type Reference struct {
	store kv.Store
	clock atomic.Uint64

	mu    sync.Mutex
	cells map[string]*reactive.Cell[*value.PollOutcome] // flowID -> in-flight completion signal
}

// NewReference wires a Reference executor on top of a kv.Store.
func NewReference(store kv.Store) *Reference {
	return &Reference{store: store, cells: make(map[string]*reactive.Cell[*value.PollOutcome])}
}

func (r *Reference) nextTimestamp() uint64 { return r.clock.Add(1) }

func (r *Reference) Start(ctx context.Context, id string, flow *flowdsl.Flow) error {
	raw, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("executor: encode flow %q: %w", id, err)
	}
	if err := r.store.Put(ctx, flowsNamespace, []byte(id), raw, r.nextTimestamp()); err != nil {
		return fmt.Errorf("executor: persist flow %q: %w", id, err)
	}
	if err := r.setStatus(ctx, id, StatusRunning); err != nil {
		return err
	}

	r.mu.Lock()
	cell := reactive.NewCell[*value.PollOutcome](nil)
	r.cells[id] = cell
	r.mu.Unlock()

	r.dispatch(id, flow, cell)
	return nil
}

// dispatch runs flow on its own goroutine and publishes the terminal
// outcome both to the in-memory cell and to durable storage.
func (r *Reference) dispatch(id string, flow *flowdsl.Flow, cell *reactive.Cell[*value.PollOutcome]) {
	go func() {
		outcome := flowdsl.Eval(flow)

		ctx := context.Background()
		encoded, err := value.EncodePollOutcome(outcome)
		if err == nil {
			_ = r.store.Put(ctx, promisesNamespace, []byte(promiseID(id)), encoded, r.nextTimestamp())
		}
		_ = r.setStatus(ctx, id, StatusDone)

		cell.Update(&outcome)
	}()
}

func (r *Reference) setStatus(ctx context.Context, id string, status Status) error {
	if err := r.store.Put(ctx, statusNamespace, []byte(id), []byte(status), r.nextTimestamp()); err != nil {
		return fmt.Errorf("executor: set status for %q: %w", id, err)
	}
	return nil
}

func (r *Reference) getStatus(ctx context.Context, id string) (Status, bool, error) {
	raw, ok, err := r.store.GetLatest(ctx, statusNamespace, []byte(id), nil)
	if err != nil {
		return "", false, fmt.Errorf("executor: get status for %q: %w", id, err)
	}
	if !ok {
		return "", false, nil
	}
	return Status(raw), true, nil
}

// InspectFlow returns the persisted flow definition for id, for
// operator-facing debugging (pkg/httpapi's supplemental debug endpoint).
// It is not part of the Executor contract.
func (r *Reference) InspectFlow(ctx context.Context, id string) (*flowdsl.Flow, bool, error) {
	raw, ok, err := r.store.GetLatest(ctx, flowsNamespace, []byte(id), nil)
	if err != nil {
		return nil, false, fmt.Errorf("executor: inspect flow %q: %w", id, err)
	}
	if !ok {
		return nil, false, nil
	}
	var flow flowdsl.Flow
	if err := json.Unmarshal(raw, &flow); err != nil {
		return nil, false, fmt.Errorf("executor: decode flow %q: %w", id, err)
	}
	return &flow, true, nil
}

func (r *Reference) Poll(ctx context.Context, id string) (value.PollOutcome, bool, error) {
	r.mu.Lock()
	cell := r.cells[id]
	r.mu.Unlock()
	if cell != nil {
		if outcome := cell.Get(); outcome != nil {
			return *outcome, true, nil
		}
	}

	raw, ok, err := r.store.GetLatest(ctx, promisesNamespace, []byte(promiseID(id)), nil)
	if err != nil {
		return value.PollOutcome{}, false, fmt.Errorf("executor: poll %q: %w", id, err)
	}
	if ok {
		outcome, err := value.DecodePollOutcome(raw)
		if err != nil {
			return value.PollOutcome{}, false, fmt.Errorf("executor: decode outcome for %q: %w", id, err)
		}
		return outcome, true, nil
	}

	// Not yet settled: confirm the flow is at least known before
	// reporting Running.
	if _, known, err := r.getStatus(ctx, id); err != nil {
		return value.PollOutcome{}, false, err
	} else if !known {
		return value.PollOutcome{}, false, nil
	}
	return value.Running(), true, nil
}

func (r *Reference) Pause(ctx context.Context, id string) error {
	if _, known, err := r.getStatus(ctx, id); err != nil {
		return err
	} else if !known {
		return nil // idempotent
	}
	return r.setStatus(ctx, id, StatusPaused)
}

func (r *Reference) Resume(ctx context.Context, id string) error {
	status, known, err := r.getStatus(ctx, id)
	if err != nil {
		return err
	}
	if !known || status != StatusPaused {
		return nil // idempotent
	}
	return r.setStatus(ctx, id, StatusRunning)
}

func (r *Reference) Abort(ctx context.Context, id string) error {
	if _, known, err := r.getStatus(ctx, id); err != nil {
		return err
	} else if !known {
		return nil // idempotent
	}

	died := value.Died(value.InvalidOperationArguments("flow aborted"))
	encoded, err := value.EncodePollOutcome(died)
	if err != nil {
		return fmt.Errorf("executor: encode abort outcome for %q: %w", id, err)
	}
	if err := r.store.Put(ctx, promisesNamespace, []byte(promiseID(id)), encoded, r.nextTimestamp()); err != nil {
		return fmt.Errorf("executor: persist abort outcome for %q: %w", id, err)
	}
	if err := r.setStatus(ctx, id, StatusDone); err != nil {
		return err
	}

	r.mu.Lock()
	cell := r.cells[id]
	r.mu.Unlock()
	if cell != nil {
		cell.Update(&died)
	}
	return nil
}

func (r *Reference) Delete(ctx context.Context, id string) error {
	status, known, err := r.getStatus(ctx, id)
	if err != nil {
		return err
	}
	if !known {
		return nil // idempotent: unknown flow deletes cleanly
	}
	if status == StatusRunning {
		return &FlowRunningError{FlowID: id}
	}

	for _, ns := range []string{flowsNamespace, promisesNamespace, statusNamespace} {
		key := []byte(id)
		if ns == promisesNamespace {
			key = []byte(promiseID(id))
		}
		if err := r.store.Delete(ctx, ns, key, nil); err != nil {
			return fmt.Errorf("executor: delete %q from %s: %w", id, ns, err)
		}
	}

	r.mu.Lock()
	delete(r.cells, id)
	r.mu.Unlock()
	return nil
}

func (r *Reference) GetAll(ctx context.Context) (iter.Seq2[string, Status], error) {
	seq, err := r.store.ScanAllKeys(ctx, statusNamespace)
	if err != nil {
		return nil, fmt.Errorf("executor: getAll: %w", err)
	}

	return func(yield func(string, Status) bool) {
		for key := range seq {
			id := string(key)
			status, known, err := r.getStatus(ctx, id)
			if err != nil || !known {
				continue
			}
			if !yield(id, status) {
				return
			}
		}
	}, nil
}

// RestartAll re-schedules every persisted flow whose status is still
// Running or Paused, per spec §4.3.
func (r *Reference) RestartAll(ctx context.Context) error {
	seq, err := r.store.ScanAll(ctx, flowsNamespace)
	if err != nil {
		return fmt.Errorf("executor: restartAll: %w", err)
	}

	for key, raw := range seq {
		id := string(key)
		status, known, err := r.getStatus(ctx, id)
		if err != nil || !known {
			continue
		}
		if status != StatusRunning && status != StatusPaused {
			continue
		}

		var flow flowdsl.Flow
		if err := json.Unmarshal(raw, &flow); err != nil {
			continue
		}

		r.mu.Lock()
		cell := reactive.NewCell[*value.PollOutcome](nil)
		r.cells[id] = cell
		r.mu.Unlock()

		r.dispatch(id, &flow, cell)
	}
	return nil
}

// ForceGarbageCollection drops durable state for every flow whose status
// is Done, per spec §4.3's best-effort reclamation contract.
func (r *Reference) ForceGarbageCollection(ctx context.Context) error {
	seq, err := r.store.ScanAllKeys(ctx, statusNamespace)
	if err != nil {
		return fmt.Errorf("executor: forceGarbageCollection: %w", err)
	}

	var done []string
	for key := range seq {
		id := string(key)
		status, known, err := r.getStatus(ctx, id)
		if err == nil && known && status == StatusDone {
			done = append(done, id)
		}
	}

	for _, id := range done {
		_ = r.Delete(ctx, id)
	}
	return nil
}
