package executor

import (
	"context"
	"iter"
	"sort"
	"sync"

	"github.com/zflow-run/zflow/pkg/flowdsl"
	"github.com/zflow-run/zflow/pkg/value"
)

// mockFlow tracks one flow's state in the Mock executor.
type mockFlow struct {
	flow    *flowdsl.Flow
	status  Status
	polls   int
	outcome *value.PollOutcome // settled outcome, once known
}

// Mock is the deterministic, in-memory test double spec §8/§9 calls for.
// Unlike Reference, it never runs pkg/flowdsl's evaluator on a goroutine:
// a flow settles only once its PollAfter threshold is reached, making
// tests exercising the Running -> Succeeded/Failed/Died transition
// reproducible without timing races. This "after N polls" counter is a
// test affordance the spec explicitly calls out as never binding on a
// production executor (see SPEC_FULL.md's Open Question decisions).
type Mock struct {
	mu    sync.Mutex
	flows map[string]*mockFlow

	// PollAfter, if set for a flow id, is the poll count at which Poll
	// first reports the flow's precomputed outcome instead of Running.
	PollAfter map[string]int

	// Outcomes holds the outcome Poll eventually reports for a flow id,
	// once PollAfter is reached. Defaults to Succeeded of a zero
	// DynamicValue (empty tag, no payload) if unset.
	Outcomes map[string]value.PollOutcome
}

// NewMock creates an empty Mock executor.
func NewMock() *Mock {
	return &Mock{
		flows:     make(map[string]*mockFlow),
		PollAfter: make(map[string]int),
		Outcomes:  make(map[string]value.PollOutcome),
	}
}

func (m *Mock) Start(ctx context.Context, id string, flow *flowdsl.Flow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flows[id] = &mockFlow{flow: flow, status: StatusRunning}
	return nil
}

func (m *Mock) Poll(ctx context.Context, id string) (value.PollOutcome, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.flows[id]
	if !ok {
		return value.PollOutcome{}, false, nil
	}
	if f.status != StatusRunning {
		if f.outcome != nil {
			return *f.outcome, true, nil
		}
		return value.Running(), true, nil
	}

	f.polls++
	threshold, hasThreshold := m.PollAfter[id]
	if !hasThreshold || f.polls < threshold {
		return value.Running(), true, nil
	}

	outcome, ok := m.Outcomes[id]
	if !ok {
		outcome = value.Succeeded(value.DynamicValue{})
	}
	f.status = StatusDone
	f.outcome = &outcome
	return outcome, true, nil
}

func (m *Mock) Pause(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.flows[id]; ok && f.status == StatusRunning {
		f.status = StatusPaused
	}
	return nil
}

func (m *Mock) Resume(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.flows[id]; ok && f.status == StatusPaused {
		f.status = StatusRunning
	}
	return nil
}

func (m *Mock) Abort(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.flows[id]
	if !ok {
		return nil
	}
	died := value.Died(value.InvalidOperationArguments("flow aborted"))
	f.status = StatusDone
	f.outcome = &died
	return nil
}

func (m *Mock) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.flows[id]
	if !ok {
		return nil
	}
	if f.status == StatusRunning {
		return &FlowRunningError{FlowID: id}
	}
	delete(m.flows, id)
	return nil
}

func (m *Mock) GetAll(ctx context.Context) (iter.Seq2[string, Status], error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.flows))
	statuses := make(map[string]Status, len(m.flows))
	for id, f := range m.flows {
		ids = append(ids, id)
		statuses[id] = f.status
	}
	m.mu.Unlock()
	sort.Strings(ids)

	return func(yield func(string, Status) bool) {
		for _, id := range ids {
			if !yield(id, statuses[id]) {
				return
			}
		}
	}, nil
}

func (m *Mock) RestartAll(ctx context.Context) error { return nil }

func (m *Mock) ForceGarbageCollection(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, f := range m.flows {
		if f.status == StatusDone {
			delete(m.flows, id)
		}
	}
	return nil
}
