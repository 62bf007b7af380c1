package engine

import "github.com/conveyor-engine/conveyor/pkg/schema"

// RunState is the lifecycle state of one pipeline run.
type RunState string

const (
	RunStateLoading   RunState = "loading"
	RunStateSelecting RunState = "selecting"
	RunStateRunning   RunState = "running"
	RunStateDone      RunState = "done"
	RunStateFailed    RunState = "failed"
)

// ValidRunTransitions defines the allowed lifecycle transitions. Failure is
// reachable from every non-terminal state; done and failed are terminal.
var ValidRunTransitions = map[RunState][]RunState{
	RunStateLoading:   {RunStateSelecting, RunStateFailed},
	RunStateSelecting: {RunStateRunning, RunStateFailed},
	RunStateRunning:   {RunStateDone, RunStateFailed},
	RunStateDone:      {},
	RunStateFailed:    {},
}

// RunFSM tracks and validates the lifecycle of a single run.
type RunFSM struct {
	state RunState
}

// NewRunFSM creates an FSM in the loading state.
func NewRunFSM() *RunFSM {
	return &RunFSM{state: RunStateLoading}
}

// State returns the current state.
func (f *RunFSM) State() RunState {
	return f.state
}

// Transition validates and executes a state transition.
func (f *RunFSM) Transition(to RunState) error {
	if !isValidRunTransition(f.state, to) {
		return schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"invalid run transition: %s -> %s", f.state, to).
			WithDetails(map[string]any{"from": string(f.state), "to": string(to)})
	}
	f.state = to
	return nil
}

// Terminal reports whether the run has reached done or failed.
func (f *RunFSM) Terminal() bool {
	return f.state == RunStateDone || f.state == RunStateFailed
}

func isValidRunTransition(from, to RunState) bool {
	for _, a := range ValidRunTransitions[from] {
		if a == to {
			return true
		}
	}
	return false
}
