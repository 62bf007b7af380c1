package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conveyor-engine/conveyor/pkg/schema"
)

func TestRunFSM_HappyPath(t *testing.T) {
	fsm := NewRunFSM()
	assert.Equal(t, RunStateLoading, fsm.State())

	require.NoError(t, fsm.Transition(RunStateSelecting))
	require.NoError(t, fsm.Transition(RunStateRunning))
	require.NoError(t, fsm.Transition(RunStateDone))
	assert.True(t, fsm.Terminal())
}

func TestRunFSM_FailureFromAnyNonTerminal(t *testing.T) {
	for _, from := range []RunState{RunStateLoading, RunStateSelecting, RunStateRunning} {
		fsm := &RunFSM{state: from}
		require.NoError(t, fsm.Transition(RunStateFailed), string(from))
		assert.True(t, fsm.Terminal())
	}
}

func TestRunFSM_InvalidTransition(t *testing.T) {
	fsm := NewRunFSM()
	err := fsm.Transition(RunStateDone) // loading -> done skips states

	var perr *schema.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, schema.ErrCodeInvalidTransition, perr.Code)
	assert.Equal(t, RunStateLoading, fsm.State())
}

func TestRunFSM_TerminalStatesAreFinal(t *testing.T) {
	for _, terminal := range []RunState{RunStateDone, RunStateFailed} {
		fsm := &RunFSM{state: terminal}
		assert.Error(t, fsm.Transition(RunStateRunning), string(terminal))
		assert.Error(t, fsm.Transition(RunStateFailed), string(terminal))
	}
}
