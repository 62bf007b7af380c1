package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/conveyor-engine/conveyor/internal/logging"
	"github.com/conveyor-engine/conveyor/internal/resolve"
	"github.com/conveyor-engine/conveyor/internal/tasks"
	"github.com/conveyor-engine/conveyor/pkg/schema"
)

// Runner drives one end-to-end pipeline run: it selects the active pipeline
// from a loaded definition, owns the run context, and executes the ordered
// steps sequentially through the step executor.
type Runner struct {
	registry *tasks.Registry
	executor *StepExecutor
	log      *slog.Logger
}

// RunResult is the outcome of a pipeline run. On failure the context holds
// everything accumulated up to the failing step, for forensic logging.
type RunResult struct {
	RunID    string
	Pipeline string
	State    RunState
	Context  *Context
	Summary  string
}

// NewRunner creates a Runner. The registry is an injected collaborator;
// nothing registers during a run.
func NewRunner(registry *tasks.Registry, log *slog.Logger) *Runner {
	resolver := resolve.New()
	return &Runner{
		registry: registry,
		executor: NewStepExecutor(registry, resolver, log),
		log:      log,
	}
}

// Run executes the pipeline selected by the definition's use name. All
// fatal errors bubble up to the caller; the partially mutated context is
// returned alongside them.
func (r *Runner) Run(ctx context.Context, file *schema.PipelineFile) (*RunResult, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)

	fsm := NewRunFSM()
	result := &RunResult{RunID: runID, Pipeline: file.Use}

	fail := func(err error) (*RunResult, error) {
		_ = fsm.Transition(RunStateFailed)
		result.State = fsm.State()
		return result, err
	}

	if err := fsm.Transition(RunStateSelecting); err != nil {
		return fail(err)
	}
	steps, err := file.Pipeline()
	if err != nil {
		return fail(err)
	}

	if err := fsm.Transition(RunStateRunning); err != nil {
		return fail(err)
	}
	pc := NewContext(file.Vars)
	result.Context = pc

	for _, step := range steps {
		if err := r.executor.Execute(ctx, step, pc); err != nil {
			return fail(err)
		}
	}

	if err := fsm.Transition(RunStateDone); err != nil {
		return fail(err)
	}
	result.State = fsm.State()
	result.Summary = summaryLine(pc.Snapshot())

	r.log.InfoContext(ctx, "PIPELINE OK", "summary", result.Summary)
	if masked, err := json.Marshal(pc.MaskedSnapshot()); err == nil {
		r.log.DebugContext(ctx, "context", "snapshot", string(masked))
	}

	return result, nil
}

// summaryLine compacts the accumulated context into one human-readable
// line: list-typed entries report their length, *_count entries their
// value.
func summaryLine(snapshot map[string]any) string {
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		if k == VarsKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		switch v := snapshot[k].(type) {
		case []any:
			parts = append(parts, fmt.Sprintf("%s=%d", k, len(v)))
		default:
			if strings.HasSuffix(k, "_count") {
				parts = append(parts, fmt.Sprintf("%s=%v", k, v))
			}
		}
	}

	if len(parts) == 0 {
		return "(no outputs captured)"
	}
	return strings.Join(parts, " | ")
}
