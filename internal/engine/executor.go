package engine

import (
	"context"
	"log/slog"
	"sort"

	"github.com/conveyor-engine/conveyor/internal/logging"
	"github.com/conveyor-engine/conveyor/internal/resolve"
	"github.com/conveyor-engine/conveyor/internal/tasks"
	"github.com/conveyor-engine/conveyor/pkg/schema"
)

// StepExecutor executes exactly one step against a live Context, task
// registry, and variable resolver.
type StepExecutor struct {
	registry *tasks.Registry
	resolver *resolve.Resolver
	guards   *GuardEvaluator
	log      *slog.Logger
}

// NewStepExecutor creates a step executor with injected collaborators.
func NewStepExecutor(registry *tasks.Registry, resolver *resolve.Resolver, log *slog.Logger) *StepExecutor {
	return &StepExecutor{
		registry: registry,
		resolver: resolver,
		guards:   NewGuardEvaluator(resolver),
		log:      log,
	}
}

// Execute runs one step, mutating the shared context in place. A false
// guard skips the step without error; a task failure aborts the run with a
// TaskExecutionError.
func (e *StepExecutor) Execute(ctx context.Context, step schema.Step, pc *Context) error {
	ctx = logging.WithTask(ctx, step.Task)
	log := e.log

	guard, err := e.guards.Evaluate(step.When, pc)
	if err != nil {
		return err
	}
	if !guard.Pass {
		log.InfoContext(ctx, "SKIP", "reason", guard.Reason)
		return nil
	}

	kwargs, _ := e.resolver.Resolve(step.Kwargs, pc.Vars(), pc.Snapshot()).(map[string]any)
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	task, err := e.registry.Resolve(step.Task)
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "START", "params", kwargs)
	defer log.InfoContext(ctx, "END")

	switch step.Mode.OrDefault() {
	case schema.ModeRaw:
		out, err := task.Run(ctx, tasks.Input{Kwargs: kwargs})
		if err != nil {
			log.ErrorContext(ctx, "task failed", "error", err)
			return wrapTaskError(step.Task, err)
		}
		if step.ResultKey != "" {
			pc.Set(step.ResultKey, out)
			logResult(ctx, log, step.ResultKey, out)
		}

	case schema.ModeUpdate:
		out, err := task.Run(ctx, tasks.Input{Kwargs: kwargs, Context: pc.Snapshot()})
		if err != nil {
			log.ErrorContext(ctx, "task failed", "error", err)
			return wrapTaskError(step.Task, err)
		}
		if updates, ok := out.(map[string]any); ok {
			pc.Merge(updates)
		}

	default:
		return schema.NewErrorf(schema.ErrCodeConfig,
			"unknown step mode %q", step.Mode).WithTask(step.Task)
	}

	return nil
}

// wrapTaskError ensures a task failure surfaces as a TaskExecutionError
// without double-wrapping structured errors that already carry a code.
func wrapTaskError(task string, err error) error {
	if perr, ok := err.(*schema.PipelineError); ok && perr.Code == schema.ErrCodeTaskExecution {
		if perr.Task == "" {
			perr.Task = task
		}
		return perr
	}
	return schema.NewErrorf(schema.ErrCodeTaskExecution, "%s", err.Error()).
		WithTask(task).
		WithCause(err)
}

// logResult emits a short helpful line about a raw-mode result.
func logResult(ctx context.Context, log *slog.Logger, key string, out any) {
	switch v := out.(type) {
	case []any:
		log.InfoContext(ctx, "result", "key", key, "items", len(v))
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		log.InfoContext(ctx, "result", "key", key, "keys", keys)
	default:
		log.InfoContext(ctx, "result", "key", key)
	}
}
