package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conveyor-engine/conveyor/internal/logging"
	"github.com/conveyor-engine/conveyor/internal/tasks"
	"github.com/conveyor-engine/conveyor/pkg/schema"
)

func TestRunner_EndToEnd(t *testing.T) {
	reg := tasks.NewRegistry()
	require.NoError(t, reg.Register(echoTask()))

	runner := NewRunner(reg, discardLogger())
	file := &schema.PipelineFile{
		Vars: map[string]any{"x": "A"},
		Use:  "p",
		Pipelines: map[string][]schema.Step{
			"p": {{Task: "echo", Mode: schema.ModeUpdate, Kwargs: map[string]any{"msg": "{x}"}}},
		},
	}

	result, err := runner.Run(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, RunStateDone, result.State)
	assert.NotEmpty(t, result.RunID)

	seen, ok := result.Context.Get("seen")
	require.True(t, ok)
	assert.Equal(t, "A", seen)
}

func TestRunner_LogRecordsCarryCorrelationOnce(t *testing.T) {
	reg := tasks.NewRegistry()
	require.NoError(t, reg.Register(echoTask()))

	var buf bytes.Buffer
	logger := slog.New(logging.NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))
	runner := NewRunner(reg, logger)

	file := &schema.PipelineFile{
		Use: "p",
		Pipelines: map[string][]schema.Step{
			"p": {{Task: "echo", Mode: schema.ModeUpdate, Kwargs: map[string]any{"msg": "hi"}}},
		},
	}
	result, err := runner.Run(context.Background(), file)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Equal(t, 1, strings.Count(line, "run_id="), "line %q", line)
		assert.Contains(t, line, "run_id="+result.RunID)
	}

	var stepLines int
	for _, line := range lines {
		if strings.Contains(line, "task=") {
			stepLines++
			assert.Equal(t, 1, strings.Count(line, "task="), "line %q", line)
		}
	}
	assert.GreaterOrEqual(t, stepLines, 2)
}

func TestRunner_MissingPipelineIsConfigError(t *testing.T) {
	runner := NewRunner(tasks.NewRegistry(), discardLogger())
	file := &schema.PipelineFile{
		Use:       "absent",
		Pipelines: map[string][]schema.Step{"p": {}},
	}

	result, err := runner.Run(context.Background(), file)
	require.Error(t, err)

	var perr *schema.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, schema.ErrCodeConfig, perr.Code)
	assert.Equal(t, RunStateFailed, result.State)
}

func TestRunner_AbortsOnUnresolvableTask(t *testing.T) {
	ran := false
	reg := tasks.NewRegistry()
	require.NoError(t, reg.Register(tasks.NewFunc("after", "", func(_ context.Context, _ tasks.Input) (any, error) {
		ran = true
		return nil, nil
	})))

	runner := NewRunner(reg, discardLogger())
	file := &schema.PipelineFile{
		Use: "p",
		Pipelines: map[string][]schema.Step{
			"p": {
				{Task: "ghost"},
				{Task: "after"},
			},
		},
	}

	result, err := runner.Run(context.Background(), file)
	require.Error(t, err)

	var perr *schema.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, schema.ErrCodeTaskResolution, perr.Code)
	assert.Equal(t, RunStateFailed, result.State)
	assert.False(t, ran, "steps after the failing one must not execute")
}

func TestRunner_FailureKeepsContextForForensics(t *testing.T) {
	reg := tasks.NewRegistry()
	require.NoError(t, reg.Register(tasks.NewFunc("seed", "", func(_ context.Context, _ tasks.Input) (any, error) {
		return map[string]any{"progress": "step-1"}, nil
	})))
	require.NoError(t, reg.Register(tasks.NewFunc("boom", "", func(_ context.Context, _ tasks.Input) (any, error) {
		return nil, errors.New("kaput")
	})))

	runner := NewRunner(reg, discardLogger())
	file := &schema.PipelineFile{
		Use: "p",
		Pipelines: map[string][]schema.Step{
			"p": {{Task: "seed"}, {Task: "boom"}},
		},
	}

	result, err := runner.Run(context.Background(), file)
	require.Error(t, err)
	require.NotNil(t, result.Context)

	progress, ok := result.Context.Get("progress")
	require.True(t, ok)
	assert.Equal(t, "step-1", progress)
}

func TestRunner_SkippedStepContinues(t *testing.T) {
	reg := tasks.NewRegistry()
	require.NoError(t, reg.Register(echoTask()))

	runner := NewRunner(reg, discardLogger())
	file := &schema.PipelineFile{
		Use: "p",
		Pipelines: map[string][]schema.Step{
			"p": {
				{Task: "echo", Kwargs: map[string]any{"msg": "skipped"},
					When: &schema.Guard{FileExists: "/definitely/not/here.txt"}},
				{Task: "echo", Kwargs: map[string]any{"msg": "ran"}},
			},
		},
	}

	result, err := runner.Run(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, RunStateDone, result.State)

	seen, _ := result.Context.Get("seen")
	assert.Equal(t, "ran", seen)
}

func TestSummaryLine(t *testing.T) {
	assert.Equal(t, "(no outputs captured)", summaryLine(map[string]any{VarsKey: map[string]any{}}))

	line := summaryLine(map[string]any{
		VarsKey:         map[string]any{},
		"cases":         []any{1, 2, 3},
		"credentials":   []any{1},
		"stamped_count": 7,
		"output_dir":    "/out",
	})
	assert.Equal(t, "cases=3 | credentials=1 | stamped_count=7", line)
}
