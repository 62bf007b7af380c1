package tasks

import (
	"context"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/conveyor-engine/conveyor/pkg/schema"
)

// JQTask applies a jq expression to a value: the input kwarg when given,
// otherwise (in update mode) the context snapshot. Compiled queries are
// cached and reused across steps.
type JQTask struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// NewJQTask creates the jq transform task.
func NewJQTask() *JQTask {
	return &JQTask{cache: make(map[string]*gojq.Code)}
}

func (t *JQTask) Name() string     { return "jq" }
func (t *JQTask) Describe() string { return "Transform a value with a jq expression" }

// Run evaluates the expression. A single jq output is returned directly;
// multiple outputs are collected into a slice.
func (t *JQTask) Run(ctx context.Context, in Input) (any, error) {
	expression, ok := in.GetString("expr")
	if !ok || expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "jq requires an expr kwarg")
	}

	input, ok := in.Kwargs["input"]
	if !ok {
		if in.Context == nil {
			return nil, schema.NewError(schema.ErrCodeValidation,
				"jq in raw mode requires an input kwarg")
		}
		input = normalizeForJQ(in.Context)
	} else {
		input = normalizeForJQ(input)
	}

	code, err := t.getOrCompile(expression)
	if err != nil {
		return nil, err
	}

	iter := code.RunWithContext(ctx, input)

	var results []any
	for {
		val, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := val.(error); isErr {
			return nil, schema.NewErrorf(schema.ErrCodeTaskExecution,
				"jq evaluation failed for %q: %s", expression, err.Error()).
				WithCause(err).
				WithDetails(map[string]any{"expression": expression})
		}
		results = append(results, val)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

func (t *JQTask) getOrCompile(expression string) (*gojq.Code, error) {
	t.mu.RLock()
	if code, ok := t.cache[expression]; ok {
		t.mu.RUnlock()
		return code, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	if code, ok := t.cache[expression]; ok {
		return code, nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"jq parse error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	code, err := gojq.Compile(query,
		// Sandbox: empty env blocks $ENV and env access.
		gojq.WithEnvironLoader(func() []string { return nil }),
	)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"jq compile error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	t.cache[expression] = code
	return code, nil
}

// normalizeForJQ converts Go native values to jq-compatible types: integer
// kinds widen to float64, containers recurse.
func normalizeForJQ(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = normalizeForJQ(v)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = normalizeForJQ(v)
		}
		return out
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}
