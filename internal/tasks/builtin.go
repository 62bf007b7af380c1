package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/conveyor-engine/conveyor/internal/secrets"
)

// BuiltinsConfig carries the collaborators the built-in tasks depend on.
type BuiltinsConfig struct {
	// Vault backs the creds group. Nil disables credential tasks with a
	// runtime error rather than a registration failure.
	Vault secrets.Vault

	// CredsPrefix overrides the default credential target-name prefix.
	CredsPrefix string
}

// RegisterBuiltins registers every built-in task and capability group.
func RegisterBuiltins(reg *Registry, cfg BuiltinsConfig) error {
	flat := []Task{
		echoTask(),
		setTask(),
		failTask(),
		sleepTask(),
		NewJQTask(),
	}
	for _, t := range flat {
		if err := reg.Register(t); err != nil {
			return err
		}
	}

	groups := []*Group{
		CredsGroup(cfg.Vault, cfg.CredsPrefix),
		SheetGroup(),
		StampGroup(),
		WebGroup(),
		PathsGroup(),
		FSGroup(),
	}
	for _, g := range groups {
		if err := reg.RegisterGroup(g); err != nil {
			return err
		}
	}
	return nil
}

func echoTask() Task {
	return NewFunc("echo", "Echo the msg kwarg back into the context", func(_ context.Context, in Input) (any, error) {
		return map[string]any{"echo": in.Kwargs["msg"]}, nil
	})
}

func setTask() Task {
	return NewFunc("set", "Merge the kwargs into the context verbatim", func(_ context.Context, in Input) (any, error) {
		out := make(map[string]any, len(in.Kwargs))
		for k, v := range in.Kwargs {
			out[k] = v
		}
		return out, nil
	})
}

func failTask() Task {
	return NewFunc("fail", "Fail deliberately, for pipeline testing", func(_ context.Context, in Input) (any, error) {
		msg, _ := in.GetString("message")
		if msg == "" {
			msg = "deliberate failure"
		}
		return nil, errors.New(msg)
	})
}

func sleepTask() Task {
	return NewFunc("sleep", "Block for the given duration", func(ctx context.Context, in Input) (any, error) {
		raw, ok := in.GetString("duration")
		if !ok {
			return nil, fmt.Errorf("sleep requires a duration kwarg")
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		select {
		case <-time.After(d):
			return map[string]any{"slept": raw}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}
