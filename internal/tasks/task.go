package tasks

import (
	"context"
	"sort"
)

// Task is a named, registered unit of work invocable by the engine.
type Task interface {
	Name() string
	Describe() string
	Run(ctx context.Context, in Input) (any, error)
}

// Input is the data handed to a task at invocation time.
type Input struct {
	// Kwargs are the step's resolved parameters.
	Kwargs map[string]any

	// Context is a snapshot of the run context. Nil in raw mode.
	Context map[string]any
}

// Info is a summary of a registered task for listing.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Func adapts a plain function to the Task interface.
type Func struct {
	name string
	desc string
	fn   func(ctx context.Context, in Input) (any, error)
}

// NewFunc wraps a function as a Task.
func NewFunc(name, desc string, fn func(ctx context.Context, in Input) (any, error)) *Func {
	return &Func{name: name, desc: desc, fn: fn}
}

func (f *Func) Name() string     { return f.name }
func (f *Func) Describe() string { return f.desc }

func (f *Func) Run(ctx context.Context, in Input) (any, error) {
	return f.fn(ctx, in)
}

// Group is a capability group: a set of named entry points plus an optional
// default used when the group is invoked unqualified.
type Group struct {
	name    string
	def     Task
	symbols map[string]Task
}

// NewGroup creates a capability group. The default entry point may be nil
// when the group is only addressable through qualified names.
func NewGroup(name string, def Task, symbols ...Task) *Group {
	g := &Group{
		name:    name,
		def:     def,
		symbols: make(map[string]Task, len(symbols)+1),
	}
	if def != nil {
		g.symbols[def.Name()] = def
	}
	for _, t := range symbols {
		g.symbols[t.Name()] = t
	}
	return g
}

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// Default returns the entry point used for unqualified invocation.
func (g *Group) Default() Task { return g.def }

// Symbol looks up a named entry point within the group.
func (g *Group) Symbol(name string) (Task, bool) {
	t, ok := g.symbols[name]
	return t, ok
}

// Symbols returns the entry point names in sorted order.
func (g *Group) Symbols() []string {
	names := make([]string, 0, len(g.symbols))
	for n := range g.symbols {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// GetString reads a string kwarg, with ok reporting presence and type match.
func (in Input) GetString(key string) (string, bool) {
	v, ok := in.Kwargs[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetBool reads a boolean kwarg, defaulting to def when absent or mistyped.
func (in Input) GetBool(key string, def bool) bool {
	v, ok := in.Kwargs[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}
