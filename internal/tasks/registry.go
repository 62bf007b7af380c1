package tasks

import (
	"sort"
	"strings"
	"sync"

	"github.com/conveyor-engine/conveyor/pkg/schema"
)

// Registry maps task names to capabilities. It is populated during startup
// and read-only for the duration of a pipeline run; resolution happens at
// dispatch time, not at load time.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]Task
	groups map[string]*Group
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks:  make(map[string]Task),
		groups: make(map[string]*Group),
	}
}

// Register stores a task under its name. The last registration for a given
// name wins, silently overwriting any previous one.
func (r *Registry) Register(task Task) error {
	if task == nil {
		return schema.NewError(schema.ErrCodeValidation, "task is nil")
	}
	name := task.Name()
	if name == "" {
		return schema.NewError(schema.ErrCodeValidation, "task name is empty")
	}
	if strings.Contains(name, ":") {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"task name %q must not be qualified; register a group instead", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[name] = task
	return nil
}

// RegisterGroup stores a capability group under its name, overwriting any
// previous group with that name.
func (r *Registry) RegisterGroup(g *Group) error {
	if g == nil {
		return schema.NewError(schema.ErrCodeValidation, "group is nil")
	}
	if g.Name() == "" {
		return schema.NewError(schema.ErrCodeValidation, "group name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[g.Name()] = g
	return nil
}

// Resolve returns the capability registered under name. A qualified name
// "group:symbol" resolves the group first, then the symbol inside it; an
// unqualified name resolves a flat task, falling back to a group's default
// entry point.
func (r *Registry) Resolve(name string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if group, symbol, ok := strings.Cut(name, ":"); ok {
		g, found := r.groups[group]
		if !found {
			return nil, schema.NewErrorf(schema.ErrCodeTaskResolution,
				"capability group %q not registered", group).
				WithDetails(map[string]any{"name": name, "available_groups": r.groupNames()})
		}
		t, found := g.Symbol(symbol)
		if !found {
			return nil, schema.NewErrorf(schema.ErrCodeTaskResolution,
				"symbol %q not found in group %q", symbol, group).
				WithDetails(map[string]any{"name": name, "available_symbols": g.Symbols()})
		}
		return t, nil
	}

	if t, ok := r.tasks[name]; ok {
		return t, nil
	}
	if g, ok := r.groups[name]; ok {
		if g.Default() != nil {
			return g.Default(), nil
		}
		return nil, schema.NewErrorf(schema.ErrCodeTaskResolution,
			"group %q has no default entry point; use %s:<symbol>", name, name).
			WithDetails(map[string]any{"available_symbols": g.Symbols()})
	}

	return nil, schema.NewErrorf(schema.ErrCodeTaskResolution,
		"task %q not registered", name).
		WithDetails(map[string]any{"available": r.taskNames()})
}

// Has checks whether a name resolves without returning the capability.
func (r *Registry) Has(name string) bool {
	_, err := r.Resolve(name)
	return err == nil
}

// Count returns the number of flat tasks plus groups.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks) + len(r.groups)
}

// List returns info for all registered tasks and group entry points,
// sorted by name. Group symbols appear qualified.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.tasks)+len(r.groups))
	for name, t := range r.tasks {
		infos = append(infos, Info{Name: name, Description: t.Describe()})
	}
	for name, g := range r.groups {
		for _, sym := range g.Symbols() {
			t, _ := g.Symbol(sym)
			infos = append(infos, Info{Name: name + ":" + sym, Description: t.Describe()})
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

func (r *Registry) taskNames() []string {
	names := make([]string, 0, len(r.tasks))
	for n := range r.tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) groupNames() []string {
	names := make([]string, 0, len(r.groups))
	for n := range r.groups {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
