package engine

import "strings"

// VarsKey is the reserved context key holding the declared variables map.
// It is set once at run start and never targeted by Set or Merge.
const VarsKey = "__vars__"

// MaskToken replaces the value of any secret-looking key in diagnostic
// snapshots.
const MaskToken = "***"

// Context is the mutable key/value store threaded through one pipeline run.
// It is owned by the Runner, passed by reference to the step executor, and
// discarded when the run ends. Execution is single-threaded, so no locking
// is needed.
type Context struct {
	data map[string]any
}

// NewContext creates a run context holding the declared variables under the
// reserved key.
func NewContext(vars map[string]any) *Context {
	if vars == nil {
		vars = make(map[string]any)
	}
	return &Context{data: map[string]any{VarsKey: vars}}
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

// Set stores a value under key. Writes to the reserved variables key are
// ignored.
func (c *Context) Set(key string, value any) {
	if key == VarsKey {
		return
	}
	c.data[key] = value
}

// Merge applies every entry of updates as an overwrite. No key ever
// implicitly disappears; the reserved variables key is never targeted.
func (c *Context) Merge(updates map[string]any) {
	for k, v := range updates {
		if k == VarsKey {
			continue
		}
		c.data[k] = v
	}
}

// Vars returns the declared variables map stored under the reserved key.
func (c *Context) Vars() map[string]any {
	if vars, ok := c.data[VarsKey].(map[string]any); ok {
		return vars
	}
	return nil
}

// Snapshot returns a shallow copy of the context. Update-mode capabilities
// receive this copy, so direct writes to it never reach the live context.
func (c *Context) Snapshot() map[string]any {
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// MaskedSnapshot returns a copy safe for diagnostic output: any key whose
// name contains "pass" (case-insensitive) has its value replaced with the
// mask token.
func (c *Context) MaskedSnapshot() map[string]any {
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		if strings.Contains(strings.ToLower(k), "pass") {
			out[k] = MaskToken
			continue
		}
		out[k] = v
	}
	return out
}

// Len returns the number of context entries, including the reserved key.
func (c *Context) Len() int {
	return len(c.data)
}
