// Package resolve expands placeholder expressions inside step parameters
// against the merged variables-and-context namespace, with environment
// reference expansion as a secondary pass.
package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// errUnresolved marks any placeholder failure inside a template. The caller
// falls back to the original text; it is never surfaced to pipeline authors.
var errUnresolved = errors.New("unresolved placeholder")

// Resolver walks arbitrary values and substitutes {name} placeholders in
// strings. Context entries take precedence over declared variables on key
// collision. A template whose substitution fails in any way is returned
// verbatim; environment expansion is still attempted on the original text.
// That silent fallback is a deliberate contract: pipeline authors may rely
// on literal templates surviving unresolved.
type Resolver struct {
	// lookupEnv allows tests to stub the process environment.
	lookupEnv func(string) (string, bool)
}

// New creates a Resolver bound to the process environment.
func New() *Resolver {
	return &Resolver{lookupEnv: os.LookupEnv}
}

// NewWithEnv creates a Resolver with a custom environment lookup.
func NewWithEnv(lookup func(string) (string, bool)) *Resolver {
	return &Resolver{lookupEnv: lookup}
}

// Resolve recursively resolves a value. Sequences and mappings come back in
// the same shape with every element resolved; strings are treated as
// templates; anything else passes through unchanged.
func (r *Resolver) Resolve(value any, vars, ctx map[string]any) any {
	ns := mergeNamespace(vars, ctx)
	return r.resolveValue(value, ns)
}

func (r *Resolver) resolveValue(value any, ns map[string]any) any {
	switch v := value.(type) {
	case string:
		return r.resolveString(v, ns)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = r.resolveValue(val, ns)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, val := range v {
			out[k] = r.resolveString(val, ns)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = r.resolveValue(val, ns)
		}
		return out
	case []string:
		out := make([]string, len(v))
		for i, val := range v {
			out[i] = r.resolveString(val, ns)
		}
		return out
	default:
		return value
	}
}

// resolveString expands {name} placeholders, falling back to the original
// text on any failure, then expands environment references on the result.
func (r *Resolver) resolveString(s string, ns map[string]any) string {
	out, err := expandPlaceholders(s, ns)
	if err != nil {
		out = s
	}
	return r.expandEnv(out)
}

// expandPlaceholders substitutes {name} tokens from the namespace.
// "{{" and "}}" escape to literal braces. Any malformed token or unknown
// name fails the whole template.
func expandPlaceholders(s string, ns map[string]any) (string, error) {
	if !strings.ContainsAny(s, "{}") {
		return s, nil
	}

	var out strings.Builder
	out.Grow(len(s))

	i := 0
	for i < len(s) {
		c := s[i]
		switch c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				out.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(s[i+1:], '}')
			if end == -1 {
				return "", errUnresolved
			}
			name := s[i+1 : i+1+end]
			if !validPlaceholderName(name) {
				return "", errUnresolved
			}
			val, ok := ns[name]
			if !ok {
				return "", errUnresolved
			}
			out.WriteString(stringify(val))
			i += end + 2
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				out.WriteByte('}')
				i += 2
				continue
			}
			return "", errUnresolved
		default:
			out.WriteByte(c)
			i++
		}
	}

	return out.String(), nil
}

func validPlaceholderName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}

// expandEnv substitutes $NAME and ${NAME} references. References to unset
// variables are left untouched rather than replaced with an empty string.
func (r *Resolver) expandEnv(s string) string {
	if !strings.ContainsRune(s, '$') {
		return s
	}

	var out strings.Builder
	out.Grow(len(s))

	i := 0
	for i < len(s) {
		if s[i] != '$' || i+1 >= len(s) {
			out.WriteByte(s[i])
			i++
			continue
		}

		if s[i+1] == '{' {
			end := strings.IndexByte(s[i+2:], '}')
			if end == -1 {
				out.WriteString(s[i:])
				break
			}
			name := s[i+2 : i+2+end]
			if val, ok := r.lookupEnv(name); ok && name != "" {
				out.WriteString(val)
			} else {
				out.WriteString(s[i : i+2+end+1])
			}
			i += end + 3
			continue
		}

		j := i + 1
		for j < len(s) && isEnvNameByte(s[j]) {
			j++
		}
		if j == i+1 {
			out.WriteByte('$')
			i++
			continue
		}
		name := s[i+1 : j]
		if val, ok := r.lookupEnv(name); ok {
			out.WriteString(val)
		} else {
			out.WriteString(s[i:j])
		}
		i = j
	}

	return out.String()
}

func isEnvNameByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// stringify converts a resolved value into its inline text representation.
// Scalars use their natural text form; containers are embedded as JSON.
func stringify(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case nil:
		return "null"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprintf("%v", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// mergeNamespace overlays the live context onto the declared variables.
func mergeNamespace(vars, ctx map[string]any) map[string]any {
	ns := make(map[string]any, len(vars)+len(ctx))
	for k, v := range vars {
		ns[k] = v
	}
	for k, v := range ctx {
		ns[k] = v
	}
	return ns
}
