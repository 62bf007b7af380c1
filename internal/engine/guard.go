package engine

import (
	"os"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/conveyor-engine/conveyor/internal/resolve"
	"github.com/conveyor-engine/conveyor/pkg/schema"
)

// GuardResult reports whether a step may run and, when skipped, why.
type GuardResult struct {
	Pass   bool
	Reason string
}

// GuardEvaluator evaluates step guard conditions. The operand of every
// guard kind passes through the variable resolver before the check.
// Compiled expressions are cached and reused across steps.
type GuardEvaluator struct {
	resolver *resolve.Resolver

	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewGuardEvaluator creates a guard evaluator backed by the given resolver.
func NewGuardEvaluator(resolver *resolve.Resolver) *GuardEvaluator {
	return &GuardEvaluator{
		resolver: resolver,
		cache:    make(map[string]*vm.Program),
	}
}

// Evaluate checks a step guard against the live context. A nil guard always
// passes. A false guard is a skip, never an error.
func (g *GuardEvaluator) Evaluate(guard *schema.Guard, pc *Context) (GuardResult, error) {
	if guard == nil {
		return GuardResult{Pass: true}, nil
	}

	if guard.FileExists != "" {
		path, _ := g.resolver.Resolve(guard.FileExists, pc.Vars(), pc.Snapshot()).(string)
		if _, err := os.Stat(path); err != nil {
			return GuardResult{Pass: false, Reason: "missing " + path}, nil
		}
	}

	if guard.Expr != "" {
		ok, err := g.evalExpr(guard.Expr, pc)
		if err != nil {
			return GuardResult{}, err
		}
		if !ok {
			return GuardResult{Pass: false, Reason: "expr " + guard.Expr + " is false"}, nil
		}
	}

	return GuardResult{Pass: true}, nil
}

// evalExpr evaluates a boolean expression over the merged vars+context
// namespace. Non-boolean results follow the usual truthiness of the
// expression language (nil is false).
func (g *GuardEvaluator) evalExpr(expression string, pc *Context) (bool, error) {
	prg, err := g.getOrCompile(expression)
	if err != nil {
		return false, err
	}

	env := pc.Snapshot()
	for k, v := range pc.Vars() {
		if _, exists := env[k]; !exists {
			env[k] = v
		}
	}
	delete(env, VarsKey)

	out, err := vm.Run(prg, env)
	if err != nil {
		return false, schema.NewErrorf(schema.ErrCodeConfig,
			"guard expr evaluation failed for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	b, ok := out.(bool)
	if !ok {
		return out != nil, nil
	}
	return b, nil
}

func (g *GuardEvaluator) getOrCompile(expression string) (*vm.Program, error) {
	g.mu.RLock()
	if prg, ok := g.cache[expression]; ok {
		g.mu.RUnlock()
		return prg, nil
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	if prg, ok := g.cache[expression]; ok {
		return prg, nil
	}

	prg, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeConfig,
			"guard expr compile error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	g.cache[expression] = prg
	return prg, nil
}
