package task

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/cel-go/cel"
)

const (
	defaultCELCostLimit = 1000
	defaultCELCacheSize = 256
)

// CELEvaluator evaluates CEL expressions against task states. Expressions
// see the variables env, secrets, outputs and task (see States.Activation).
// Compiled programs are cached by expression text.
type CELEvaluator struct {
	env          *cel.Env
	costLimit    uint64
	cacheSize    int64
	programCache *ristretto.Cache[string, cel.Program]
}

type CELOption func(*CELEvaluator)

func WithCostLimit(limit uint64) CELOption {
	return func(e *CELEvaluator) {
		e.costLimit = limit
	}
}

func WithCacheSize(size int64) CELOption {
	return func(e *CELEvaluator) {
		if size > 0 {
			e.cacheSize = size
		}
	}
}

func NewCELEvaluator(opts ...CELOption) (*CELEvaluator, error) {
	e := &CELEvaluator{
		costLimit: defaultCELCostLimit,
		cacheSize: defaultCELCacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	env, err := cel.NewEnv(
		cel.Variable("env", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("secrets", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("outputs", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("task", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	e.env = env
	cache, err := ristretto.NewCache(&ristretto.Config[string, cel.Program]{
		NumCounters: e.cacheSize * 10,
		MaxCost:     e.cacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program cache: %w", err)
	}
	e.programCache = cache
	return e, nil
}

// Compile checks that expr is valid CEL without evaluating it.
func (e *CELEvaluator) Compile(expr string) error {
	_, err := e.program(expr)
	return err
}

// Eval evaluates expr and returns its native Go value.
func (e *CELEvaluator) Eval(ctx context.Context, expr string, data map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("CEL evaluation aborted: %w", err)
	}
	prg, err := e.program(expr)
	if err != nil {
		return nil, err
	}
	out, _, err := prg.ContextEval(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("CEL evaluation failed for %q: %w", expr, err)
	}
	return out.Value(), nil
}

// Evaluate evaluates a condition; the expression must yield a boolean.
func (e *CELEvaluator) Evaluate(ctx context.Context, expr string, data map[string]any) (bool, error) {
	v, err := e.Eval(ctx, expr, data)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression %q must return a boolean, got %T", expr, v)
	}
	return b, nil
}

// Condition turns expr into a boolean attribute evaluated against the
// states at resolution time.
func (e *CELEvaluator) Condition(expr string) (Attr[bool], error) {
	if err := e.Compile(expr); err != nil {
		return Attr[bool]{}, err
	}
	return AsyncFunc(func(ctx context.Context, states *States) (bool, error) {
		return e.Evaluate(ctx, expr, states.Activation())
	}), nil
}

// EvalFunc binds the evaluator to a states snapshot.
func (e *CELEvaluator) EvalFunc(states *States) EvalFunc {
	return func(ctx context.Context, code string) (any, error) {
		return e.Eval(ctx, code, states.Activation())
	}
}

func (e *CELEvaluator) Close() {
	e.programCache.Close()
}

func (e *CELEvaluator) program(expr string) (cel.Program, error) {
	if prg, ok := e.programCache.Get(expr); ok {
		return prg, nil
	}
	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("CEL compilation failed for %q: %w", expr, iss.Err())
	}
	prg, err := e.env.Program(ast,
		cel.CostLimit(e.costLimit),
		cel.InterruptCheckFrequency(100),
	)
	if err != nil {
		return nil, fmt.Errorf("CEL program creation failed for %q: %w", expr, err)
	}
	e.programCache.Set(expr, prg, 1)
	return prg, nil
}
