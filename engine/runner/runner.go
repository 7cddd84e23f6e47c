// Package runner executes task collections. It is the component that
// resolves task attributes against live states: tasks run one after another
// in collection order, and a task whose needs did not all end ok is skipped.
package runner

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/taskdef/engine/core"
	"github.com/compozy/taskdef/engine/task"
	"github.com/compozy/taskdef/engine/task/registry"
	"github.com/compozy/taskdef/pkg/logger"
)

const ErrCodeTaskFailed = "TASK_FAILED"

var ErrTaskFailed = errors.New("task failed")

type Runner struct {
	registry        *registry.Registry
	eval            *task.CELEvaluator
	defaultTimeout  time.Duration
	continueOnError bool
	env             core.EnvMap
	secrets         core.EnvMap
	meterProvider   metric.MeterProvider
	metrics         *recorder
}

type Option func(*Runner)

// WithEvaluator provides the expression evaluator handed to handlers.
func WithEvaluator(eval *task.CELEvaluator) Option {
	return func(r *Runner) {
		r.eval = eval
	}
}

// WithDefaultTimeout applies to tasks that declare no timeout. Zero means none.
func WithDefaultTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.defaultTimeout = d
	}
}

// WithContinueOnError is the fallback for tasks that do not declare
// continue_on_error.
func WithContinueOnError(enabled bool) Option {
	return func(r *Runner) {
		r.continueOnError = enabled
	}
}

// WithEnv sets the base environment; task env entries take precedence.
func WithEnv(env core.EnvMap) Option {
	return func(r *Runner) {
		r.env = env
	}
}

func WithSecrets(secrets core.EnvMap) Option {
	return func(r *Runner) {
		r.secrets = secrets
	}
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(r *Runner) {
		r.meterProvider = mp
	}
}

func New(reg *registry.Registry, opts ...Option) (*Runner, error) {
	r := &Runner{registry: reg}
	for _, opt := range opts {
		opt(r)
	}
	if r.meterProvider == nil {
		r.meterProvider = otel.GetMeterProvider()
	}
	rec, err := newRecorder(r.meterProvider.Meter(meterName))
	if err != nil {
		return nil, err
	}
	r.metrics = rec
	return r, nil
}

// Report holds one result per task, in collection order.
type Report struct {
	Results []*task.Result
	byID    map[string]*task.Result
}

// Result returns the result of the task indexed under id.
func (rep *Report) Result(id string) (*task.Result, bool) {
	res, ok := rep.byID[id]
	return res, ok
}

func (rep *Report) Failed() bool {
	for _, res := range rep.Results {
		if res.Failed() {
			return true
		}
	}
	return false
}

// Counts tallies results by status.
func (rep *Report) Counts() map[task.Status]int {
	counts := make(map[task.Status]int)
	for _, res := range rep.Results {
		counts[res.Status]++
	}
	return counts
}

func (rep *Report) add(res *task.Result) {
	rep.Results = append(rep.Results, res)
	rep.byID[res.Task.ID] = res
}

// Run executes every task of the collection. The returned error is set when
// a failing task stopped the run or the context ended it; the report is
// complete either way, with tasks that never ran marked skipped or cancelled.
func (r *Runner) Run(ctx context.Context, tasks *task.Collection) (*Report, error) {
	log := logger.FromContext(ctx)
	report := &Report{byID: make(map[string]*task.Result, tasks.Len())}
	outputs := make(map[string]any, tasks.Len())
	var runErr error
	for t := range tasks.All() {
		var res *task.Result
		switch {
		case ctx.Err() != nil:
			res = task.NewResult(t).End(task.StatusCancelled, nil, ctx.Err())
			r.metrics.recordResult(ctx, res, "")
		case runErr != nil:
			res = task.NewResult(t).End(task.StatusSkipped, nil, "run aborted")
			r.metrics.recordResult(ctx, res, "")
		default:
			var stop bool
			res, stop = r.step(ctx, t, report, outputs)
			if stop {
				runErr = core.NewError(
					fmt.Errorf("%w: %s: %w", ErrTaskFailed, t.ID, res.Err),
					ErrCodeTaskFailed,
					map[string]any{"task_id": t.ID, "status": res.Status.String()},
				)
			}
		}
		report.add(res)
		if res.Outputs != nil {
			outputs[t.ID] = res.Outputs
		}
	}
	if runErr == nil && ctx.Err() != nil {
		runErr = fmt.Errorf("run interrupted: %w", ctx.Err())
	}
	r.metrics.recordRun(ctx, runErr != nil || report.Failed())
	counts := report.Counts()
	log.Info("Run finished",
		"tasks", len(report.Results),
		"ok", counts[task.StatusOK],
		"failed", counts[task.StatusError]+counts[task.StatusCancelled],
		"skipped", counts[task.StatusSkipped],
	)
	return report, runErr
}

// step runs t unless one of its needs did not end ok, and reports whether
// the run must stop.
func (r *Runner) step(
	ctx context.Context,
	t *task.Task,
	report *Report,
	outputs map[string]any,
) (*task.Result, bool) {
	for _, need := range t.Needs {
		dep, ok := report.Result(need)
		if !ok || dep.Status != task.StatusOK {
			res := task.NewResult(t).End(task.StatusSkipped, nil, fmt.Sprintf("dependency %q did not succeed", need))
			r.metrics.recordResult(ctx, res, "")
			logger.FromContext(ctx).Info("Skipping task", "task_id", t.ID, "need", need)
			return res, false
		}
	}
	res, module := r.execute(ctx, t, maps.Clone(outputs))
	r.metrics.recordResult(ctx, res, module)
	if !res.Failed() {
		return res, false
	}
	cont, err := t.ContinueOnError.ResolveOr(ctx, r.states(t, outputs), r.continueOnError)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to resolve continue_on_error", "task_id", t.ID, "error", err)
		return res, true
	}
	return res, !cont
}

// RunTask executes a single task against the given outputs of earlier tasks.
// Needs are not checked.
func (r *Runner) RunTask(ctx context.Context, t *task.Task, outputs map[string]any) *task.Result {
	res, module := r.execute(ctx, t, outputs)
	r.metrics.recordResult(ctx, res, module)
	return res
}

func (r *Runner) execute(ctx context.Context, t *task.Task, outputs map[string]any) (*task.Result, string) {
	log := logger.FromContext(ctx).With("task_id", t.ID)
	res := task.NewResult(t)
	states := r.states(t, outputs)

	run, err := t.If.ResolveOr(ctx, states, true)
	if err != nil {
		return res.End(task.StatusError, nil, fmt.Errorf("failed to evaluate if: %w", err)), ""
	}
	if !run {
		log.Info("Condition not met, skipping task")
		return res.End(task.StatusSkipped, nil, "condition not met"), ""
	}
	timeout, err := t.Timeout.ResolveOr(ctx, states, r.defaultTimeout)
	if err != nil {
		return res.End(task.StatusError, nil, fmt.Errorf("failed to evaluate timeout: %w", err)), ""
	}
	module, err := r.registry.ResolveModule(t)
	if err != nil {
		return res.End(task.StatusError, nil, err), ""
	}

	taskCtx := logger.ContextWithLogger(ctx, log)
	if timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(taskCtx, timeout)
		defer cancel()
	}
	ec := &task.ExecutionContext{States: *states, Task: t, Bus: log}
	if r.eval != nil {
		ec.Eval = r.eval.EvalFunc(states)
	}

	log.Info("Starting task", "module", module.ID)
	res.Start()
	status, herr := module.Handler(taskCtx, ec)
	if errors.Is(taskCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		status = task.StatusError
		herr = fmt.Errorf("task timed out after %s: %w", timeout, context.DeadlineExceeded)
	}
	if herr != nil && !status.IsFailure() {
		status = task.StatusError
	}
	res.End(status, ec.TaskOutputs(), herr)
	if res.Failed() {
		log.Error("Task failed", "status", res.Status, "error", res.Err, "duration", res.Duration())
	} else {
		log.Info("Task finished", "status", res.Status, "duration", res.Duration())
	}
	return res, module.ID
}

func (r *Runner) states(t *task.Task, outputs map[string]any) *task.States {
	env := r.env.Pointers()
	for k, v := range t.Env {
		if v == nil {
			delete(env, k)
			continue
		}
		env[k] = v
	}
	return &task.States{
		Env:     env,
		Secrets: r.secrets.Pointers(),
		Outputs: outputs,
		Task:    t.Meta(),
	}
}
