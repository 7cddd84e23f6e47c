package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/compozy/taskdef/engine/core"
	"github.com/compozy/taskdef/engine/task"
	"github.com/compozy/taskdef/engine/task/registry"
)

const kindKey = "kind"

// testModules registers handlers selected by the "kind" extra field.
func testModules(t *testing.T, handlers map[string]task.Handler) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for id, h := range handlers {
		moduleID := id
		require.NoError(t, reg.RegisterTask(&registry.Module{
			ID:      moduleID,
			Handler: h,
			Match: func(tk *task.Task) bool {
				v, _ := tk.GetString(kindKey)
				return v == moduleID
			},
		}))
	}
	return reg
}

func okHandler(_ context.Context, ec *task.ExecutionContext) (task.Status, error) {
	ec.SetOutput("id", ec.Task.ID)
	return task.StatusOK, nil
}

func failHandler(context.Context, *task.ExecutionContext) (task.Status, error) {
	return task.StatusError, errors.New("boom")
}

func blockHandler(ctx context.Context, _ *task.ExecutionContext) (task.Status, error) {
	<-ctx.Done()
	return task.StatusCancelled, ctx.Err()
}

func collection(t *testing.T, tasks ...*task.Task) *task.Collection {
	t.Helper()
	c, err := task.NewCollection(tasks...)
	require.NoError(t, err)
	return c
}

func newTestRunner(t *testing.T, opts ...Option) (*Runner, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	reg := testModules(t, map[string]task.Handler{"ok": okHandler, "fail": failHandler, "block": blockHandler})
	opts = append(opts, WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))))
	r, err := New(reg, opts...)
	require.NoError(t, err)
	return r, reader
}

func kind(k string) task.Option {
	return task.WithExtra(kindKey, k)
}

func statuses(rep *Report) []task.Status {
	out := make([]task.Status, len(rep.Results))
	for i, res := range rep.Results {
		out[i] = res.Status
	}
	return out
}

func TestRunner_Run(t *testing.T) {
	t.Run("Should run tasks in order and share outputs", func(t *testing.T) {
		r, _ := newTestRunner(t)
		var seen map[string]any
		check := task.Func(func(s *task.States) bool {
			seen = s.Outputs
			return true
		})
		c := collection(t,
			task.New(task.WithName("a"), kind("ok")),
			task.New(task.WithName("b"), kind("ok"), task.WithNeeds("a"), task.WithIf(check)),
		)
		rep, err := r.Run(t.Context(), c)
		require.NoError(t, err)
		assert.Equal(t, []task.Status{task.StatusOK, task.StatusOK}, statuses(rep))
		assert.Equal(t, map[string]any{"a": map[string]any{"id": "a"}}, seen)
		b, ok := rep.Result("b")
		require.True(t, ok)
		assert.Equal(t, map[string]any{"id": "b"}, b.Outputs)
		assert.False(t, rep.Failed())
	})

	t.Run("Should skip tasks whose condition is false", func(t *testing.T) {
		r, _ := newTestRunner(t)
		c := collection(t,
			task.New(task.WithName("a"), kind("ok"), task.WithIf(task.Value(false))),
			task.New(task.WithName("b"), kind("ok"), task.WithNeeds("a")),
		)
		rep, err := r.Run(t.Context(), c)
		require.NoError(t, err)
		assert.Equal(t, []task.Status{task.StatusSkipped, task.StatusSkipped}, statuses(rep))
	})

	t.Run("Should evaluate CEL conditions against the environment", func(t *testing.T) {
		eval, err := task.NewCELEvaluator()
		require.NoError(t, err)
		t.Cleanup(eval.Close)
		cond, err := eval.Condition(`env.STAGE == "prod"`)
		require.NoError(t, err)
		r, _ := newTestRunner(t, WithEvaluator(eval), WithEnv(core.EnvMap{"STAGE": "dev"}))
		prodEnv := "prod"
		c := collection(t,
			task.New(task.WithName("base"), kind("ok"), task.WithIf(cond)),
			task.New(task.WithName("override"), kind("ok"), task.WithIf(cond),
				task.WithEnv(map[string]*string{"STAGE": &prodEnv})),
		)
		rep, err := r.Run(t.Context(), c)
		require.NoError(t, err)
		assert.Equal(t, []task.Status{task.StatusSkipped, task.StatusOK}, statuses(rep))
	})

	t.Run("Should stop after a failure and skip the rest", func(t *testing.T) {
		r, _ := newTestRunner(t)
		c := collection(t,
			task.New(task.WithName("a"), kind("fail")),
			task.New(task.WithName("b"), kind("ok")),
		)
		rep, err := r.Run(t.Context(), c)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTaskFailed)
		assert.Equal(t, ErrCodeTaskFailed, core.ErrorCode(err))
		assert.Equal(t, []task.Status{task.StatusError, task.StatusSkipped}, statuses(rep))
		a, _ := rep.Result("a")
		assert.EqualError(t, a.Err, "boom")
		assert.True(t, rep.Failed())
	})

	t.Run("Should continue after a failure when allowed", func(t *testing.T) {
		r, _ := newTestRunner(t)
		c := collection(t,
			task.New(task.WithName("a"), kind("fail"), task.WithContinueOnError(task.Value(true))),
			task.New(task.WithName("b"), kind("ok")),
			task.New(task.WithName("c"), kind("ok"), task.WithNeeds("a")),
		)
		rep, err := r.Run(t.Context(), c)
		require.NoError(t, err)
		assert.Equal(t, []task.Status{task.StatusError, task.StatusOK, task.StatusSkipped}, statuses(rep))
	})

	t.Run("Should use the runner default for continue_on_error", func(t *testing.T) {
		r, _ := newTestRunner(t, WithContinueOnError(true))
		c := collection(t,
			task.New(task.WithName("a"), kind("fail")),
			task.New(task.WithName("b"), kind("ok")),
		)
		rep, err := r.Run(t.Context(), c)
		require.NoError(t, err)
		assert.Equal(t, []task.Status{task.StatusError, task.StatusOK}, statuses(rep))
	})

	t.Run("Should fail tasks that exceed their timeout", func(t *testing.T) {
		r, _ := newTestRunner(t)
		c := collection(t, task.New(task.WithName("slow"), kind("block"), task.WithTimeout(task.Value(10*time.Millisecond))))
		rep, err := r.Run(t.Context(), c)
		require.Error(t, err)
		res, _ := rep.Result("slow")
		assert.Equal(t, task.StatusError, res.Status)
		assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
		assert.Contains(t, res.Err.Error(), "timed out")
	})

	t.Run("Should apply the default timeout", func(t *testing.T) {
		r, _ := newTestRunner(t, WithDefaultTimeout(10*time.Millisecond), WithContinueOnError(true))
		c := collection(t, task.New(task.WithName("slow"), kind("block")))
		rep, err := r.Run(t.Context(), c)
		require.NoError(t, err)
		assert.Equal(t, []task.Status{task.StatusError}, statuses(rep))
	})

	t.Run("Should mark remaining tasks cancelled when the context ends", func(t *testing.T) {
		r, _ := newTestRunner(t)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		c := collection(t, task.New(task.WithName("a"), kind("ok")), task.New(task.WithName("b"), kind("ok")))
		rep, err := r.Run(ctx, c)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []task.Status{task.StatusCancelled, task.StatusCancelled}, statuses(rep))
	})

	t.Run("Should fail tasks no module handles", func(t *testing.T) {
		r, _ := newTestRunner(t)
		c := collection(t, task.New(task.WithName("orphan")))
		rep, err := r.Run(t.Context(), c)
		require.Error(t, err)
		res, _ := rep.Result("orphan")
		assert.ErrorIs(t, res.Err, registry.ErrModuleNotFound)
	})
}

func TestRunner_RunTask(t *testing.T) {
	t.Run("Should ignore needs and expose Eval to handlers", func(t *testing.T) {
		eval, err := task.NewCELEvaluator()
		require.NoError(t, err)
		t.Cleanup(eval.Close)
		reg := registry.New()
		require.NoError(t, reg.RegisterTask(&registry.Module{
			ID: "eval",
			Handler: func(ctx context.Context, ec *task.ExecutionContext) (task.Status, error) {
				v, err := ec.Eval(ctx, `outputs.prev.n + 1`)
				if err != nil {
					return task.StatusError, err
				}
				ec.SetOutput("n", v)
				return task.StatusOK, nil
			},
			Match: func(*task.Task) bool { return true },
		}))
		r, err := New(reg, WithEvaluator(eval))
		require.NoError(t, err)
		res := r.RunTask(t.Context(), task.New(task.WithID("next"), task.WithNeeds("prev")),
			map[string]any{"prev": map[string]any{"n": 1}})
		require.Equal(t, task.StatusOK, res.Status)
		assert.EqualValues(t, 2, res.Outputs["n"])
	})
}

func TestRunner_Metrics(t *testing.T) {
	t.Run("Should record executions, durations and runs", func(t *testing.T) {
		r, reader := newTestRunner(t, WithContinueOnError(true))
		c := collection(t,
			task.New(task.WithName("a"), kind("ok")),
			task.New(task.WithName("b"), kind("fail")),
			task.New(task.WithName("c"), kind("ok"), task.WithNeeds("b")),
		)
		_, err := r.Run(t.Context(), c)
		require.NoError(t, err)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(t.Context(), &rm))
		sums := map[string]int64{}
		histograms := map[string]uint64{}
		for _, scope := range rm.ScopeMetrics {
			for _, m := range scope.Metrics {
				switch data := m.Data.(type) {
				case metricdata.Sum[int64]:
					for _, dp := range data.DataPoints {
						sums[m.Name] += dp.Value
					}
				case metricdata.Histogram[float64]:
					for _, dp := range data.DataPoints {
						histograms[m.Name] += dp.Count
					}
				}
			}
		}
		assert.Equal(t, int64(3), sums[metricExecutions])
		assert.Equal(t, int64(1), sums[metricRuns])
		assert.Equal(t, uint64(2), histograms[metricDuration])
	})
}
