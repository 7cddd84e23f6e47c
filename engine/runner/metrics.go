package runner

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/taskdef/engine/task"
)

const (
	meterName = "taskdef.runner"

	metricExecutions = "taskdef_task_executions_total"
	metricDuration   = "taskdef_task_duration_seconds"
	metricRuns       = "taskdef_runs_total"

	moduleLabelNone = "none"
)

// Bucket boundaries in seconds, from quick shell steps to long builds.
var durationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300}

type recorder struct {
	executions metric.Int64Counter
	duration   metric.Float64Histogram
	runs       metric.Int64Counter
}

func newRecorder(meter metric.Meter) (*recorder, error) {
	executions, err := meter.Int64Counter(
		metricExecutions,
		metric.WithDescription("Task executions by final status and module"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create executions counter: %w", err)
	}
	duration, err := meter.Float64Histogram(
		metricDuration,
		metric.WithDescription("Time from task start to end"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	runs, err := meter.Int64Counter(
		metricRuns,
		metric.WithDescription("Collection runs by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runs counter: %w", err)
	}
	return &recorder{executions: executions, duration: duration, runs: runs}, nil
}

func (r *recorder) recordResult(ctx context.Context, res *task.Result, module string) {
	if module == "" {
		module = moduleLabelNone
	}
	attrs := metric.WithAttributes(
		attribute.String("status", res.Status.String()),
		attribute.String("module", module),
	)
	r.executions.Add(ctx, 1, attrs)
	if res.Status != task.StatusSkipped {
		r.duration.Record(ctx, res.Duration().Seconds(), attrs)
	}
}

func (r *recorder) recordRun(ctx context.Context, failed bool) {
	outcome := "success"
	if failed {
		outcome = "failure"
	}
	r.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
