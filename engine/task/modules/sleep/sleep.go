// Package sleep provides the "sleep" task kind, which waits for a duration.
package sleep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/compozy/taskdef/engine/task"
	"github.com/compozy/taskdef/engine/task/registry"
)

const (
	ModuleID    = "sleep"
	DurationKey = "sleep"
)

func New(decoder *task.NodeDecoder) *registry.Module {
	return &registry.Module{
		ID:        ModuleID,
		Handler:   Handle,
		Match:     Match,
		ParseNode: parseNode(decoder),
	}
}

func Match(t *task.Task) bool {
	_, err := duration(t)
	return err == nil
}

func parseNode(decoder *task.NodeDecoder) func(registry.Node) (*task.Task, error) {
	return func(node registry.Node) (*task.Task, error) {
		if _, ok := node[DurationKey]; !ok {
			return nil, nil
		}
		t, err := decoder.Decode(node)
		if err != nil {
			return nil, err
		}
		d, err := duration(t)
		if err != nil {
			return nil, err
		}
		t.Set(DurationKey, d)
		return t, nil
	}
}

func Handle(ctx context.Context, ec *task.ExecutionContext) (task.Status, error) {
	d, err := duration(ec.Task)
	if err != nil {
		return task.StatusError, err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		ec.SetOutput("slept", d.String())
		return task.StatusOK, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return task.StatusCancelled, ctx.Err()
		}
		return task.StatusError, ctx.Err()
	}
}

func duration(t *task.Task) (time.Duration, error) {
	v, ok := t.Get(DurationKey)
	if !ok {
		return 0, fmt.Errorf("%s is required", DurationKey)
	}
	d, err := task.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", DurationKey, err)
	}
	return d, nil
}
