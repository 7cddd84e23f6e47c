package cli

import (
	"context"
	"fmt"

	"github.com/compozy/taskdef/engine/task"
	"github.com/compozy/taskdef/engine/task/modules"
	"github.com/compozy/taskdef/engine/task/registry"
	"github.com/compozy/taskdef/engine/taskfile"
	"github.com/compozy/taskdef/pkg/config"
)

// app holds the process-wide components a command needs. The registry is
// created once here and passed to everything that uses it.
type app struct {
	cfg      *config.Config
	eval     *task.CELEvaluator
	registry *registry.Registry
	loader   *taskfile.Loader
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.FromContext(ctx)
	eval, err := task.NewCELEvaluator(
		task.WithCostLimit(cfg.CEL.CostLimit),
		task.WithCacheSize(cfg.CEL.CacheSize),
	)
	if err != nil {
		return nil, err
	}
	reg := registry.New()
	if err := modules.RegisterBuiltins(reg, task.NewNodeDecoder(eval)); err != nil {
		eval.Close()
		return nil, fmt.Errorf("failed to register modules: %w", err)
	}
	return &app{
		cfg:      cfg,
		eval:     eval,
		registry: reg,
		loader:   taskfile.NewLoader(reg, taskfile.WithYAMLMode(cfg.Tasks.YAMLMode)),
	}, nil
}

func (a *app) Close() {
	a.eval.Close()
}
