// Package modules wires the built-in task kinds into a registry.
package modules

import (
	"github.com/compozy/taskdef/engine/task"
	"github.com/compozy/taskdef/engine/task/modules/shell"
	"github.com/compozy/taskdef/engine/task/modules/sleep"
	"github.com/compozy/taskdef/engine/task/registry"
)

// RegisterBuiltins registers the built-in modules in priority order.
func RegisterBuiltins(reg *registry.Registry, decoder *task.NodeDecoder) error {
	for _, m := range []*registry.Module{
		shell.New(decoder),
		sleep.New(decoder),
	} {
		if err := reg.RegisterTask(m); err != nil {
			return err
		}
	}
	return nil
}
