// Package registry holds the ordered set of task modules. A module binds a
// task kind to its handler and, optionally, to a structural matcher and a
// node parser. Order is priority: lookups scan front to back and the first
// hit wins.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/compozy/taskdef/engine/core"
	"github.com/compozy/taskdef/engine/task"
)

const (
	ErrCodeInvalidModule  = "INVALID_MODULE"
	ErrCodeModuleNotFound = "MODULE_NOT_FOUND"
)

// UsesKey is the extra task field naming a module explicitly.
const UsesKey = "uses"

var ErrModuleNotFound = errors.New("no task module found")

// Node is a format-specific source node, already decoded into a generic map.
type Node map[string]any

// Module describes a task kind. Match and ParseNode are optional. ParseNode
// returns (nil, nil) when the node does not belong to the module; an error
// means the module claimed the node but could not build a task from it.
type Module struct {
	ID        string
	Handler   task.Handler
	Match     func(t *task.Task) bool
	ParseNode func(node Node) (*task.Task, error)
	Extra     map[string]any
}

func (m *Module) Validate() error {
	if m == nil {
		return core.NewError(errors.New("module is nil"), ErrCodeInvalidModule, nil)
	}
	if m.ID == "" {
		return core.NewError(errors.New("module id is required"), ErrCodeInvalidModule, nil)
	}
	if m.Handler == nil {
		return core.NewError(
			fmt.Errorf("module %q has no handler", m.ID),
			ErrCodeInvalidModule,
			map[string]any{"id": m.ID},
		)
	}
	return nil
}

// NodeMatch pairs a parsed task with the module that parsed it.
type NodeMatch struct {
	Module *Module
	Task   *task.Task
}

// Registry is an ordered list of modules. Create one at startup and pass it
// to every component that needs it; modules are shared, never copied.
type Registry struct {
	mu      sync.RWMutex
	modules []*Module
}

func New() *Registry {
	return &Registry{}
}

// RegisterTask replaces the module with the same id in place, or appends.
func (r *Registry) RegisterTask(m *Module) error {
	if err := m.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(m.ID); i >= 0 {
		r.modules[i] = m
		return nil
	}
	r.modules = append(r.modules, m)
	return nil
}

// PrependRegisterTask inserts m ahead of the module registered under id and
// reports whether that module was found. When it is first, m becomes first.
// When it sits at position i > 0, m is inserted at i-1. When id is unknown,
// m is appended and false is returned.
func (r *Registry) PrependRegisterTask(id string, m *Module) (bool, error) {
	if err := m.Validate(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch i := r.indexOf(id); {
	case i == 0:
		r.modules = slices.Insert(r.modules, 0, m)
		return true, nil
	case i > 0:
		r.modules = slices.Insert(r.modules, i-1, m)
		return true, nil
	default:
		r.modules = append(r.modules, m)
		return false, nil
	}
}

// FindTaskByNode returns the first module whose ParseNode yields a task.
// It returns (nil, nil) when no module claims the node.
func (r *Registry) FindTaskByNode(node Node) (*NodeMatch, error) {
	for _, m := range r.Modules() {
		if m.ParseNode == nil {
			continue
		}
		t, err := m.ParseNode(node)
		if err != nil {
			return nil, fmt.Errorf("module %q failed to parse node: %w", m.ID, err)
		}
		if t != nil {
			return &NodeMatch{Module: m, Task: t}, nil
		}
	}
	return nil, nil
}

// FindTaskByType returns the first module whose Match accepts t.
func (r *Registry) FindTaskByType(t *task.Task) (*Module, bool) {
	for _, m := range r.Modules() {
		if m.Match == nil {
			continue
		}
		if m.Match(t) {
			return m, true
		}
	}
	return nil, false
}

// FindTaskModule looks a module up by id.
func (r *Registry) FindTaskModule(id string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.modules[i], true
	}
	return nil, false
}

// ResolveModule picks the module for t: an explicit "uses" field names it
// directly, otherwise the first structural match wins.
func (r *Registry) ResolveModule(t *task.Task) (*Module, error) {
	if uses, ok := t.GetString(UsesKey); ok && uses != "" {
		if m, found := r.FindTaskModule(uses); found {
			return m, nil
		}
		return nil, core.NewError(
			fmt.Errorf("%w: %q", ErrModuleNotFound, uses),
			ErrCodeModuleNotFound,
			map[string]any{"task_id": t.ID, "uses": uses},
		)
	}
	if m, ok := r.FindTaskByType(t); ok {
		return m, nil
	}
	return nil, core.NewError(
		fmt.Errorf("%w for task %q", ErrModuleNotFound, t.ID),
		ErrCodeModuleNotFound,
		map[string]any{"task_id": t.ID},
	)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

// Modules returns the modules in priority order.
func (r *Registry) Modules() []*Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.modules)
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, len(r.modules))
	for i, m := range r.modules {
		ids[i] = m.ID
	}
	return ids
}

func (r *Registry) indexOf(id string) int {
	return slices.IndexFunc(r.modules, func(m *Module) bool {
		return m.ID == id
	})
}
