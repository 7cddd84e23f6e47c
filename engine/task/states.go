package task

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/compozy/taskdef/pkg/logger"
)

// Meta is the descriptive subset of a Task exposed to attribute resolvers.
type Meta struct {
	ID          string             `json:"id,omitempty"`
	Name        string             `json:"name,omitempty"`
	Description string             `json:"description,omitempty"`
	Needs       []string           `json:"needs,omitempty"`
	Env         map[string]*string `json:"env,omitempty"`
	Extra       map[string]any     `json:"extra,omitempty"`
}

// States is the read-only snapshot handed to attribute resolvers. It is
// built by the execution engine at resolution time.
type States struct {
	Env     map[string]*string
	Secrets map[string]*string
	Outputs map[string]any
	Task    Meta
}

func (s *States) EnvValue(key string) (string, bool) {
	return lookup(s.Env, key)
}

func (s *States) Secret(key string) (string, bool) {
	return lookup(s.Secrets, key)
}

// Activation renders the snapshot as expression variables: env, secrets,
// outputs and task. Absent env and secret values are omitted.
func (s *States) Activation() map[string]any {
	task := map[string]any{
		"id":          s.Task.ID,
		"name":        s.Task.Name,
		"description": s.Task.Description,
		"needs":       slices.Clone(s.Task.Needs),
		"env":         flatten(s.Task.Env),
	}
	for k, v := range s.Task.Extra {
		if _, reserved := task[k]; !reserved {
			task[k] = v
		}
	}
	outputs := s.Outputs
	if outputs == nil {
		outputs = map[string]any{}
	}
	return map[string]any{
		"env":     flatten(s.Env),
		"secrets": flatten(s.Secrets),
		"outputs": outputs,
		"task":    task,
	}
}

// Handler executes a task. The context carries cancellation and deadline.
type Handler func(ctx context.Context, ec *ExecutionContext) (Status, error)

// EvalFunc evaluates an expression against the current execution states.
type EvalFunc func(ctx context.Context, code string) (any, error)

// ExecutionContext is what a Handler sees. Task shadows States.Task: the
// former is the full task, the latter its metadata.
type ExecutionContext struct {
	States
	Task *Task
	Bus  logger.Logger
	Eval EvalFunc

	mu      sync.Mutex
	outputs map[string]any
}

// SetOutput records an output value for the running task.
func (ec *ExecutionContext) SetOutput(key string, value any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.outputs == nil {
		ec.outputs = make(map[string]any)
	}
	ec.outputs[key] = value
}

// TaskOutputs returns a copy of the outputs recorded so far, or nil.
func (ec *ExecutionContext) TaskOutputs() map[string]any {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.outputs == nil {
		return nil
	}
	return maps.Clone(ec.outputs)
}

// Logger returns the bus, or the default logger when none was provided.
func (ec *ExecutionContext) Logger() logger.Logger {
	if ec.Bus != nil {
		return ec.Bus
	}
	return logger.GetDefault()
}

func lookup(m map[string]*string, key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

func flatten(m map[string]*string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v != nil {
			out[k] = *v
		}
	}
	return out
}
