// Package taskfile loads task definitions from YAML files. Each entry under
// "tasks" is handed to the module registry, and the task of the first module
// that claims it is added to a collection in the YAML id dialect.
package taskfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/compozy/taskdef/engine/core"
	"github.com/compozy/taskdef/engine/task"
	"github.com/compozy/taskdef/engine/task/registry"
	"github.com/compozy/taskdef/pkg/logger"
)

const (
	ErrCodeRead          = "TASKFILE_READ_FAILED"
	ErrCodeSyntax        = "TASKFILE_SYNTAX_ERROR"
	ErrCodeInvalidTasks  = "TASKFILE_INVALID_TASKS"
	ErrCodeParseNode     = "TASKFILE_PARSE_FAILED"
	ErrCodeUnknownKind   = "TASKFILE_UNKNOWN_TASK_KIND"
	ErrCodeInvalidTaskID = "TASKFILE_INVALID_TASK_ID"
)

type fileSpec struct {
	Version string            `yaml:"version"`
	Env     map[string]string `yaml:"env"`
	Tasks   any               `yaml:"tasks"`
}

// Binding records which module produced a task.
type Binding struct {
	Task   *task.Task
	Module *registry.Module
}

type Document struct {
	Source   string
	Version  string
	Env      core.EnvMap
	Tasks    *task.Collection
	Bindings []Binding
}

// ModuleFor returns the module that parsed t.
func (d *Document) ModuleFor(t *task.Task) (*registry.Module, bool) {
	for _, b := range d.Bindings {
		if b.Task == t {
			return b.Module, true
		}
	}
	return nil, false
}

// UnknownNeeds maps task ids to the needs that name no task in the document.
func (d *Document) UnknownNeeds() map[string][]string {
	unknown := make(map[string][]string)
	for t := range d.Tasks.All() {
		for _, need := range t.Needs {
			if _, ok := d.Tasks.Get(need); !ok {
				unknown[t.ID] = append(unknown[t.ID], need)
			}
		}
	}
	return unknown
}

type Loader struct {
	registry *registry.Registry
	yamlMode bool
}

type Option func(*Loader)

// WithYAMLMode selects the id dialect of loaded collections. It defaults to true.
func WithYAMLMode(enabled bool) Option {
	return func(l *Loader) {
		l.yamlMode = enabled
	}
}

func NewLoader(reg *registry.Registry, opts ...Option) *Loader {
	l := &Loader{registry: reg, yamlMode: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) LoadFile(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewError(
			fmt.Errorf("failed to read task file: %w", err),
			ErrCodeRead,
			map[string]any{"source": path},
		)
	}
	return l.Load(ctx, path, data)
}

func (l *Loader) Load(ctx context.Context, source string, data []byte) (*Document, error) {
	log := logger.FromContext(ctx)
	var spec fileSpec
	if err := yaml.UnmarshalWithOptions(data, &spec, yaml.UseOrderedMap()); err != nil {
		return nil, core.NewError(
			errors.New(yaml.FormatError(err, false, true)),
			ErrCodeSyntax,
			map[string]any{"source": source},
		)
	}
	nodes, err := taskNodes(spec.Tasks)
	if err != nil {
		return nil, core.NewError(err, ErrCodeInvalidTasks, map[string]any{"source": source})
	}
	tasks, err := task.NewCollection()
	if err != nil {
		return nil, err
	}
	tasks.YAMLMode = l.yamlMode
	doc := &Document{
		Source:  source,
		Version: spec.Version,
		Env:     core.EnvMap(spec.Env),
		Tasks:   tasks,
	}
	for i, node := range nodes {
		match, err := l.registry.FindTaskByNode(node)
		if err != nil {
			return nil, core.NewError(err, ErrCodeParseNode, map[string]any{"source": source, "index": i})
		}
		if match == nil {
			return nil, core.NewError(
				fmt.Errorf("no task module recognizes entry %d (keys: %v)", i, nodeKeys(node)),
				ErrCodeUnknownKind,
				map[string]any{"source": source, "index": i, "modules": l.registry.IDs()},
			)
		}
		t := match.Task
		applyDefaultEnv(t, doc.Env)
		if _, err := tasks.Add(t); err != nil {
			return nil, core.NewError(err, ErrCodeInvalidTaskID, map[string]any{"source": source, "index": i})
		}
		doc.Bindings = append(doc.Bindings, Binding{Task: t, Module: match.Module})
		log.Debug("Loaded task", "task_id", t.ID, "module", match.Module.ID)
	}
	return doc, nil
}

// taskNodes accepts either a sequence of task maps or a mapping whose keys
// become task names.
func taskNodes(raw any) ([]registry.Node, error) {
	switch tasks := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		nodes := make([]registry.Node, 0, len(tasks))
		for i, item := range tasks {
			m, ok := normalize(item).(map[string]any)
			if !ok {
				return nil, fmt.Errorf("task entry %d must be a mapping, got %T", i, item)
			}
			nodes = append(nodes, registry.Node(m))
		}
		return nodes, nil
	case yaml.MapSlice:
		nodes := make([]registry.Node, 0, len(tasks))
		for _, item := range tasks {
			name := fmt.Sprint(item.Key)
			m := map[string]any{}
			if item.Value != nil {
				var ok bool
				if m, ok = normalize(item.Value).(map[string]any); !ok {
					return nil, fmt.Errorf("task %q must be a mapping, got %T", name, item.Value)
				}
			}
			if _, ok := m["name"]; !ok {
				m["name"] = name
			}
			nodes = append(nodes, registry.Node(m))
		}
		return nodes, nil
	default:
		return nil, fmt.Errorf("tasks must be a sequence or a mapping, got %T", raw)
	}
}

// normalize converts ordered YAML maps into plain maps, recursively.
func normalize(v any) any {
	switch val := v.(type) {
	case yaml.MapSlice:
		m := make(map[string]any, len(val))
		for _, item := range val {
			m[fmt.Sprint(item.Key)] = normalize(item.Value)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = normalize(item)
		}
		return m
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

// applyDefaultEnv fills variables the task does not mention from the
// file-level env. Variables the task explicitly unsets stay unset.
func applyDefaultEnv(t *task.Task, env core.EnvMap) {
	if len(env) == 0 {
		return
	}
	if t.Env == nil {
		t.Env = make(map[string]*string, len(env))
	}
	for k, v := range env {
		if _, ok := t.Env[k]; !ok {
			t.Env[k] = &v
		}
	}
}

func nodeKeys(node registry.Node) []string {
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
