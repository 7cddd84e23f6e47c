package task

import (
	"maps"
	"slices"
	"time"
)

// Task is a named unit of work. Fields outside the recognized set live in
// Extra; task kinds use them for their own settings (e.g. "run").
type Task struct {
	ID          string
	Name        string
	Description string
	// Needs lists the ids this task depends on, in declaration order.
	Needs []string
	// Env values may be nil to mark a variable as explicitly unset.
	Env             map[string]*string
	Timeout         Attr[time.Duration]
	If              Attr[bool]
	ContinueOnError Attr[bool]
	Extra           map[string]any
}

func (t *Task) Meta() Meta {
	return Meta{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Needs:       slices.Clone(t.Needs),
		Env:         maps.Clone(t.Env),
		Extra:       maps.Clone(t.Extra),
	}
}

// Get returns an extra field.
func (t *Task) Get(key string) (any, bool) {
	v, ok := t.Extra[key]
	return v, ok
}

// GetString returns an extra field when it holds a string.
func (t *Task) GetString(key string) (string, bool) {
	v, ok := t.Extra[key].(string)
	return v, ok
}

// Set stores an extra field.
func (t *Task) Set(key string, value any) {
	if t.Extra == nil {
		t.Extra = make(map[string]any)
	}
	t.Extra[key] = value
}

func (t *Task) EnvValue(key string) (string, bool) {
	return lookup(t.Env, key)
}

// Clone returns a copy whose maps and slices are independent of t.
// Attribute functions are shared.
func (t *Task) Clone() *Task {
	c := *t
	c.Needs = slices.Clone(t.Needs)
	c.Env = maps.Clone(t.Env)
	c.Extra = maps.Clone(t.Extra)
	return &c
}

type Option func(*Task)

// New builds a detached task. Identity is assigned when it joins a Collection.
func New(opts ...Option) *Task {
	t := &Task{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func WithID(id string) Option {
	return func(t *Task) { t.ID = id }
}

func WithName(name string) Option {
	return func(t *Task) { t.Name = name }
}

func WithDescription(description string) Option {
	return func(t *Task) { t.Description = description }
}

func WithNeeds(needs ...string) Option {
	return func(t *Task) { t.Needs = append(t.Needs, needs...) }
}

func WithEnv(env map[string]*string) Option {
	return func(t *Task) { t.Env = maps.Clone(env) }
}

func WithTimeout(timeout Attr[time.Duration]) Option {
	return func(t *Task) { t.Timeout = timeout }
}

func WithIf(condition Attr[bool]) Option {
	return func(t *Task) { t.If = condition }
}

func WithContinueOnError(condition Attr[bool]) Option {
	return func(t *Task) { t.ContinueOnError = condition }
}

func WithExtra(key string, value any) Option {
	return func(t *Task) { t.Set(key, value) }
}
