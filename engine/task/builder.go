package task

import "time"

// Builder sets task fields fluently. A builder returned by Collection.Add
// keeps the collection's id index in sync when the id changes; an invalid id
// is not applied and is reported by Err.
type Builder struct {
	task   *Task
	rename func(t *Task, oldID, newID string) error
	err    error
}

func NewBuilder(t *Task) *Builder {
	return &Builder{task: t}
}

func (b *Builder) ID(id string) *Builder {
	if b.rename != nil {
		if err := b.rename(b.task, b.task.ID, id); err != nil {
			b.setErr(err)
			return b
		}
	}
	b.task.ID = id
	return b
}

func (b *Builder) Name(name string) *Builder {
	b.task.Name = name
	return b
}

func (b *Builder) Description(description string) *Builder {
	b.task.Description = description
	return b
}

func (b *Builder) Needs(needs ...string) *Builder {
	b.task.Needs = needs
	return b
}

func (b *Builder) Env(env map[string]*string) *Builder {
	b.task.Env = env
	return b
}

// SetEnv sets one environment variable.
func (b *Builder) SetEnv(key, value string) *Builder {
	if b.task.Env == nil {
		b.task.Env = make(map[string]*string)
	}
	b.task.Env[key] = &value
	return b
}

// UnsetEnv marks an environment variable as explicitly absent.
func (b *Builder) UnsetEnv(key string) *Builder {
	if b.task.Env == nil {
		b.task.Env = make(map[string]*string)
	}
	b.task.Env[key] = nil
	return b
}

func (b *Builder) Timeout(timeout Attr[time.Duration]) *Builder {
	b.task.Timeout = timeout
	return b
}

func (b *Builder) If(condition Attr[bool]) *Builder {
	b.task.If = condition
	return b
}

func (b *Builder) ContinueOnError(condition Attr[bool]) *Builder {
	b.task.ContinueOnError = condition
	return b
}

// Set stores an extra field.
func (b *Builder) Set(key string, value any) *Builder {
	b.task.Set(key, value)
	return b
}

func (b *Builder) Task() *Task {
	return b.task
}

// Err returns the first error recorded by a setter.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}
