package task

import (
	"iter"
	"slices"
)

// Collection is an ordered store of tasks indexed by id. Ids are assigned or
// validated on insertion; when two tasks share an id both stay in the
// sequence and the index points at the most recently inserted one.
//
// A Collection is owned by a single caller and is not safe for concurrent use.
type Collection struct {
	// YAMLMode applies the YAML dialect to every Add and Set.
	YAMLMode bool

	items []*Task
	index map[string]*Task
}

func NewCollection(tasks ...*Task) (*Collection, error) {
	c := &Collection{index: make(map[string]*Task)}
	if err := c.AddRange(tasks...); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Collection) Len() int {
	return len(c.items)
}

func (c *Collection) Dialect() Dialect {
	return DialectFor(c.YAMLMode)
}

// Add normalizes t's id using the current length as its position, appends it
// and returns a builder bound to this collection.
func (c *Collection) Add(t *Task) (*Builder, error) {
	if t == nil {
		return nil, ErrNilTask
	}
	if err := NormalizeID(t, len(c.items), c.Dialect()); err != nil {
		return nil, err
	}
	c.items = append(c.items, t)
	c.indexTask(t)
	return c.builderFor(t), nil
}

// AddRange adds tasks in order and stops at the first failure; tasks before
// the failing one remain added.
func (c *Collection) AddRange(tasks ...*Task) error {
	for _, t := range tasks {
		if _, err := c.Add(t); err != nil {
			return err
		}
	}
	return nil
}

// Get looks a task up by id.
func (c *Collection) Get(id string) (*Task, bool) {
	t, ok := c.index[id]
	return t, ok
}

// At returns the task at position i.
func (c *Collection) At(i int) (*Task, bool) {
	if i < 0 || i >= len(c.items) {
		return nil, false
	}
	return c.items[i], true
}

// Set replaces the task at position i, normalizing t with i as its position.
func (c *Collection) Set(i int, t *Task) error {
	if err := c.checkRange(i); err != nil {
		return err
	}
	if t == nil {
		return ErrNilTask
	}
	old := c.items[i]
	oldID := old.ID
	if err := NormalizeID(t, i, c.Dialect()); err != nil {
		return err
	}
	c.items[i] = t
	c.unindex(oldID, old, nil)
	c.indexTask(t)
	return nil
}

// Remove deletes and returns the task at position i.
func (c *Collection) Remove(i int) (*Task, error) {
	if err := c.checkRange(i); err != nil {
		return nil, err
	}
	removed := c.items[i]
	c.items = slices.Delete(c.items, i, i+1)
	c.unindex(removed.ID, removed, nil)
	return removed, nil
}

// IndexOf returns the position of t by pointer identity, or -1.
func (c *Collection) IndexOf(t *Task) int {
	return slices.Index(c.items, t)
}

func (c *Collection) Clear() {
	clear(c.items)
	c.items = c.items[:0]
	clear(c.index)
}

// ToSlice returns a shallow copy of the sequence.
func (c *Collection) ToSlice() []*Task {
	return slices.Clone(c.items)
}

// All iterates the tasks as they are when iteration starts.
func (c *Collection) All() iter.Seq[*Task] {
	return func(yield func(*Task) bool) {
		for _, t := range slices.Clone(c.items) {
			if !yield(t) {
				return
			}
		}
	}
}

// Indexed iterates positions and tasks as they are when iteration starts.
func (c *Collection) Indexed() iter.Seq2[int, *Task] {
	return func(yield func(int, *Task) bool) {
		for i, t := range slices.Clone(c.items) {
			if !yield(i, t) {
				return
			}
		}
	}
}

func (c *Collection) checkRange(i int) error {
	if i < 0 || i >= len(c.items) {
		return &IndexOutOfRangeError{Index: i, Length: len(c.items)}
	}
	return nil
}

func (c *Collection) indexTask(t *Task) {
	if c.index == nil {
		c.index = make(map[string]*Task)
	}
	c.index[t.ID] = t
}

// unindex drops the index entry for id when it points at t. The latest other
// task in the sequence still carrying id, excluding skip, takes it over.
func (c *Collection) unindex(id string, t, skip *Task) {
	if current, ok := c.index[id]; !ok || current != t {
		return
	}
	delete(c.index, id)
	for j := len(c.items) - 1; j >= 0; j-- {
		if other := c.items[j]; other != skip && other.ID == id {
			c.index[id] = other
			return
		}
	}
}

func (c *Collection) builderFor(t *Task) *Builder {
	b := NewBuilder(t)
	b.rename = func(t *Task, oldID, newID string) error {
		if err := ValidateID(newID, c.Dialect()); err != nil {
			return err
		}
		if c.IndexOf(t) < 0 {
			return nil
		}
		c.unindex(oldID, t, t)
		c.index[newID] = t
		return nil
	}
	return b
}
