package sleep

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/taskdef/engine/task"
	"github.com/compozy/taskdef/engine/task/registry"
)

func TestParseNode(t *testing.T) {
	m := New(task.NewNodeDecoder(nil))

	t.Run("Should store the parsed duration", func(t *testing.T) {
		tk, err := m.ParseNode(registry.Node{"name": "Wait", "sleep": "250ms"})
		require.NoError(t, err)
		require.NotNil(t, tk)
		v, _ := tk.Get(DurationKey)
		assert.Equal(t, 250*time.Millisecond, v)
		assert.True(t, m.Match(tk))
	})

	t.Run("Should ignore other nodes and reject bad durations", func(t *testing.T) {
		tk, err := m.ParseNode(registry.Node{"run": "make"})
		require.NoError(t, err)
		assert.Nil(t, tk)
		_, err = m.ParseNode(registry.Node{"sleep": "forever"})
		require.Error(t, err)
	})
}

func TestHandle(t *testing.T) {
	t.Run("Should wait and record the duration", func(t *testing.T) {
		ec := &task.ExecutionContext{Task: task.New(task.WithExtra(DurationKey, time.Millisecond))}
		status, err := Handle(t.Context(), ec)
		require.NoError(t, err)
		assert.Equal(t, task.StatusOK, status)
		assert.Equal(t, "1ms", ec.TaskOutputs()["slept"])
	})

	t.Run("Should stop on deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
		defer cancel()
		ec := &task.ExecutionContext{Task: task.New(task.WithExtra(DurationKey, "1m"))}
		status, err := Handle(ctx, ec)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, task.StatusError, status)
	})

	t.Run("Should report cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		ec := &task.ExecutionContext{Task: task.New(task.WithExtra(DurationKey, "1m"))}
		status, err := Handle(ctx, ec)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, task.StatusCancelled, status)
	})
}
