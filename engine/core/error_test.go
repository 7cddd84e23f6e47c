package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/compozy/taskdef/engine/core"
)

func TestError(t *testing.T) {
	t.Run("Should format code and cause", func(t *testing.T) {
		cause := errors.New("boom")
		err := core.NewError(cause, "TASK_FAILED", map[string]any{"task_id": "a"})
		assert.Equal(t, "TASK_FAILED: boom", err.Error())
		assert.Equal(t, "boom", err.Message)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("Should fall back to the code without a cause", func(t *testing.T) {
		err := core.NewError(nil, "EMPTY", nil)
		assert.Equal(t, "EMPTY", err.Error())
		assert.Equal(t, map[string]any{"message": "EMPTY", "code": "EMPTY"}, err.AsMap())
	})

	t.Run("Should find codes through wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", core.NewError(errors.New("x"), "INNER", nil))
		assert.Equal(t, "INNER", core.ErrorCode(err))
		assert.Empty(t, core.ErrorCode(errors.New("plain")))
	})
}
