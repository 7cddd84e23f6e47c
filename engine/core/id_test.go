package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/taskdef/engine/core"
)

func TestID(t *testing.T) {
	t.Run("Should report zero values", func(t *testing.T) {
		var zero core.ID
		assert.True(t, zero.IsZero())
		assert.False(t, core.ID("some-id").IsZero())
		assert.Equal(t, "some-id", core.ID("some-id").String())
	})

	t.Run("Should generate unique parseable ids", func(t *testing.T) {
		id1, err := core.NewID()
		require.NoError(t, err)
		id2 := core.MustNewID()
		assert.NotEqual(t, id1, id2)
		parsed, err := core.ParseID(id1.String())
		require.NoError(t, err)
		assert.Equal(t, id1, parsed)
	})

	t.Run("Should reject malformed ids", func(t *testing.T) {
		_, err := core.ParseID("not-a-ksuid")
		require.Error(t, err)
	})
}
