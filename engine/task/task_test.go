package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("Should apply options without assigning identity", func(t *testing.T) {
		tk := New(
			WithName("Deploy"),
			WithNeeds("build"),
			WithTimeout(Value(time.Minute)),
			WithIf(Value(true)),
			WithExtra("run", "make deploy"),
		)
		assert.Empty(t, tk.ID)
		assert.Equal(t, "Deploy", tk.Name)
		assert.Equal(t, []string{"build"}, tk.Needs)
		assert.True(t, tk.Timeout.IsSet())
		run, ok := tk.GetString("run")
		require.True(t, ok)
		assert.Equal(t, "make deploy", run)
	})
}

func TestTask_Clone(t *testing.T) {
	t.Run("Should copy maps and slices", func(t *testing.T) {
		tk := New(WithID("a"), WithNeeds("b"), WithEnv(map[string]*string{"X": ptr("1")}), WithExtra("k", "v"))
		c := tk.Clone()
		c.Needs[0] = "z"
		c.Env["Y"] = ptr("2")
		c.Set("k", "changed")
		assert.Equal(t, []string{"b"}, tk.Needs)
		assert.NotContains(t, tk.Env, "Y")
		v, _ := tk.Get("k")
		assert.Equal(t, "v", v)
	})

	t.Run("Should expose metadata", func(t *testing.T) {
		tk := New(WithID("a"), WithName("A"), WithDescription("first"))
		m := tk.Meta()
		assert.Equal(t, "a", m.ID)
		assert.Equal(t, "A", m.Name)
		assert.Equal(t, "first", m.Description)
	})
}
