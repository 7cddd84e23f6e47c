package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/taskdef/engine/core"
)

func TestEnvMap(t *testing.T) {
	t.Run("Should read dotenv files", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("A=1\n# comment\nB=\"two words\"\n"), 0o600))
		env, err := core.NewEnvFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, core.EnvMap{"A": "1", "B": "two words"}, env)
	})

	t.Run("Should treat missing files as empty", func(t *testing.T) {
		env, err := core.NewEnvFromFile(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)
		assert.Empty(t, env)
		env, err = core.NewEnvFromFile("")
		require.NoError(t, err)
		assert.Empty(t, env)
	})

	t.Run("Should merge with the argument taking precedence", func(t *testing.T) {
		base := core.EnvMap{"A": "1", "B": "2"}
		merged, err := base.Merge(core.EnvMap{"B": "3", "C": "4"})
		require.NoError(t, err)
		assert.Equal(t, core.EnvMap{"A": "1", "B": "3", "C": "4"}, merged)
		assert.Equal(t, "2", base["B"])
	})

	t.Run("Should let empty values clear inherited ones", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("FOO=\n"), 0o600))
		fileEnv, err := core.NewEnvFromFile(path)
		require.NoError(t, err)
		base := core.EnvMap{"FOO": "inherited", "BAR": "kept"}
		merged, err := base.Merge(fileEnv)
		require.NoError(t, err)
		assert.Equal(t, core.EnvMap{"FOO": "", "BAR": "kept"}, merged)
	})

	t.Run("Should snapshot the process environment", func(t *testing.T) {
		t.Setenv("TASKDEF_CORE_TEST", "a=b")
		assert.Equal(t, "a=b", core.EnvFromOS()["TASKDEF_CORE_TEST"])
	})

	t.Run("Should convert to pointers", func(t *testing.T) {
		ptrs := core.EnvMap{"A": "1", "B": "2"}.Pointers()
		require.NotNil(t, ptrs["A"])
		assert.Equal(t, "1", *ptrs["A"])
		assert.Equal(t, "2", *ptrs["B"])
	})
}
