package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/taskdef/pkg/config"
)

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "nested/b.yaml", "nested/deep/c.yaml", "notes.txt"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("tasks: []\n"), 0o600))
	}

	t.Run("Should keep plain paths as given", func(t *testing.T) {
		paths, err := expandPaths([]string{"x.yaml", "y.yaml"})
		require.NoError(t, err)
		assert.Equal(t, []string{"x.yaml", "y.yaml"}, paths)
	})

	t.Run("Should expand recursive globs in sorted order", func(t *testing.T) {
		paths, err := expandPaths([]string{filepath.Join(dir, "**", "*.yaml")})
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "a.yaml"),
			filepath.Join(dir, "nested", "b.yaml"),
			filepath.Join(dir, "nested", "deep", "c.yaml"),
		}, paths)
	})

	t.Run("Should drop duplicates across arguments", func(t *testing.T) {
		a := filepath.Join(dir, "a.yaml")
		paths, err := expandPaths([]string{a, filepath.Join(dir, "*.yaml")})
		require.NoError(t, err)
		assert.Equal(t, []string{a}, paths)
	})

	t.Run("Should fail when a glob matches nothing", func(t *testing.T) {
		_, err := expandPaths([]string{filepath.Join(dir, "*.json")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no task files match")
	})
}

func TestTaskEnvironment(t *testing.T) {
	t.Run("Should layer the env file over the process environment", func(t *testing.T) {
		t.Setenv("TASKDEF_CLI_TEST", "from-os")
		t.Setenv("TASKDEF_CLI_KEEP", "kept")
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("TASKDEF_CLI_TEST=from-file\n"), 0o600))
		cfg := config.Default()
		cfg.Tasks.EnvFile = path
		env, err := taskEnvironment(cfg)
		require.NoError(t, err)
		assert.Equal(t, "from-file", env["TASKDEF_CLI_TEST"])
		assert.Equal(t, "kept", env["TASKDEF_CLI_KEEP"])
	})

	t.Run("Should skip the process environment when not inherited", func(t *testing.T) {
		t.Setenv("TASKDEF_CLI_TEST", "from-os")
		cfg := config.Default()
		cfg.Tasks.EnvFile = ""
		cfg.Tasks.InheritEnv = false
		env, err := taskEnvironment(cfg)
		require.NoError(t, err)
		assert.Empty(t, env)
	})

	t.Run("Should reject directories as env files", func(t *testing.T) {
		_, err := loadEnvFile(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a regular file")
	})
}
