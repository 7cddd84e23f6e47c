package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/compozy/taskdef/engine/core"
	"github.com/compozy/taskdef/pkg/config"
)

// extractCLIFlags collects the configuration flags the user set explicitly.
func extractCLIFlags(cmd *cobra.Command) map[string]any {
	flags := make(map[string]any)
	for _, name := range config.CLIFlags() {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if value, err := flagValue(cmd.Flags(), f); err == nil {
			flags[name] = value
		}
	}
	return flags
}

func flagValue(fs *pflag.FlagSet, f *pflag.Flag) (any, error) {
	switch f.Value.Type() {
	case "bool":
		return fs.GetBool(f.Name)
	case "duration":
		return fs.GetDuration(f.Name)
	case "int":
		return fs.GetInt(f.Name)
	default:
		return f.Value.String(), nil
	}
}

// loadEnvFile reads a dotenv file relative to the working directory. A
// missing file yields an empty map.
func loadEnvFile(path string) (core.EnvMap, error) {
	if path == "" {
		return make(core.EnvMap), nil
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve env file path: %w", err)
	}
	if info, err := os.Stat(abs); err == nil && !info.Mode().IsRegular() {
		return nil, fmt.Errorf("env file path '%s' is not a regular file", path)
	}
	return core.NewEnvFromFile(abs)
}

// taskEnvironment builds the base environment handed to tasks.
func taskEnvironment(cfg *config.Config) (core.EnvMap, error) {
	base := make(core.EnvMap)
	if cfg.Tasks.InheritEnv {
		base = core.EnvFromOS()
	}
	fileEnv, err := loadEnvFile(cfg.Tasks.EnvFile)
	if err != nil {
		return nil, err
	}
	return base.Merge(fileEnv)
}

// expandPaths resolves file arguments. Arguments with glob metacharacters are
// expanded with doublestar and must match at least one file.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			add(arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no task files match %q", arg)
		}
		slices.Sort(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return paths, nil
}
