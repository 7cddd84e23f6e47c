package config

import (
	"context"
	"time"
)

// Config is the complete taskdef configuration.
type Config struct {
	Runtime RuntimeConfig `koanf:"runtime" validate:"required"`
	Tasks   TasksConfig   `koanf:"tasks"   validate:"required"`
	CEL     CELConfig     `koanf:"cel"     validate:"required"`
}

// RuntimeConfig controls process-level behavior such as logging.
type RuntimeConfig struct {
	LogLevel  string `koanf:"log_level"  validate:"log_level" env:"TASKDEF_LOG_LEVEL"`
	LogJSON   bool   `koanf:"log_json"                        env:"TASKDEF_LOG_JSON"`
	LogSource bool   `koanf:"log_source"                      env:"TASKDEF_LOG_SOURCE"`
}

// TasksConfig controls how task files are loaded and executed.
type TasksConfig struct {
	// YAMLMode selects the YAML id dialect, where colons are not allowed.
	YAMLMode bool `koanf:"yaml_mode" env:"TASKDEF_YAML_MODE"`
	// DefaultTimeout applies to tasks without a timeout. Zero disables it.
	DefaultTimeout  time.Duration `koanf:"default_timeout"   env:"TASKDEF_DEFAULT_TIMEOUT"`
	ContinueOnError bool          `koanf:"continue_on_error" env:"TASKDEF_CONTINUE_ON_ERROR"`
	// EnvFile is a dotenv file merged into the task environment.
	EnvFile string `koanf:"env_file" env:"TASKDEF_ENV_FILE"`
	// SecretsFile is a dotenv file exposed to conditions as secrets.
	SecretsFile string `koanf:"secrets_file" env:"TASKDEF_SECRETS_FILE"`
	// InheritEnv passes the process environment to tasks.
	InheritEnv bool `koanf:"inherit_env" env:"TASKDEF_INHERIT_ENV"`
}

// CELConfig tunes the expression evaluator used for conditions.
type CELConfig struct {
	CostLimit uint64 `koanf:"cost_limit" validate:"min=1" env:"TASKDEF_CEL_COST_LIMIT"`
	CacheSize int64  `koanf:"cache_size" validate:"min=1" env:"TASKDEF_CEL_CACHE_SIZE"`
}

// Service loads and validates configuration.
type Service interface {
	// Load applies defaults, then YAML sources, then the environment, then
	// CLI sources. Later layers win.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	Validate(config *Config) error
	// GetSource reports which layer provided a key.
	GetSource(key string) SourceType
}

// Source is one configuration layer.
type Source interface {
	Load() (map[string]any, error)
	Type() SourceType
}

type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata records where each key came from.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

func Default() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			LogLevel: "info",
		},
		Tasks: TasksConfig{
			YAMLMode:   true,
			EnvFile:    ".env",
			InheritEnv: true,
		},
		CEL: CELConfig{
			CostLimit: 1000,
			CacheSize: 256,
		},
	}
}
