package core

import (
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
)

type EnvMap map[string]string

// NewEnvFromFile reads a dotenv file. A missing file yields an empty map.
func NewEnvFromFile(path string) (EnvMap, error) {
	if path == "" {
		return make(EnvMap), nil
	}
	envMap, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(EnvMap), nil
		}
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return EnvMap(envMap), nil
}

// EnvFromOS snapshots the process environment.
func EnvFromOS() EnvMap {
	env := make(EnvMap)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Merge returns a new map where keys from other override keys from e.
func (e *EnvMap) Merge(other EnvMap) (EnvMap, error) {
	env := make(EnvMap)
	if e == nil && other == nil {
		return env, nil
	}
	if e != nil {
		if err := mergeLayer(env, *e); err != nil {
			return nil, err
		}
	}
	if err := mergeLayer(env, other); err != nil {
		return nil, err
	}
	return env, nil
}

// mergeLayer overrides dst with src. mergo skips empty source values, so
// those are applied afterwards: an empty value still replaces an inherited one.
func mergeLayer(dst, src EnvMap) error {
	if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
		return err
	}
	for k, v := range src {
		if v == "" {
			dst[k] = v
		}
	}
	return nil
}

// Pointers converts the map into the optional-value shape used by task states.
func (e EnvMap) Pointers() map[string]*string {
	out := make(map[string]*string, len(e))
	for k, v := range e {
		out[k] = &v
	}
	return out
}
