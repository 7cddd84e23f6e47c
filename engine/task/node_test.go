package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeDecoder_Decode(t *testing.T) {
	t.Run("Should decode recognized fields and keep the rest as extras", func(t *testing.T) {
		d := NewNodeDecoder(nil)
		tk, err := d.Decode(map[string]any{
			"name":        "Build App",
			"description": "compile",
			"needs":       []any{"lint", "test"},
			"env":         map[string]any{"GOOS": "linux", "CGO_ENABLED": 0, "DEBUG": nil},
			"timeout":     "1m30s",
			"run":         "go build ./...",
		})
		require.NoError(t, err)
		assert.Equal(t, "Build App", tk.Name)
		assert.Empty(t, tk.ID)
		assert.Equal(t, []string{"lint", "test"}, tk.Needs)
		goos, ok := tk.EnvValue("GOOS")
		require.True(t, ok)
		assert.Equal(t, "linux", goos)
		cgo, _ := tk.EnvValue("CGO_ENABLED")
		assert.Equal(t, "0", cgo)
		_, ok = tk.EnvValue("DEBUG")
		assert.False(t, ok)
		assert.Contains(t, tk.Env, "DEBUG")
		timeout, ok := tk.Timeout.Literal()
		require.True(t, ok)
		assert.Equal(t, 90*time.Second, timeout)
		run, ok := tk.GetString("run")
		require.True(t, ok)
		assert.Equal(t, "go build ./...", run)
		assert.False(t, tk.If.IsSet())
	})

	t.Run("Should accept literal and string booleans without an evaluator", func(t *testing.T) {
		d := NewNodeDecoder(nil)
		tk, err := d.Decode(map[string]any{"if": "false", "continue_on_error": true})
		require.NoError(t, err)
		v, ok := tk.If.Literal()
		require.True(t, ok)
		assert.False(t, v)
		v, ok = tk.ContinueOnError.Literal()
		require.True(t, ok)
		assert.True(t, v)
	})

	t.Run("Should require an evaluator for expressions", func(t *testing.T) {
		d := NewNodeDecoder(nil)
		_, err := d.Decode(map[string]any{"if": `env.CI == "true"`})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "if:")
	})

	t.Run("Should compile expressions into attributes", func(t *testing.T) {
		d := NewNodeDecoder(newTestEvaluator(t))
		tk, err := d.Decode(map[string]any{"if": `env.CI == "true"`})
		require.NoError(t, err)
		assert.Equal(t, AttrAsync, tk.If.Kind())
		v, err := tk.If.Resolve(t.Context(), &States{Env: map[string]*string{"CI": ptr("true")}})
		require.NoError(t, err)
		assert.True(t, v)
	})

	t.Run("Should reject invalid timeouts and condition types", func(t *testing.T) {
		d := NewNodeDecoder(nil)
		_, err := d.Decode(map[string]any{"timeout": "soon"})
		require.Error(t, err)
		_, err = d.Decode(map[string]any{"if": 3})
		require.Error(t, err)
	})
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected time.Duration
		wantErr  bool
	}{
		{name: "Should parse Go durations", input: "2m", expected: 2 * time.Minute},
		{name: "Should parse day units", input: "1d2h", expected: 26 * time.Hour},
		{name: "Should treat integers as seconds", input: 30, expected: 30 * time.Second},
		{name: "Should treat floats as seconds", input: 1.5, expected: 1500 * time.Millisecond},
		{name: "Should pass durations through", input: time.Second, expected: time.Second},
		{name: "Should reject negative numbers", input: -1, wantErr: true},
		{name: "Should reject negative strings", input: "-5s", wantErr: true},
		{name: "Should reject unsupported types", input: []string{"1s"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
