package shell

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/compozy/taskdef/engine/task"
)

// HasTemplate reports whether s contains template markers.
func HasTemplate(s string) bool {
	return strings.Contains(s, "{{")
}

// Render expands a run line against the execution states. The template sees
// .env, .secrets, .outputs and .task; referencing a missing key is an error.
func Render(run string, states *task.States) (string, error) {
	if !HasTemplate(run) {
		return run, nil
	}
	tmpl, err := template.New(RunKey).Option("missingkey=error").Funcs(sprig.TxtFuncMap()).Parse(run)
	if err != nil {
		return "", fmt.Errorf("failed to parse run template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, states.Activation()); err != nil {
		return "", fmt.Errorf("failed to render run template: %w", err)
	}
	return buf.String(), nil
}
