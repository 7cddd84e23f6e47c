// Package shell provides the "shell" task kind: tasks with a run command.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/google/shlex"

	"github.com/compozy/taskdef/engine/task"
	"github.com/compozy/taskdef/engine/task/registry"
)

const (
	ModuleID = "shell"
	// RunKey holds the command line.
	RunKey = "run"
	// ShellKey names an interpreter; the command is then passed to it with -c.
	ShellKey = "shell"
	// DirKey sets the working directory.
	DirKey = "dir"
)

func New(decoder *task.NodeDecoder) *registry.Module {
	return &registry.Module{
		ID:        ModuleID,
		Handler:   Handle,
		Match:     Match,
		ParseNode: parseNode(decoder),
	}
}

func Match(t *task.Task) bool {
	run, ok := t.GetString(RunKey)
	return ok && strings.TrimSpace(run) != ""
}

func parseNode(decoder *task.NodeDecoder) func(registry.Node) (*task.Task, error) {
	return func(node registry.Node) (*task.Task, error) {
		if _, ok := node[RunKey]; !ok {
			return nil, nil
		}
		t, err := decoder.Decode(node)
		if err != nil {
			return nil, err
		}
		if !Match(t) {
			return nil, fmt.Errorf("%s must be a non-empty string", RunKey)
		}
		return t, nil
	}
}

func Handle(ctx context.Context, ec *task.ExecutionContext) (task.Status, error) {
	run, _ := ec.Task.GetString(RunKey)
	run, err := Render(run, &ec.States)
	if err != nil {
		return task.StatusError, err
	}
	argv, err := Command(ec.Task, run)
	if err != nil {
		return task.StatusError, err
	}
	log := ec.Logger()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = environ(ec.Env)
	if dir, ok := ec.Task.GetString(DirKey); ok {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	log.Debug("Running command", "argv", argv)
	err = cmd.Run()
	ec.SetOutput("stdout", strings.TrimRight(stdout.String(), "\n"))
	ec.SetOutput("stderr", strings.TrimRight(stderr.String(), "\n"))
	ec.SetOutput("exit_code", cmd.ProcessState.ExitCode())
	if err == nil {
		return task.StatusOK, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.Canceled) {
			return task.StatusCancelled, ctxErr
		}
		return task.StatusError, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		log.Warn("Command failed", "exit_code", exitErr.ExitCode())
		return task.StatusError, fmt.Errorf("command exited with code %d", exitErr.ExitCode())
	}
	return task.StatusError, fmt.Errorf("failed to run command: %w", err)
}

// Command builds the argv for a task's run line.
func Command(t *task.Task, run string) ([]string, error) {
	if sh, ok := t.GetString(ShellKey); ok && strings.TrimSpace(sh) != "" {
		shArgs, err := shlex.Split(sh)
		if err != nil {
			return nil, fmt.Errorf("invalid shell %q: %w", sh, err)
		}
		return append(shArgs, "-c", run), nil
	}
	args, err := shlex.Split(run)
	if err != nil {
		return nil, fmt.Errorf("invalid command %q: %w", run, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return args, nil
}

func environ(env map[string]*string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		if v != nil {
			out = append(out, k+"="+*v)
		}
	}
	slices.Sort(out)
	return out
}
