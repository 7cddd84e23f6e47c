package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compozy/taskdef/pkg/logger"
)

// ValidateCmd loads task files and reports identifier, parse and dependency
// problems. It stops at the first invalid file.
func ValidateCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate FILE|GLOB...",
		Short: "Check task files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			paths, err := expandPaths(args)
			if err != nil {
				return err
			}
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			p := newPrinter(cmd.OutOrStdout())
			for _, path := range paths {
				if err := validateFile(ctx, a, p, path, strict); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when a task needs an unknown task")
	return cmd
}

func validateFile(ctx context.Context, a *app, p *printer, path string, strict bool) error {
	doc, err := a.loader.LoadFile(ctx, path)
	if err != nil {
		return err
	}
	unknown := doc.UnknownNeeds()
	ids := make([]string, 0, len(unknown))
	for id := range unknown {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		logger.FromContext(ctx).Warn("Task needs unknown tasks", "task_id", id, "needs", unknown[id])
		p.line("%s: unknown needs %s", id, strings.Join(unknown[id], ", "))
	}
	if strict && len(unknown) > 0 {
		return fmt.Errorf("%s: %d task(s) reference unknown needs", doc.Source, len(unknown))
	}
	p.line("%s %s: %d task(s)", p.style(okStyle, "valid"), doc.Source, doc.Tasks.Len())
	return nil
}
