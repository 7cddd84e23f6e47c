package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/compozy/taskdef/engine/runner"
	"github.com/compozy/taskdef/engine/task"
)

type resultRow struct {
	ID       string         `json:"id"`
	ExecID   string         `json:"exec_id"`
	Status   string         `json:"status"`
	Duration string         `json:"duration"`
	Error    string         `json:"error,omitempty"`
	Outputs  map[string]any `json:"outputs,omitempty"`
}

// RunCmd executes a task file in collection order.
func RunCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run the tasks of a file in order",
		Long: `Run the tasks of a file one after another in the order they are declared.
A task is skipped when its if condition is false or when one of its needs did not end ok.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			doc, err := a.loader.LoadFile(ctx, args[0])
			if err != nil {
				return err
			}
			env, err := taskEnvironment(a.cfg)
			if err != nil {
				return err
			}
			secrets, err := loadEnvFile(a.cfg.Tasks.SecretsFile)
			if err != nil {
				return err
			}
			r, err := runner.New(a.registry,
				runner.WithEvaluator(a.eval),
				runner.WithDefaultTimeout(a.cfg.Tasks.DefaultTimeout),
				runner.WithContinueOnError(a.cfg.Tasks.ContinueOnError),
				runner.WithEnv(env),
				runner.WithSecrets(secrets),
			)
			if err != nil {
				return err
			}
			report, runErr := r.Run(ctx, doc.Tasks)
			if err := printReport(newPrinter(cmd.OutOrStdout()), report, format); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}
			if report.Failed() {
				return errors.New("one or more tasks failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", OutputFormatTable, "Output format (table, json)")
	return cmd
}

func printReport(p *printer, report *runner.Report, format string) error {
	rows := make([]resultRow, len(report.Results))
	for i, res := range report.Results {
		rows[i] = resultRow{
			ID:       res.Task.ID,
			ExecID:   res.ExecID.String(),
			Status:   res.Status.String(),
			Duration: res.Duration().Round(time.Millisecond).String(),
			Outputs:  res.Outputs,
		}
		if res.Status.IsFailure() || res.Status == task.StatusSkipped {
			rows[i].Error = res.Err.Error()
		}
	}
	if format == OutputFormatJSON {
		return p.json(rows)
	}
	table := make([][]string, len(rows))
	for i, r := range rows {
		table[i] = []string{r.ID, p.status(report.Results[i].Status), r.Duration, r.Error}
	}
	if err := p.table([]string{"TASK", "STATUS", "DURATION", "DETAIL"}, table); err != nil {
		return err
	}
	counts := report.Counts()
	p.line("%d ok, %d failed, %d skipped",
		counts[task.StatusOK], counts[task.StatusError]+counts[task.StatusCancelled], counts[task.StatusSkipped])
	return nil
}
