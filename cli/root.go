// Package cli implements the taskdef command line.
package cli

import (
	"github.com/spf13/cobra"
)

const defaultConfigFile = "taskdef.yaml"

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskdef",
		Short:         "Load, inspect and run task definition files",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
	}
	addGlobalFlags(root)
	root.AddCommand(
		ListCmd(),
		ValidateCmd(),
		RunCmd(),
		ModulesCmd(),
	)
	return root
}

func addGlobalFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.String("config", defaultConfigFile, "Path to the configuration file")
	flags.String("log-level", "info", "Log level (debug, info, warn, error, disabled)")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.Bool("log-source", false, "Include source locations in logs")
	flags.Bool("yaml-mode", true, "Use the YAML id dialect (colons are not allowed in ids)")
	flags.String("env-file", ".env", "Dotenv file merged into the task environment")
	flags.String("secrets-file", "", "Dotenv file exposed to conditions as secrets")
	flags.Duration("default-timeout", 0, "Timeout for tasks that declare none (0 disables)")
	flags.Bool("continue-on-error", false, "Keep running after a task fails unless the task says otherwise")
	flags.Bool("inherit-env", true, "Pass the process environment to tasks")
}
