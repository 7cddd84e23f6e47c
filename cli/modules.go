package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// ModulesCmd lists the registered task modules in priority order.
func ModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List task modules in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			rows := make([][]string, 0, a.registry.Len())
			for i, m := range a.registry.Modules() {
				rows = append(rows, []string{strconv.Itoa(i), m.ID})
			}
			return newPrinter(cmd.OutOrStdout()).table([]string{"PRIORITY", "MODULE"}, rows)
		},
	}
}
