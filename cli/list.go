package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type taskRow struct {
	Index       int      `json:"index"`
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Module      string   `json:"module"`
	Description string   `json:"description,omitempty"`
	Needs       []string `json:"needs,omitempty"`
}

// ListCmd prints the tasks of a task file in collection order.
func ListCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list FILE",
		Short: "List the tasks defined in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			doc, err := a.loader.LoadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows := make([]taskRow, 0, doc.Tasks.Len())
			for i, t := range doc.Tasks.Indexed() {
				row := taskRow{Index: i, ID: t.ID, Name: t.Name, Description: t.Description, Needs: t.Needs}
				if m, ok := doc.ModuleFor(t); ok {
					row.Module = m.ID
				}
				rows = append(rows, row)
			}
			p := newPrinter(cmd.OutOrStdout())
			if format == OutputFormatJSON {
				return p.json(rows)
			}
			table := make([][]string, len(rows))
			for i, r := range rows {
				table[i] = []string{strconv.Itoa(r.Index), r.ID, r.Name, r.Module, strings.Join(r.Needs, ",")}
			}
			return p.table([]string{"INDEX", "ID", "NAME", "MODULE", "NEEDS"}, table)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", OutputFormatTable, "Output format (table, json)")
	return cmd
}
