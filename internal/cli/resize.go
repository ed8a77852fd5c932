package cli

import (
	"github.com/spf13/cobra"
)

func newResizeCommand(env Env, opts *rootOptions) *cobra.Command {
	var columns, rows int

	cmd := &cobra.Command{
		Use:   "resize <input> <output>",
		Short: "Set a table to an exact number of columns and rows",
		Long: `Resize keeps the first columns and rows, adds auto-named columns and
empty rows as needed, and clears the table when either size is zero.
A size left unset keeps the current value.`,
		Example: `  tablectl resize --columns 5 --rows 100 in.csv out.csv`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if columns < 0 || rows < 0 {
				return usagef("--columns and --rows must not be negative")
			}
			t, _, err := readTable(env, args[0], opts)
			if err != nil {
				return err
			}
			c, r := columns, rows
			if !cmd.Flags().Changed("columns") {
				c = t.NumColumns()
			}
			if !cmd.Flags().Changed("rows") {
				r = t.NumRows()
			}
			t.Resize(c, r)
			return writeTable(env, t, args[1], opts)
		},
	}
	cmd.Flags().IntVar(&columns, "columns", 0, "Number of columns")
	cmd.Flags().IntVar(&rows, "rows", 0, "Number of rows")
	return cmd
}
