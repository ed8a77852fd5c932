package cli

import (
	"github.com/spf13/cobra"
)

func newConvertCommand(env Env, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert a table between formats",
		Long: `Convert reads a CSV, JSON or XLSX table and writes it in the format
implied by the output file extension. Use "-" with --from/--to for stdin
and stdout.`,
		Example: `  tablectl convert people.csv people.json
  tablectl convert --to csv report.xlsx -
  cat rows.json | tablectl convert --from json - rows.csv`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, _, err := readTable(env, args[0], opts)
			if err != nil {
				return err
			}
			return writeTable(env, t, args[1], opts)
		},
	}
}
