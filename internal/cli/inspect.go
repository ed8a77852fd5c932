package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabledit/internal/core"
)

// inspectResult is the --json output of inspect.
type inspectResult struct {
	File    string       `json:"file"`
	Format  string       `json:"format"`
	Columns int          `json:"columns"`
	Rows    int          `json:"rows"`
	Fields  []core.Field `json:"fields,omitempty"`
	Headers []string     `json:"headers"`
}

func newInspectCommand(env Env, opts *rootOptions) *cobra.Command {
	var (
		asJSON     bool
		withValues bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <input>",
		Short: "Print a table's format, size and headers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, f, err := readTable(env, args[0], opts)
			if err != nil {
				return err
			}

			res := inspectResult{
				File:    args[0],
				Format:  f.Name,
				Columns: t.NumColumns(),
				Rows:    t.NumRows(),
				Headers: t.Headers(),
			}
			if withValues {
				res.Fields = t.Fields()
			}

			if asJSON {
				enc := json.NewEncoder(env.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			fmt.Fprintf(env.Stdout, "%s: %s, %d columns, %d rows\n", res.File, res.Format, res.Columns, res.Rows)
			tw := tabwriter.NewWriter(env.Stdout, 0, 4, 2, ' ', 0)
			for i, h := range res.Headers {
				if withValues {
					fmt.Fprintf(tw, "  %d\t%s\t%s\n", i+1, h, strings.Join(res.Fields[i].Values, ", "))
				} else {
					fmt.Fprintf(tw, "  %d\t%s\n", i+1, h)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().BoolVar(&withValues, "fields", false, "Include each column's values")
	return cmd
}

func newFormatsCommand(env Env) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported file formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(env.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tLABEL\tMEDIA TYPE")
			for _, f := range core.Formats() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, f.Label, f.MediaType)
			}
			return tw.Flush()
		},
	}
}
