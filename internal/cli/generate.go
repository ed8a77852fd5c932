package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabledit/internal/config"
	"github.com/JonMunkholm/tabledit/internal/core"
	"github.com/JonMunkholm/tabledit/internal/gemini"
)

func newGenerateCommand(env Env, opts *rootOptions) *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "generate <input> <output>",
		Short: "Append generated rows matching the table's headers",
		Long: `Generate sends the input table's headers and the prompt to the
data-generation service and appends every returned row. The credential is
read from GENERATION_API_KEY (or GEMINI_API_KEY); other GENERATION_*
settings apply as for the server.`,
		Example: `  GEMINI_API_KEY=... tablectl generate --prompt "10 European capitals" in.csv out.csv`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(env.Getenv)
			if err != nil {
				return err
			}

			gen := newGenerator(env, &cfg.Generation)
			if gen == nil {
				return core.ErrGenerationDisabled
			}

			t, _, err := readTable(env, args[0], opts)
			if err != nil {
				return err
			}

			req := core.GenerationRequest{Headers: t.Headers(), Instruction: prompt}
			if err := req.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, cfg.Generation.Timeout)
			defer cancel()

			start := time.Now()
			records, err := gen.Generate(ctx, req)
			if err != nil {
				if !errors.Is(err, core.ErrGeneration) {
					err = fmt.Errorf("%w: %w", core.ErrGeneration, err)
				}
				return err
			}

			before := t.NumRows()
			t.AppendRows(records)
			slog.Info("rows generated",
				"appended", t.NumRows()-before,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return writeTable(env, t, args[1], opts)
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Description of the rows to generate")
	return cmd
}

// newGenerator returns nil when generation is not configured.
func newGenerator(env Env, cfg *config.GenerationConfig) core.Generator {
	if env.NewGenerator != nil {
		return env.NewGenerator(cfg)
	}
	if c := gemini.NewFromConfig(cfg); c != nil {
		return c
	}
	return nil
}
