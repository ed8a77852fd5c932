// Package cli implements tablectl, a command-line front end for the table
// codecs and the data-generation client.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabledit/internal/config"
	"github.com/JonMunkholm/tabledit/internal/core"
	"github.com/JonMunkholm/tabledit/internal/logging"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Env carries the process environment so commands can run against a fake
// one in tests.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string

	// NewGenerator builds the data-generation client. Nil uses Gemini.
	NewGenerator func(cfg *config.GenerationConfig) core.Generator
}

// OSEnv returns the real process environment.
func OSEnv() Env {
	return Env{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getenv: os.Getenv,
	}
}

type rootOptions struct {
	logLevel  string
	delimiter string
	from      string
	to        string
}

// NewRootCommand assembles the command tree.
func NewRootCommand(env Env) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "tablectl",
		Short:         "Convert, reshape and fill CSV, JSON and XLSX tables",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupWriter(env.Stderr, opts.logLevel, "text")
		},
	}
	root.SetIn(env.Stdin)
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVarP(&opts.delimiter, "delimiter", "d", string(core.DefaultDelimiter), "CSV field separator")
	root.PersistentFlags().StringVar(&opts.from, "from", "", "Input format (default: from the file extension)")
	root.PersistentFlags().StringVar(&opts.to, "to", "", "Output format (default: from the file extension)")

	root.AddCommand(
		newConvertCommand(env, opts),
		newResizeCommand(env, opts),
		newGenerateCommand(env, opts),
		newInspectCommand(env, opts),
		newFormatsCommand(env),
	)
	return root
}

// Execute runs tablectl with the given arguments and returns the exit code.
func Execute(env Env, args []string) int {
	root := NewRootCommand(env)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		printError(env.Stderr, err)
		return 1
	}
	return 0
}

// printError writes err and, for known failures, the suggested action.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "tablectl: %v\n", err)
	var usage *usageError
	if errors.As(err, &usage) {
		return
	}
	if core.IsUserFacing(err) {
		msg := core.MapError(err)
		fmt.Fprintf(w, "  %s (Code: %s)\n", msg.Action, msg.Code)
	}
}

// usageError marks argument mistakes that need no further hint.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}
