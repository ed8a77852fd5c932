package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/JonMunkholm/tabledit/internal/core"
)

// stdio is the path that means stdin or stdout.
const stdio = "-"

// codecFor resolves a format by explicit name or by path, applying the CSV
// delimiter flag.
func codecFor(explicit, path string, opts *rootOptions) (core.Format, error) {
	var (
		f   core.Format
		err error
	)
	switch {
	case explicit != "":
		f, err = core.LookupFormat(explicit)
	case path == stdio:
		return core.Format{}, usagef("--from/--to is required when reading stdin or writing stdout")
	default:
		f, err = core.FormatForFile(path)
	}
	if err != nil {
		return core.Format{}, err
	}
	if f.Name == "csv" {
		delim, err := parseDelimiter(opts.delimiter)
		if err != nil {
			return core.Format{}, err
		}
		f.Codec = core.NewCSVCodec(delim)
	}
	return f, nil
}

func parseDelimiter(s string) (rune, error) {
	r, size := utf8.DecodeRuneInString(s)
	if s == "" || size != len(s) || r == '"' || r == '\r' || r == '\n' {
		return 0, usagef("invalid --delimiter %q: must be a single character other than a quote or line break", s)
	}
	return r, nil
}

// readTable decodes the table at path ("-" for stdin).
func readTable(env Env, path string, opts *rootOptions) (*core.Table, core.Format, error) {
	f, err := codecFor(opts.from, path, opts)
	if err != nil {
		return nil, core.Format{}, err
	}

	var data []byte
	if path == stdio {
		data, err = io.ReadAll(env.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, core.Format{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := f.CheckEmpty(data); err != nil {
		return nil, core.Format{}, fmt.Errorf("%s: %w", path, err)
	}

	if rd, ok := f.Codec.(interface {
		DecodeWithReport(string) (*core.Table, core.DecodeReport, error)
	}); ok {
		t, report, err := rd.DecodeWithReport(string(data))
		if err != nil {
			return nil, core.Format{}, fmt.Errorf("%s: %w", path, err)
		}
		for _, w := range report.Warnings() {
			slog.Warn(w, "file", path)
		}
		return t, f, nil
	}

	t, err := f.Codec.Decode(data)
	if err != nil {
		return nil, core.Format{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, f, nil
}

// writeTable encodes t to path ("-" for stdout).
func writeTable(env Env, t *core.Table, path string, opts *rootOptions) error {
	f, err := codecFor(opts.to, path, opts)
	if err != nil {
		return err
	}
	body, err := f.Codec.Encode(t)
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.Name, err)
	}

	if path == stdio {
		_, err = env.Stdout.Write(body)
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	slog.Info("table written",
		"file", path,
		"format", f.Name,
		"columns", t.NumColumns(),
		"rows", t.NumRows(),
		"bytes", len(body),
	)
	return nil
}
