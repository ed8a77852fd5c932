package core

import (
	"context"
	"strings"
)

// GenerationRequest is what the data-generation collaborator receives.
type GenerationRequest struct {
	Headers     []string `json:"headers"`
	Instruction string   `json:"instruction"`
}

// Validate enforces the call precondition: at least one header and a
// non-blank instruction. The collaborator is never called otherwise.
func (r GenerationRequest) Validate() error {
	if len(r.Headers) == 0 || strings.TrimSpace(r.Instruction) == "" {
		return ErrGenerationPrecondition
	}
	return nil
}

var ErrGenerationPrecondition = &wrappedError{
	msg: "generation requires headers and a non-blank instruction",
	err: ErrGeneration,
}

// wrappedError is a static error that unwraps to a sentinel.
type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string { return e.msg }
func (e *wrappedError) Unwrap() error { return e.err }

// Generator synthesizes rows for the given headers. Implementations return
// the full batch or an error wrapping ErrGeneration; there is no partial
// result.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) ([]Record, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req GenerationRequest) ([]Record, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req GenerationRequest) ([]Record, error) {
	return f(ctx, req)
}
