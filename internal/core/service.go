package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/tabledit/internal/config"
	"github.com/JonMunkholm/tabledit/internal/logging"
)

// Service provides the editor operations on top of the session store. It
// has no transport dependencies and is shared by the web server and tests.
type Service struct {
	sessions  *SessionStore
	generator Generator
	limiter   *GenerationLimiter
	csv       CSVCodec

	maxImportSize     int64
	generationTimeout time.Duration
}

// NewService creates a Service. A nil generator disables data generation.
func NewService(cfg *config.Config, generator Generator) *Service {
	return &Service{
		sessions:          NewSessionStore(cfg.Session.MaxSessions, cfg.Session.IdleTimeout),
		generator:         generator,
		limiter:           NewGenerationLimiter(cfg.Generation.MaxConcurrent, cfg.Generation.MaxWaitTime),
		csv:               NewCSVCodec(cfg.Export.Delimiter()),
		maxImportSize:     cfg.Import.MaxFileSize,
		generationTimeout: cfg.Generation.Timeout,
	}
}

// Sessions exposes the session store.
func (s *Service) Sessions() *SessionStore { return s.sessions }

// GenerationEnabled reports whether a generator is configured.
func (s *Service) GenerationEnabled() bool { return s.generator != nil }

// CreateSession starts a new session with the default table.
func (s *Service) CreateSession(ctx context.Context) (*Session, error) {
	sess, err := s.sessions.Create()
	if err != nil {
		return nil, err
	}
	logging.WithFields(ctx, "session_id", sess.ID).Debug("session created",
		"active_sessions", s.sessions.Len(),
	)
	return sess, nil
}

// Session returns a live session.
func (s *Service) Session(id string) (*Session, error) {
	return s.sessions.Get(id)
}

// Table returns a snapshot of the session's table and its export base name.
func (s *Service) Table(ctx context.Context, sessionID string) (*Table, string, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, "", err
	}
	t, name := sess.Snapshot()
	return t, name, nil
}

// Rename sets the export base name and returns it after sanitizing.
func (s *Service) Rename(ctx context.Context, sessionID, name string) (string, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return "", err
	}
	return sess.SetBaseName(name), nil
}

// format resolves a format, substituting the configured CSV delimiter.
func (s *Service) format(name string) (Format, error) {
	f, err := LookupFormat(name)
	if err != nil {
		return Format{}, err
	}
	if f.Name == "csv" {
		f.Codec = s.csv
	}
	return f, nil
}

// ImportResult is the outcome of a successful import.
type ImportResult struct {
	Table    *Table
	BaseName string
	Format   string
	Warnings []string
}

// reportingDecoder is implemented by codecs that can describe discarded data.
type reportingDecoder interface {
	DecodeWithReport(text string) (*Table, DecodeReport, error)
}

// Import decodes data into a new table and swaps it into the session only
// when decoding succeeds. The format comes from fileName's extension.
func (s *Service) Import(ctx context.Context, sessionID, fileName string, data []byte) (*ImportResult, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if s.maxImportSize > 0 && int64(len(data)) > s.maxImportSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, len(data), s.maxImportSize)
	}

	f, err := FormatForFile(fileName)
	if err != nil {
		return nil, err
	}
	f, err = s.format(f.Name)
	if err != nil {
		return nil, err
	}
	if err := f.CheckEmpty(data); err != nil {
		return nil, err
	}

	logger := logging.WithFields(ctx, "session_id", sessionID, "format", f.Name, "file", fileName)

	var (
		candidate *Table
		report    DecodeReport
	)
	if rd, ok := f.Codec.(reportingDecoder); ok {
		candidate, report, err = rd.DecodeWithReport(string(data))
	} else {
		candidate, err = f.Codec.Decode(data)
	}
	if err != nil {
		logger.Warn("import rejected", "error", err)
		return nil, err
	}

	name := BaseName(fileName)
	result := candidate.Clone()
	sess.Replace(candidate, name)

	warnings := report.Warnings()
	if len(warnings) > 0 {
		logger.Warn("import dropped data", "dropped_keys", report.DroppedKeys)
	}
	logger.Info("import completed",
		"columns", result.NumColumns(),
		"rows", result.NumRows(),
	)

	return &ImportResult{
		Table:    result,
		BaseName: name,
		Format:   f.Name,
		Warnings: warnings,
	}, nil
}

// Export encodes the session's table in the named format.
func (s *Service) Export(ctx context.Context, sessionID, format string) (*Artifact, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	f, err := s.format(format)
	if err != nil {
		return nil, err
	}

	t, baseName := sess.Snapshot()
	body, err := f.Codec.Encode(t)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f.Name, err)
	}

	logging.WithFields(ctx, "session_id", sessionID, "format", f.Name).Debug("export encoded",
		"bytes", len(body),
	)
	return &Artifact{
		FileName:  BaseName(baseName) + "." + f.Name,
		MediaType: f.MediaType,
		Body:      body,
	}, nil
}

// Edit applies op to the session's table and returns the resulting table.
func (s *Service) Edit(ctx context.Context, sessionID string, op EditOp) (*Table, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	result, err := sess.apply(op)
	if err != nil {
		logging.WithFields(ctx, "session_id", sessionID, "op", op.Op).Debug("edit refused", "error", err)
		return nil, err
	}
	return result, nil
}

// GenerationResult is the outcome of a successful generation.
type GenerationResult struct {
	Table    *Table
	Appended int
}

// Generate asks the collaborator for rows matching the session's headers
// and appends the whole batch. A failure leaves the table unchanged. Only
// one generation may run per session.
func (s *Service) Generate(ctx context.Context, sessionID, instruction string) (*GenerationResult, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if s.generator == nil {
		return nil, ErrGenerationDisabled
	}

	// The flag is set before the headers are read so that no header edit
	// can land between the snapshot and the append.
	if !sess.beginGeneration() {
		return nil, ErrGenerationInProgress
	}
	defer sess.endGeneration()

	snapshot, _ := sess.Snapshot()
	req := GenerationRequest{Headers: snapshot.Headers(), Instruction: instruction}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	logger := logging.WithFields(ctx, "session_id", sessionID, "columns", len(req.Headers))
	start := time.Now()

	genCtx := ctx
	if s.generationTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.generationTimeout)
		defer cancel()
	}

	records, err := s.generator.Generate(genCtx, req)
	if err != nil {
		logger.Error("generation failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		if !errors.Is(err, ErrGeneration) {
			err = fmt.Errorf("%w: %w", ErrGeneration, err)
		}
		return nil, err
	}

	appended, result := sess.appendRecords(records)

	logger.Info("generation completed",
		"received", len(records),
		"appended", appended,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &GenerationResult{Table: result, Appended: appended}, nil
}

// GenerationStatus returns the limiter state for monitoring.
func (s *Service) GenerationStatus() GenerationLimiterStatus {
	return s.limiter.Status()
}

// WaitForGenerations blocks until running generations finish or ctx is done.
func (s *Service) WaitForGenerations(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// StartSessionSweeper expires idle sessions every interval until ctx is
// cancelled.
func (s *Service) StartSessionSweeper(ctx context.Context, interval time.Duration) {
	s.sessions.StartSweeper(ctx, interval)
}
