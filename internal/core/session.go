package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one editor's in-memory workspace. The table is owned
// exclusively by the session and every access holds mu.
type Session struct {
	ID string

	mu         sync.Mutex
	table      *Table
	baseName   string
	generating bool
	lastAccess time.Time
}

// apply performs op on the table and returns a copy of the result. Edits
// that change the headers are refused while a generation is running, since
// generated records are keyed by the headers sent with the request.
func (s *Session) apply(op EditOp) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating && op.ChangesHeaders() {
		return nil, fmt.Errorf("%s: %w", op.Op, ErrGenerationInProgress)
	}
	if err := op.Apply(s.table); err != nil {
		return nil, err
	}
	return s.table.Clone(), nil
}

// appendRecords appends records to the table and returns how many rows were
// added along with a copy of the result.
func (s *Session) appendRecords(records []Record) (int, *Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.table.NumRows()
	s.table.AppendRows(records)
	return s.table.NumRows() - before, s.table.Clone()
}

// Snapshot returns a copy of the table and the export base name.
func (s *Session) Snapshot() (*Table, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Clone(), s.baseName
}

// Replace swaps in a new table, and a new base name when name is non-empty.
func (s *Session) Replace(t *Table, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = t
	if name != "" {
		s.baseName = name
	}
}

// SetBaseName sets the file name stem used for exports.
func (s *Session) SetBaseName(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseName = BaseName(name)
	return s.baseName
}

// beginGeneration marks a generation as running. It returns false when one
// is already running.
func (s *Session) beginGeneration() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating {
		return false
	}
	s.generating = true
	return true
}

func (s *Session) endGeneration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = false
}

// Generating reports whether a generation is running.
func (s *Session) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastAccess)
}

// SessionStore keeps sessions in memory and expires idle ones.
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	idleTimeout time.Duration
	now         func() time.Time
}

// NewSessionStore creates a store holding at most maxSessions sessions
// (unbounded when zero) that expire after idleTimeout without access.
func NewSessionStore(maxSessions int, idleTimeout time.Duration) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Create starts a session holding the default table.
func (st *SessionStore) Create() (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.maxSessions > 0 && len(st.sessions) >= st.maxSessions {
		return nil, ErrTooManySessions
	}

	s := &Session{
		ID:         uuid.NewString(),
		table:      NewDefaultTable(),
		baseName:   DefaultBaseName,
		lastAccess: st.now(),
	}
	st.sessions[s.ID] = s
	return s, nil
}

// Get returns the session and refreshes its last access time.
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(st.now())
	return s, nil
}

// Delete removes a session. Unknown ids are ignored.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than the idle timeout and returns
// how many were removed. Sessions with a running generation are kept.
func (st *SessionStore) Sweep() int {
	if st.idleTimeout <= 0 {
		return 0
	}
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if s.idleSince(now) > st.idleTimeout && !s.Generating() {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (st *SessionStore) StartSweeper(ctx context.Context, interval time.Duration) {
	slog.Info("session sweeper started",
		"interval", interval,
		"idle_timeout", st.idleTimeout,
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if removed := st.Sweep(); removed > 0 {
				slog.Info("expired idle sessions",
					"removed", removed,
					"remaining", st.Len(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
		}
	}
}
