package core

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestSessionStore_CreateGet(t *testing.T) {
	st := NewSessionStore(0, time.Hour)

	s, err := st.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.ID == "" {
		t.Fatal("session ID is empty")
	}

	got, err := st.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != s {
		t.Error("Get() returned a different session")
	}

	tbl, name := got.Snapshot()
	if tbl.NumColumns() != 2 || tbl.NumRows() != 1 {
		t.Errorf("new session table is %dx%d, want 2x1", tbl.NumColumns(), tbl.NumRows())
	}
	if name != DefaultBaseName {
		t.Errorf("base name = %q, want %q", name, DefaultBaseName)
	}
}

func TestSessionStore_GetUnknown(t *testing.T) {
	st := NewSessionStore(0, time.Hour)
	if _, err := st.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStore_MaxSessions(t *testing.T) {
	st := NewSessionStore(2, time.Hour)
	for i := 0; i < 2; i++ {
		if _, err := st.Create(); err != nil {
			t.Fatalf("Create() #%d error = %v", i, err)
		}
	}
	if _, err := st.Create(); !errors.Is(err, ErrTooManySessions) {
		t.Errorf("third Create() error = %v, want ErrTooManySessions", err)
	}
}

func TestSessionStore_Sweep(t *testing.T) {
	st := NewSessionStore(0, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	idle, _ := st.Create()
	busy, _ := st.Create()
	fresh, _ := st.Create()
	if !busy.beginGeneration() {
		t.Fatal("beginGeneration failed")
	}

	now = now.Add(2 * time.Minute)
	st.Get(fresh.ID)

	if removed := st.Sweep(); removed != 1 {
		t.Errorf("Sweep() removed %d, want 1", removed)
	}
	if _, err := st.Get(idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("idle session should have expired")
	}
	if _, err := st.Get(busy.ID); err != nil {
		t.Error("session with a running generation should be kept")
	}
	if _, err := st.Get(fresh.ID); err != nil {
		t.Error("recently used session should be kept")
	}
}

func TestSessionStore_StartSweeperStops(t *testing.T) {
	st := NewSessionStore(0, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		st.StartSweeper(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("sweeper did not stop after cancel")
	}
}

func TestSession_ReplaceAndRename(t *testing.T) {
	st := NewSessionStore(0, time.Hour)
	s, _ := st.Create()

	s.Replace(NewTableFromRecords([]string{"x"}, nil), "imported")
	tbl, name := s.Snapshot()
	if tbl.NumColumns() != 1 || name != "imported" {
		t.Errorf("after Replace: %d columns, name %q", tbl.NumColumns(), name)
	}

	s.Replace(NewTable(), "")
	if _, name := s.Snapshot(); name != "imported" {
		t.Errorf("empty name should keep base name, got %q", name)
	}

	if got := s.SetBaseName("dir/final.csv"); got != "final" {
		t.Errorf("SetBaseName() = %q, want %q", got, "final")
	}
}

func TestSession_SnapshotIsIsolated(t *testing.T) {
	st := NewSessionStore(0, time.Hour)
	s, _ := st.Create()

	snap, _ := s.Snapshot()
	snap.SetCell(0, 0, "changed")

	again, _ := s.Snapshot()
	if v, _ := again.Cell(0, 0); v != "" {
		t.Errorf("session table sees snapshot edit %q", v)
	}
}

func TestSession_ConcurrentEdits(t *testing.T) {
	st := NewSessionStore(0, time.Hour)
	s, _ := st.Create()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.apply(EditOp{Op: EditAddRow}); err != nil {
				t.Errorf("apply() error = %v", err)
			}
		}()
	}
	wg.Wait()

	tbl, _ := s.Snapshot()
	if tbl.NumRows() != 51 {
		t.Errorf("NumRows() = %d, want 51", tbl.NumRows())
	}
}

func TestSession_GenerationFlag(t *testing.T) {
	st := NewSessionStore(0, time.Hour)
	s, _ := st.Create()

	if !s.beginGeneration() {
		t.Fatal("first beginGeneration should succeed")
	}
	if s.beginGeneration() {
		t.Error("second beginGeneration should fail")
	}
	if !s.Generating() {
		t.Error("Generating() = false during generation")
	}
	s.endGeneration()
	if s.Generating() {
		t.Error("Generating() = true after endGeneration")
	}
}

func TestSession_HeaderEditsWaitForGeneration(t *testing.T) {
	st := NewSessionStore(0, time.Hour)
	s, _ := st.Create()
	s.beginGeneration()

	refused := []EditOp{
		{Op: EditSetHeader, Col: 0, Value: "renamed"},
		{Op: EditSetFieldName, Col: 0, Value: "renamed"},
		{Op: EditAddColumn},
		{Op: EditDeleteColumn, Col: 1},
		{Op: EditClear},
		{Op: EditResize, Columns: 3, Rows: 1},
	}
	for _, op := range refused {
		if _, err := s.apply(op); !errors.Is(err, ErrGenerationInProgress) {
			t.Errorf("apply(%s) error = %v, want ErrGenerationInProgress", op.Op, err)
		}
	}
	for _, op := range []EditOp{
		{Op: EditSetCell, Row: 0, Col: 0, Value: "x"},
		{Op: EditAddRow},
		{Op: EditDeleteRow, Row: 1},
	} {
		if _, err := s.apply(op); err != nil {
			t.Errorf("apply(%s) error = %v", op.Op, err)
		}
	}

	tbl, _ := s.Snapshot()
	if got, want := tbl.Headers(), []string{"Field 1", "Field 2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Headers() = %v, want %v", got, want)
	}

	s.endGeneration()
	if _, err := s.apply(EditOp{Op: EditSetHeader, Col: 0, Value: "renamed"}); err != nil {
		t.Errorf("apply() after generation error = %v", err)
	}
}

func TestSession_AppendRecords(t *testing.T) {
	st := NewSessionStore(0, time.Hour)
	s, _ := st.Create()

	n, tbl := s.appendRecords([]Record{{"Field 1": "a"}, {"Field 2": "b"}})
	if n != 2 {
		t.Errorf("appended = %d, want 2", n)
	}
	if want := [][]string{{"", ""}, {"a", ""}, {"", "b"}}; !reflect.DeepEqual(tbl.Rows(), want) {
		t.Errorf("Rows() = %v, want %v", tbl.Rows(), want)
	}
}
