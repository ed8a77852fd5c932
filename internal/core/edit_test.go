package core

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestEditOp_Apply(t *testing.T) {
	tests := []struct {
		name        string
		ops         []EditOp
		wantHeaders []string
		wantRows    [][]string
	}{
		{
			name: "add and fill",
			ops: []EditOp{
				{Op: EditAddColumn, Value: "City"},
				{Op: EditAddRow},
				{Op: EditSetCell, Row: 1, Col: 2, Value: "Oslo"},
			},
			wantHeaders: []string{"Field 1", "Field 2", "City"},
			wantRows:    [][]string{{"", "", ""}, {"", "", "Oslo"}},
		},
		{
			name: "field view edits",
			ops: []EditOp{
				{Op: EditSetFieldName, Col: 1, Value: "Age"},
				{Op: EditSetFieldValue, Col: 1, Row: 0, Value: "36"},
			},
			wantHeaders: []string{"Field 1", "Age"},
			wantRows:    [][]string{{"", "36"}},
		},
		{
			name: "delete row and column",
			ops: []EditOp{
				{Op: EditDeleteColumn, Col: 0},
				{Op: EditDeleteRow, Row: 0},
			},
			wantHeaders: []string{"Field 2"},
			wantRows:    [][]string{},
		},
		{
			name: "clear then resize",
			ops: []EditOp{
				{Op: EditClear},
				{Op: EditResize, Columns: 1, Rows: 2},
			},
			wantHeaders: []string{"Field 1"},
			wantRows:    [][]string{{""}, {""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := NewDefaultTable()
			for _, op := range tt.ops {
				if err := op.Apply(tbl); err != nil {
					t.Fatalf("Apply(%s) error = %v", op.Op, err)
				}
			}
			if got := tbl.Headers(); !reflect.DeepEqual(got, tt.wantHeaders) {
				t.Errorf("Headers() = %v, want %v", got, tt.wantHeaders)
			}
			if got := tbl.Rows(); !reflect.DeepEqual(got, tt.wantRows) {
				t.Errorf("Rows() = %v, want %v", got, tt.wantRows)
			}
		})
	}
}

func TestEditOp_ApplyUnknown(t *testing.T) {
	err := EditOp{Op: "explode"}.Apply(NewDefaultTable())
	if !errors.Is(err, ErrUnknownEdit) {
		t.Errorf("error = %v, want ErrUnknownEdit", err)
	}
}

func TestEditOp_JSON(t *testing.T) {
	var op EditOp
	if err := json.Unmarshal([]byte(`{"op":"set_cell","row":2,"col":1,"value":"x"}`), &op); err != nil {
		t.Fatal(err)
	}
	want := EditOp{Op: EditSetCell, Row: 2, Col: 1, Value: "x"}
	if op != want {
		t.Errorf("op = %+v, want %+v", op, want)
	}
}
