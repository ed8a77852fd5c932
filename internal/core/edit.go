package core

import "fmt"

// EditKind names one table edit.
type EditKind string

const (
	EditSetHeader     EditKind = "set_header"
	EditSetCell       EditKind = "set_cell"
	EditAddRow        EditKind = "add_row"
	EditAddColumn     EditKind = "add_column"
	EditDeleteRow     EditKind = "delete_row"
	EditDeleteColumn  EditKind = "delete_column"
	EditClear         EditKind = "clear"
	EditResize        EditKind = "resize"
	EditSetFieldName  EditKind = "set_field_name"
	EditSetFieldValue EditKind = "set_field_value"
)

// EditOp is a single edit as sent by the editor. Only the fields relevant
// to Op are read.
type EditOp struct {
	Op      EditKind `json:"op"`
	Row     int      `json:"row"`
	Col     int      `json:"col"`
	Value   string   `json:"value"`
	Columns int      `json:"columns"`
	Rows    int      `json:"rows"`
}

// ChangesHeaders reports whether the edit can rename, add, remove or
// reorder columns.
func (op EditOp) ChangesHeaders() bool {
	switch op.Op {
	case EditSetHeader, EditAddColumn, EditDeleteColumn, EditClear, EditResize, EditSetFieldName:
		return true
	}
	return false
}

// Apply performs the edit on t. In the field view Col is the field index
// and Row the record index.
func (op EditOp) Apply(t *Table) error {
	switch op.Op {
	case EditSetHeader:
		return t.SetHeader(op.Col, op.Value)
	case EditSetCell:
		return t.SetCell(op.Row, op.Col, op.Value)
	case EditAddRow:
		t.AddRow()
	case EditAddColumn:
		t.AddColumn(op.Value)
	case EditDeleteRow:
		return t.DeleteRow(op.Row)
	case EditDeleteColumn:
		return t.DeleteColumn(op.Col)
	case EditClear:
		t.Clear()
	case EditResize:
		t.Resize(op.Columns, op.Rows)
	case EditSetFieldName:
		return t.SetFieldName(op.Col, op.Value)
	case EditSetFieldValue:
		return t.SetFieldValue(op.Col, op.Row, op.Value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEdit, op.Op)
	}
	return nil
}
