package core

// table.go implements the in-memory table edited by a session.
//
// A Table is a list of headers plus a list of rows of cell strings. Every
// exported operation leaves the table rectangular: each row has exactly
// len(headers) cells, and a table without columns has no rows.
//
// Tables are not safe for concurrent use. The owning Session serializes
// access.

import (
	"fmt"
	"strconv"
	"strings"
)

// AutoHeaderPrefix is the prefix for generated column names ("Field 3").
const AutoHeaderPrefix = "Field "

// DefaultBaseName is the export file name used before anything is imported.
const DefaultBaseName = "data"

// Record is one externally supplied row keyed by header name.
type Record map[string]string

// Field is one column of the transposed view.
type Field struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Table holds headers and rows of string cells.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// NewDefaultTable returns the starting table of a fresh session: two
// auto-named columns and one empty row.
func NewDefaultTable() *Table {
	t := NewTable()
	t.Resize(2, 1)
	return t
}

// NewTableFromRecords builds a table from headers and positional rows.
// Rows are padded with empty strings or truncated to the header count.
// The inputs are copied.
func NewTableFromRecords(headers []string, rows [][]string) *Table {
	t := &Table{headers: append([]string(nil), headers...)}
	if len(t.headers) == 0 {
		return t
	}
	t.rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		t.rows = append(t.rows, fitRow(r, len(t.headers)))
	}
	return t
}

// fitRow copies r into a new slice of exactly n cells.
func fitRow(r []string, n int) []string {
	out := make([]string, n)
	copy(out, r)
	return out
}

// autoHeader returns the generated name for the column at position i (0-based).
func autoHeader(i int) string {
	return AutoHeaderPrefix + strconv.Itoa(i+1)
}

// NumColumns returns the header count.
func (t *Table) NumColumns() int { return len(t.headers) }

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.rows) }

// IsEmpty reports whether the table has neither headers nor rows.
func (t *Table) IsEmpty() bool { return len(t.headers) == 0 && len(t.rows) == 0 }

// Headers returns a copy of the headers.
func (t *Table) Headers() []string {
	return append([]string{}, t.headers...)
}

// Rows returns a deep copy of the rows.
func (t *Table) Rows() [][]string {
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]string{}, r...)
	}
	return out
}

// Header returns the header at col.
func (t *Table) Header(col int) (string, error) {
	if err := t.checkColumn(col); err != nil {
		return "", err
	}
	return t.headers[col], nil
}

// Cell returns the value at (row, col).
func (t *Table) Cell(row, col int) (string, error) {
	if err := t.checkRow(row); err != nil {
		return "", err
	}
	if err := t.checkColumn(col); err != nil {
		return "", err
	}
	return t.rows[row][col], nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	return &Table{headers: t.Headers(), rows: t.Rows()}
}

func (t *Table) checkColumn(col int) error {
	if col < 0 || col >= len(t.headers) {
		return fmt.Errorf("column %d: %w [0, %d)", col, ErrIndex, len(t.headers))
	}
	return nil
}

func (t *Table) checkRow(row int) error {
	if row < 0 || row >= len(t.rows) {
		return fmt.Errorf("row %d: %w [0, %d)", row, ErrIndex, len(t.rows))
	}
	return nil
}

// SetHeader replaces the header at col.
func (t *Table) SetHeader(col int, value string) error {
	if err := t.checkColumn(col); err != nil {
		return err
	}
	t.headers[col] = value
	return nil
}

// SetCell replaces the cell at (row, col).
func (t *Table) SetCell(row, col int, value string) error {
	if err := t.checkRow(row); err != nil {
		return err
	}
	if err := t.checkColumn(col); err != nil {
		return err
	}
	t.rows[row][col] = value
	return nil
}

// AddRow appends a row of empty cells. A table without columns stays
// without rows.
func (t *Table) AddRow() {
	if len(t.headers) == 0 {
		return
	}
	t.rows = append(t.rows, make([]string, len(t.headers)))
}

// AddColumn appends a column named name, or an auto-generated name when
// name is blank, and an empty cell to every row.
func (t *Table) AddColumn(name string) {
	if strings.TrimSpace(name) == "" {
		name = autoHeader(len(t.headers))
	}
	t.headers = append(t.headers, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], "")
	}
}

// DeleteRow removes the row at index row.
func (t *Table) DeleteRow(row int) error {
	if err := t.checkRow(row); err != nil {
		return err
	}
	t.rows = append(t.rows[:row], t.rows[row+1:]...)
	return nil
}

// DeleteColumn removes the column at col from the headers and every row.
// The last remaining column cannot be deleted; use Clear instead.
func (t *Table) DeleteColumn(col int) error {
	if len(t.headers) <= 1 {
		return fmt.Errorf("delete column %d: %w: table must keep at least one column", col, ErrInvariant)
	}
	if err := t.checkColumn(col); err != nil {
		return err
	}
	t.headers = append(t.headers[:col], t.headers[col+1:]...)
	for i, r := range t.rows {
		t.rows[i] = append(r[:col], r[col+1:]...)
	}
	return nil
}

// Clear empties headers and rows.
func (t *Table) Clear() {
	t.headers = nil
	t.rows = nil
}

// Resize makes the table exactly columns wide and rows long. New columns
// get auto-generated names, new cells are empty, and shrinking keeps the
// first columns and rows. A non-positive target clears the table.
func (t *Table) Resize(columns, rows int) {
	if columns <= 0 || rows <= 0 {
		t.Clear()
		return
	}

	if columns < len(t.headers) {
		t.headers = t.headers[:columns:columns]
		for i, r := range t.rows {
			t.rows[i] = r[:columns:columns]
		}
	}
	for len(t.headers) < columns {
		t.AddColumn("")
	}

	if rows < len(t.rows) {
		t.rows = t.rows[:rows:rows]
	}
	for len(t.rows) < rows {
		t.AddRow()
	}
}

// AppendRows appends records projected onto the current headers. Values for
// headers missing from a record are empty; keys that are not headers are
// dropped. With duplicate headers every matching column gets the value.
func (t *Table) AppendRows(records []Record) {
	if len(t.headers) == 0 {
		return
	}
	for _, rec := range records {
		row := make([]string, len(t.headers))
		for i, h := range t.headers {
			row[i] = rec[h]
		}
		t.rows = append(t.rows, row)
	}
}

// Fields returns the transposed view: one Field per column with the values
// of that column in row order.
func (t *Table) Fields() []Field {
	fields := make([]Field, len(t.headers))
	for c, h := range t.headers {
		values := make([]string, len(t.rows))
		for r, row := range t.rows {
			values[r] = row[c]
		}
		fields[c] = Field{Name: h, Values: values}
	}
	return fields
}

// SetFieldName renames a field in the transposed view.
func (t *Table) SetFieldName(field int, value string) error {
	return t.SetHeader(field, value)
}

// SetFieldValue edits the value of field for record in the transposed view.
func (t *Table) SetFieldValue(field, record int, value string) error {
	return t.SetCell(record, field, value)
}
