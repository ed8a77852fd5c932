package core

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXSheet is the sheet written by XLSXCodec.Encode.
const XLSXSheet = "Sheet1"

// XLSXCodec reads and writes single-sheet workbooks. Every value is
// treated as text.
type XLSXCodec struct{}

// Encode writes t to a workbook with the headers on the first row.
func (XLSXCodec) Encode(t *Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheetRow(f, 1, t.headers); err != nil {
		return nil, err
	}
	for i, row := range t.rows {
		if err := writeSheetRow(f, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheetRow(f *excelize.File, rowNum int, values []string) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", rowNum, err)
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(XLSXSheet, cell, &row); err != nil {
		return fmt.Errorf("write row %d: %w", rowNum, err)
	}
	return nil
}

// Decode reads the first sheet of a workbook. The first non-empty row is
// the header row; shorter rows are padded and longer rows truncated.
func (XLSXCodec) Decode(data []byte) (*Table, error) {
	if len(data) == 0 {
		return NewTable(), nil
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: xlsx: %v", ErrFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return NewTable(), nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: xlsx sheet %q: %v", ErrFormat, sheets[0], err)
	}

	// GetRows keeps interior blank rows as empty slices; skip leading ones.
	start := 0
	for start < len(rows) && len(rows[start]) == 0 {
		start++
	}
	if start == len(rows) {
		return NewTable(), nil
	}

	return NewTableFromRecords(rows[start], rows[start+1:]), nil
}
