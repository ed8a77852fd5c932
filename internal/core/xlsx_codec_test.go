package core

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestXLSXCodec_RoundTrip(t *testing.T) {
	original := NewTableFromRecords(
		[]string{"name", "age", "note"},
		[][]string{{"Ada", "36", "x;y"}, {"Grace", "", "line1\nline2"}},
	)

	data, err := XLSXCodec{}.Encode(original)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := XLSXCodec{}.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got := decoded.Headers(); !reflect.DeepEqual(got, original.Headers()) {
		t.Errorf("Headers() = %q, want %q", got, original.Headers())
	}
	// Trailing empty cells are not stored, so rows are padded back.
	if got := decoded.Rows(); !reflect.DeepEqual(got, original.Rows()) {
		t.Errorf("Rows() = %q, want %q", got, original.Rows())
	}
}

func TestXLSXCodec_DecodeSkipsLeadingBlankRows(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A3", "h1")
	f.SetCellValue("Sheet1", "B3", "h2")
	f.SetCellValue("Sheet1", "A4", "v1")
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	tbl, err := XLSXCodec{}.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got, want := tbl.Headers(), []string{"h1", "h2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Headers() = %q, want %q", got, want)
	}
	if got, want := tbl.Rows(), [][]string{{"v1", ""}}; !reflect.DeepEqual(got, want) {
		t.Errorf("Rows() = %q, want %q", got, want)
	}
}

func TestXLSXCodec_DecodeEmptyWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	tbl, err := XLSXCodec{}.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !tbl.IsEmpty() {
		t.Errorf("expected empty table, got %v", tbl.Headers())
	}
}

func TestXLSXCodec_DecodeGarbage(t *testing.T) {
	_, err := XLSXCodec{}.Decode([]byte("definitely not a zip archive"))
	if !errors.Is(err, ErrFormat) {
		t.Errorf("error = %v, want ErrFormat", err)
	}
}
