package core

// csv_codec.go converts tables to and from delimited text.
//
// Encoding quotes any field containing the delimiter, a double quote or a
// line break (RFC 4180 style, with a configurable delimiter) and prefixes the
// output with a UTF-8 BOM so spreadsheet applications detect the charset.
//
// Decoding is quote-aware, so everything the encoder writes comes back
// unchanged. encoding/csv folds CRLF to LF even inside quotes, so carriage
// returns in quoted fields are swapped for a placeholder rune before parsing
// and restored afterwards.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// DefaultDelimiter is the field separator used when none is configured.
const DefaultDelimiter = ';'

// BOM is the UTF-8 byte order mark prepended to CSV exports.
const BOM = "\uFEFF"

// CSVCodec encodes and decodes delimited text.
type CSVCodec struct {
	Delimiter rune
}

// NewCSVCodec returns a codec for delim, falling back to DefaultDelimiter
// when delim is zero.
func NewCSVCodec(delim rune) CSVCodec {
	if delim == 0 {
		delim = DefaultDelimiter
	}
	return CSVCodec{Delimiter: delim}
}

func (c CSVCodec) delimiter() rune {
	if c.Delimiter == 0 {
		return DefaultDelimiter
	}
	return c.Delimiter
}

// EncodeString renders t as BOM-prefixed delimited text. Lines are joined
// with "\n" and there is no trailing newline.
func (c CSVCodec) EncodeString(t *Table) string {
	delim := c.delimiter()

	var b strings.Builder
	b.WriteString(BOM)
	c.writeRecord(&b, t.headers, delim)
	for _, row := range t.rows {
		b.WriteByte('\n')
		c.writeRecord(&b, row, delim)
	}
	return b.String()
}

// Encode implements Codec.
func (c CSVCodec) Encode(t *Table) ([]byte, error) {
	return []byte(c.EncodeString(t)), nil
}

func (c CSVCodec) writeRecord(b *strings.Builder, record []string, delim rune) {
	// A lone empty field would otherwise be a blank line, which decoding skips.
	if len(record) == 1 && record[0] == "" {
		b.WriteString(`""`)
		return
	}
	for i, field := range record {
		if i > 0 {
			b.WriteRune(delim)
		}
		if !fieldNeedsQuotes(field, delim) {
			b.WriteString(field)
			continue
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(field, `"`, `""`))
		b.WriteByte('"')
	}
}

// fieldNeedsQuotes reports whether field contains the delimiter, a double
// quote, or a line break.
func fieldNeedsQuotes(field string, delim rune) bool {
	return strings.ContainsRune(field, delim) || strings.ContainsAny(field, "\"\r\n")
}

// DecodeString parses delimited text into a new table. The first non-blank
// record is the header row; every following record is padded or truncated
// to the header count. Blank lines are skipped and empty input yields an
// empty table.
func (c CSVCodec) DecodeString(text string) (*Table, error) {
	text = strings.TrimPrefix(text, BOM)
	text, placeholder := protectQuotedCR(text, c.delimiter())

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = c.delimiter()
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	headers, err := readRecord(r, placeholder)
	if errors.Is(err, io.EOF) {
		return NewTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: csv header: %v", ErrFormat, err)
	}

	var rows [][]string
	for {
		record, err := readRecord(r, placeholder)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv: %v", ErrFormat, err)
		}
		rows = append(rows, record)
	}

	return NewTableFromRecords(headers, rows), nil
}

// readRecord reads one record and puts back carriage returns hidden by
// protectQuotedCR.
func readRecord(r *csv.Reader, placeholder string) ([]string, error) {
	record, err := r.Read()
	if err != nil || placeholder == "" {
		return record, err
	}
	for i, field := range record {
		record[i] = strings.ReplaceAll(field, placeholder, "\r")
	}
	return record, nil
}

// protectQuotedCR replaces every '\r' inside a quoted field with a rune that
// does not occur in text and returns that rune. Text without carriage
// returns is returned unchanged with an empty placeholder.
func protectQuotedCR(text string, delim rune) (string, string) {
	if !strings.Contains(text, "\r") {
		return text, ""
	}
	placeholder := unusedRune(text)

	var b strings.Builder
	b.Grow(len(text))
	inQuotes, fieldStart := false, true
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size

		if inQuotes {
			switch {
			case r == '"' && strings.HasPrefix(text[i:], `"`):
				b.WriteString(`""`)
				i++
				continue
			case r == '"':
				inQuotes = false
			case r == '\r':
				b.WriteString(placeholder)
				continue
			}
			b.WriteRune(r)
			continue
		}

		switch {
		case r == '"' && fieldStart:
			inQuotes, fieldStart = true, false
		case r == delim || r == '\n':
			fieldStart = true
		case r == '\r':
		default:
			fieldStart = false
		}
		b.WriteRune(r)
	}
	return b.String(), placeholder
}

// unusedRune returns a private-use rune absent from text.
func unusedRune(text string) string {
	for r := rune(0xE000); r <= 0xF8FF; r++ {
		if !strings.ContainsRune(text, r) {
			return string(r)
		}
	}
	for r := rune(0xF0000); ; r++ {
		if !strings.ContainsRune(text, r) {
			return string(r)
		}
	}
}

// Decode implements Codec.
func (c CSVCodec) Decode(data []byte) (*Table, error) {
	return c.DecodeString(string(data))
}
