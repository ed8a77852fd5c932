package core

// json_codec.go converts tables to and from a JSON array of objects.
//
// Object keys follow header order on encode and document order on decode,
// so the codec reads raw JSON with gjson instead of unmarshalling into maps.
// The header set of an imported document is fixed by its first element;
// keys that only appear in later elements are dropped and reported.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// JSONCodec encodes and decodes JSON arrays of objects.
type JSONCodec struct{}

// DecodeReport describes data an import had to discard.
type DecodeReport struct {
	// DroppedKeys lists keys found in later elements but not in the first
	// one, in order of first appearance.
	DroppedKeys []string `json:"dropped_keys,omitempty"`
}

// Warnings renders the report as user-facing messages.
func (r DecodeReport) Warnings() []string {
	if len(r.DroppedKeys) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("ignored keys not present in the first record: %s",
		strings.Join(r.DroppedKeys, ", "))}
}

// EncodeString renders t as an indented JSON array with one object per row.
// With duplicate headers the key keeps its first position and the value of
// the last such column.
func (JSONCodec) EncodeString(t *Table) (string, error) {
	keys, lastIndex := uniqueKeys(t.headers)

	var compact bytes.Buffer
	compact.WriteByte('[')
	for i, row := range t.rows {
		if i > 0 {
			compact.WriteByte(',')
		}
		compact.WriteByte('{')
		for k, key := range keys {
			if k > 0 {
				compact.WriteByte(',')
			}
			if err := writeJSONString(&compact, key); err != nil {
				return "", err
			}
			compact.WriteByte(':')
			if err := writeJSONString(&compact, row[lastIndex[key]]); err != nil {
				return "", err
			}
		}
		compact.WriteByte('}')
	}
	compact.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return "", fmt.Errorf("indent json: %w", err)
	}
	return out.String(), nil
}

// Encode implements Codec.
func (c JSONCodec) Encode(t *Table) ([]byte, error) {
	s, err := c.EncodeString(t)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// uniqueKeys returns headers in first-occurrence order and, for each, the
// index of its last occurrence.
func uniqueKeys(headers []string) ([]string, map[string]int) {
	keys := make([]string, 0, len(headers))
	last := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, seen := last[h]; !seen {
			keys = append(keys, h)
		}
		last[h] = i
	}
	return keys, last
}

// writeJSONString writes s as a JSON string literal without HTML escaping.
func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode json string: %w", err)
	}
	// Encoder terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// DecodeString parses a JSON array of objects into a new table.
func (c JSONCodec) DecodeString(text string) (*Table, error) {
	t, _, err := c.DecodeWithReport(text)
	return t, err
}

// Decode implements Codec.
func (c JSONCodec) Decode(data []byte) (*Table, error) {
	return c.DecodeString(string(data))
}

// DecodeWithReport parses text like DecodeString and also reports the keys
// that were dropped because the first element did not have them.
func (JSONCodec) DecodeWithReport(text string) (*Table, DecodeReport, error) {
	var report DecodeReport

	text = strings.TrimPrefix(text, BOM)
	if !gjson.Valid(text) {
		return nil, report, fmt.Errorf("%w: json: malformed document", ErrFormat)
	}

	root := gjson.Parse(text)
	if !root.IsArray() {
		return nil, report, fmt.Errorf("%w: json: root must be an array of objects", ErrFormat)
	}
	elements := root.Array()
	if len(elements) == 0 {
		return nil, report, fmt.Errorf("%w: json: array must not be empty", ErrFormat)
	}
	if !elements[0].IsObject() {
		return nil, report, fmt.Errorf("%w: json: first element must be an object", ErrFormat)
	}

	first := objectFields(elements[0])
	headers := first.keys

	dropped := make(map[string]bool)
	rows := make([][]string, 0, len(elements))
	for _, el := range elements {
		row := make([]string, len(headers))
		if el.IsObject() {
			obj := objectFields(el)
			for i, h := range headers {
				if v, ok := obj.values[h]; ok {
					row[i] = stringifyJSON(v)
				}
			}
			for _, k := range obj.keys {
				if _, known := first.values[k]; !known && !dropped[k] {
					dropped[k] = true
					report.DroppedKeys = append(report.DroppedKeys, k)
				}
			}
		}
		rows = append(rows, row)
	}

	return NewTableFromRecords(headers, rows), report, nil
}

// jsonObject is an object's keys in document order and its values, with
// the last value winning for repeated keys.
type jsonObject struct {
	keys   []string
	values map[string]gjson.Result
}

func objectFields(obj gjson.Result) jsonObject {
	o := jsonObject{values: make(map[string]gjson.Result)}
	obj.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if _, seen := o.values[k]; !seen {
			o.keys = append(o.keys, k)
		}
		o.values[k] = value
		return true
	})
	return o
}

// stringifyJSON converts an imported JSON value to cell text. Numbers are
// written in shortest decimal form, null becomes empty, and nested values
// become compact JSON.
func stringifyJSON(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return v.Str
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	case gjson.Number:
		return formatJSONNumber(v)
	default:
		return gjson.Get(v.Raw, "@ugly").Raw
	}
}

// maxExactInt is the largest integer a float64 holds without rounding.
const maxExactInt = 1 << 53

// formatJSONNumber renders a number without exponent or trailing zeros.
// Integer literals beyond float64 precision keep their digits.
func formatJSONNumber(v gjson.Result) string {
	raw := strings.TrimSpace(v.Raw)
	if math.Abs(v.Num) >= maxExactInt && !strings.ContainsAny(raw, ".eE") {
		return raw
	}
	return strconv.FormatFloat(v.Num, 'f', -1, 64)
}

// RecordsFromJSON parses a JSON array of objects into records keyed by
// object key. Values are converted to text the same way imports are.
// Elements that are not objects yield empty records.
func RecordsFromJSON(text string) ([]Record, error) {
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("%w: json: malformed document", ErrFormat)
	}
	root := gjson.Parse(text)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: json: root must be an array", ErrFormat)
	}

	elements := root.Array()
	records := make([]Record, 0, len(elements))
	for _, el := range elements {
		rec := make(Record)
		if el.IsObject() {
			obj := objectFields(el)
			for k, v := range obj.values {
				rec[k] = stringifyJSON(v)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
