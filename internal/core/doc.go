// Package core provides the table editor's domain logic.
//
// It contains the in-memory table, its codecs and the session service,
// independent of any UI or transport layer. It can be used by web handlers,
// CLI tools, or tests without modification.
//
// # Table
//
// A [Table] is an ordered list of headers and a list of rows of strings.
// Every operation leaves each row exactly as wide as the header list, and a
// table without columns has no rows:
//
//	t := core.NewTableFromRecords([]string{"a", "b"}, [][]string{{"1", "2"}})
//	t.Resize(3, 1) // headers a, b, Field 3
//	t.AppendRows([]core.Record{{"a": "x", "extra": "dropped"}})
//
// # Codecs
//
// Formats are registered in a registry keyed by file extension:
//
//   - [CSVCodec]: delimited text, ';' by default, quote-aware both ways,
//     BOM-prefixed output.
//   - [JSONCodec]: array of objects, keys in header order, headers of an
//     import fixed by its first element.
//   - [XLSXCodec]: single-sheet workbook with text cells.
//
// # Sessions
//
// Each browser session owns one table in a [SessionStore]. [Service.Import]
// decodes into a fresh table and swaps it in only on success, so a bad file
// never damages the table being edited. [Service.Generate] asks a
// [Generator] for rows matching the current headers and appends the whole
// batch at once.
//
// # Error Handling
//
// Errors wrap the sentinels [ErrIndex], [ErrInvariant], [ErrFormat] and
// [ErrGeneration]. [MapError] turns any error into a user-facing message
// with a support code.
package core
