package core

// registry.go maps file formats to codecs. Formats are registered at init
// time and looked up by name or by file extension.

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Codec encodes and decodes a table in one file format.
type Codec interface {
	Encode(t *Table) ([]byte, error)
	Decode(data []byte) (*Table, error)
}

// Format describes one import/export format.
type Format struct {
	Name      string // Extension without dot: "csv"
	Label     string // Display name: "CSV"
	MediaType string // Content-Type of exports
	Codec     Codec  `json:"-"`

	// EmptyIsTable marks formats whose empty input decodes to an empty
	// table instead of being rejected.
	EmptyIsTable bool `json:"-"`
}

// CheckEmpty returns ErrEmptyFile when data is empty and the format has no
// empty-document meaning.
func (f Format) CheckEmpty(data []byte) error {
	if len(data) == 0 && !f.EmptyIsTable {
		return ErrEmptyFile
	}
	return nil
}

var (
	formats   = make(map[string]Format)
	formatsMu sync.RWMutex
)

func init() {
	RegisterFormat(Format{Name: "csv", Label: "CSV", MediaType: "text/csv;charset=utf-8", Codec: NewCSVCodec(DefaultDelimiter), EmptyIsTable: true})
	RegisterFormat(Format{Name: "json", Label: "JSON", MediaType: "application/json;charset=utf-8", Codec: JSONCodec{}})
	RegisterFormat(Format{Name: "xlsx", Label: "Excel", MediaType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Codec: XLSXCodec{}})
}

// RegisterFormat adds or replaces a format. Names are case-insensitive.
func RegisterFormat(f Format) {
	formatsMu.Lock()
	defer formatsMu.Unlock()

	f.Name = strings.ToLower(f.Name)
	formats[f.Name] = f
}

// LookupFormat returns the format registered under name.
func LookupFormat(name string) (Format, error) {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	f, ok := formats[strings.ToLower(strings.TrimPrefix(name, "."))]
	if !ok {
		return Format{}, fmt.Errorf("%w: unsupported format %q", ErrFormat, name)
	}
	return f, nil
}

// FormatForFile picks a format from a file name's extension. Files without
// an extension are treated as CSV.
func FormatForFile(fileName string) (Format, error) {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return LookupFormat("csv")
	}
	return LookupFormat(ext)
}

// Formats returns every registered format sorted by name.
func Formats() []Format {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	result := make([]Format, 0, len(formats))
	for _, f := range formats {
		result = append(result, f)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// BaseName strips the directory and a known format extension from a file
// name. The result is safe to use in Content-Disposition; blank input gives
// DefaultBaseName.
func BaseName(fileName string) string {
	name := filepath.Base(strings.ReplaceAll(fileName, `\`, "/"))
	if ext := filepath.Ext(name); ext != "" {
		if _, err := LookupFormat(ext); err == nil {
			name = strings.TrimSuffix(name, ext)
		}
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '/' || r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return DefaultBaseName
	}
	return name
}

// Artifact is an encoded export ready for download.
type Artifact struct {
	FileName  string
	MediaType string
	Body      []byte
}

// Export encodes t in the named format. baseName becomes the file name
// stem.
func Export(t *Table, format, baseName string) (*Artifact, error) {
	f, err := LookupFormat(format)
	if err != nil {
		return nil, err
	}
	body, err := f.Codec.Encode(t)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f.Name, err)
	}
	return &Artifact{
		FileName:  BaseName(baseName) + "." + f.Name,
		MediaType: f.MediaType,
		Body:      body,
	}, nil
}
