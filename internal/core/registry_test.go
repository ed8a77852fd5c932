package core

import (
	"errors"
	"strings"
	"testing"
)

func TestLookupFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"csv", "csv", false},
		{".JSON", "json", false},
		{"XLSX", "xlsx", false},
		{"pdf", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f, err := LookupFormat(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrFormat) {
					t.Errorf("error = %v, want ErrFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LookupFormat(%q) error = %v", tt.input, err)
			}
			if f.Name != tt.want {
				t.Errorf("Name = %q, want %q", f.Name, tt.want)
			}
		})
	}
}

func TestFormatForFile(t *testing.T) {
	tests := []struct {
		file    string
		want    string
		wantErr bool
	}{
		{"data.csv", "csv", false},
		{"Report.XLSX", "xlsx", false},
		{"dir/rows.json", "json", false},
		{"noext", "csv", false},
		{"notes.txt", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			f, err := FormatForFile(tt.file)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if MapError(err).Code != "FILE002" {
					t.Errorf("code = %q, want FILE002", MapError(err).Code)
				}
				return
			}
			if err != nil {
				t.Fatalf("FormatForFile(%q) error = %v", tt.file, err)
			}
			if f.Name != tt.want {
				t.Errorf("Name = %q, want %q", f.Name, tt.want)
			}
		})
	}
}

func TestFormat_CheckEmpty(t *testing.T) {
	tests := []struct {
		format string
		data   []byte
		want   error
	}{
		{"csv", nil, nil},
		{"json", nil, ErrEmptyFile},
		{"xlsx", []byte{}, ErrEmptyFile},
		{"json", []byte("[]"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			f, err := LookupFormat(tt.format)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.CheckEmpty(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("CheckEmpty() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFormats_Sorted(t *testing.T) {
	var names []string
	for _, f := range Formats() {
		names = append(names, f.Name)
	}
	if got := strings.Join(names, ","); got != "csv,json,xlsx" {
		t.Errorf("Formats() = %s, want csv,json,xlsx", got)
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"people.csv", "people"},
		{"C:\\Users\\me\\report.xlsx", "report"},
		{"/tmp/archive.tar", "archive.tar"},
		{"q3.json", "q3"},
		{`bad"name.csv`, "badname"},
		{"", DefaultBaseName},
		{"  ", DefaultBaseName},
		{".csv", DefaultBaseName},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := BaseName(tt.input); got != tt.want {
				t.Errorf("BaseName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExport(t *testing.T) {
	tbl := NewTableFromRecords([]string{"a"}, [][]string{{"1"}})

	a, err := Export(tbl, "json", "people.csv")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if a.FileName != "people.json" {
		t.Errorf("FileName = %q, want %q", a.FileName, "people.json")
	}
	if !strings.HasPrefix(a.MediaType, "application/json") {
		t.Errorf("MediaType = %q", a.MediaType)
	}
	if !strings.Contains(string(a.Body), `"a": "1"`) {
		t.Errorf("Body = %s", a.Body)
	}

	if _, err := Export(tbl, "pdf", "x"); !errors.Is(err, ErrFormat) {
		t.Errorf("unknown format error = %v, want ErrFormat", err)
	}
}
