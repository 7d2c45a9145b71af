// Package spreadsheet reads and writes the tabular files TalentTrack imports
// and exports: Excel workbooks (.xlsx) and comma-separated text (.csv).
//
// Both formats are reduced to a Table of strings. The first row of a file is
// the header; every following row is data, kept in file order so callers can
// report spreadsheet line numbers.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file types other than xlsx and csv.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Format is a spreadsheet file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// SheetName is the worksheet written to exported workbooks.
const SheetName = "Candidates"

// ParseFormat parses a format name such as "xlsx" or ".CSV".
// An empty name yields FormatXLSX.
func ParseFormat(s string) (Format, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	switch s {
	case "", string(FormatXLSX):
		return FormatXLSX, nil
	case string(FormatCSV):
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnsupportedFormat, s)
}

// FormatFromName returns the format implied by a file name's extension.
func FormatFromName(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	}
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension, use .xlsx or .csv", ErrUnsupportedFormat, name)
	}
	return "", fmt.Errorf("%w %q, use .xlsx or .csv", ErrUnsupportedFormat, ext)
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Table is a parsed spreadsheet. Rows[i] is spreadsheet line i+2.
type Table struct {
	Header []string
	Rows   [][]string
}

func tableFromRecords(records [][]string) *Table {
	if len(records) == 0 {
		return &Table{}
	}
	return &Table{Header: records[0], Rows: records[1:]}
}

// Read parses r as the format implied by fileName.
func Read(fileName string, r io.Reader) (*Table, error) {
	format, err := FormatFromName(fileName)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatCSV:
		return readCSV(r)
	default:
		return readXLSX(r)
	}
}

// Write encodes t to w in the given format.
func Write(w io.Writer, format Format, t *Table) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, t)
	case FormatXLSX:
		return writeXLSX(w, t)
	}
	return fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
}
