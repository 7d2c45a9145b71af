package core

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/JonMunkholm/talenttrack/internal/spreadsheet"
)

// Export-only columns appended after ImportColumns.
const (
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
	ColumnID        = "id"
)

// ExportColumns is the fixed column order of exported spreadsheets. The
// leading columns match ImportColumns, so an export re-imports unchanged;
// the importer ignores the trailing ones.
var ExportColumns = append(append([]string{}, ImportColumns...), ColumnCreatedAt, ColumnUpdatedAt, ColumnID)

// TimestampLayout formats timestamps in exported spreadsheets.
const TimestampLayout = time.RFC3339

// Exporter writes the Record Store out as a spreadsheet.
type Exporter struct {
	store Store
}

// NewExporter creates an exporter over store.
func NewExporter(store Store) *Exporter {
	return &Exporter{store: store}
}

// Export writes every candidate, in canonical order, to w.
// It returns the number of candidates written.
func (e *Exporter) Export(ctx context.Context, w io.Writer, format spreadsheet.Format) (int, error) {
	candidates, err := e.store.Search(ctx, Filters{})
	if err != nil {
		return 0, fmt.Errorf("export: list candidates: %w", err)
	}

	table := &spreadsheet.Table{
		Header: ExportColumns,
		Rows:   make([][]string, len(candidates)),
	}
	for i, c := range candidates {
		table.Rows[i] = CandidateRow(c)
	}
	escapeFormulas(format, table)

	if err := spreadsheet.Write(w, format, table); err != nil {
		return 0, fmt.Errorf("export: write %s: %w", format, err)
	}
	return len(candidates), nil
}

// Template writes an import template: the import header and one sample row.
func (e *Exporter) Template(w io.Writer, format spreadsheet.Format) error {
	table := &spreadsheet.Table{
		Header: ImportColumns,
		Rows: [][]string{{
			"Jane Doe",
			"jane.doe@example.com",
			"+1 555 010 0199",
			string(StatusApplied),
			"Go, SQL",
			"Remote",
			"9AM-5PM",
			"Referred by recruiting",
		}},
	}
	escapeFormulas(format, table)
	if err := spreadsheet.Write(w, format, table); err != nil {
		return fmt.Errorf("template: write %s: %w", format, err)
	}
	return nil
}

// escapeFormulas applies EscapeFormula to the data rows of a CSV table.
// XLSX cells are written as typed strings and need no escaping.
func escapeFormulas(format spreadsheet.Format, t *spreadsheet.Table) {
	if format != spreadsheet.FormatCSV {
		return
	}
	for _, row := range t.Rows {
		for j, v := range row {
			row[j] = EscapeFormula(v)
		}
	}
}

// CandidateRow formats c in ExportColumns order.
func CandidateRow(c Candidate) []string {
	return []string{
		c.Name,
		c.Email,
		c.Phone,
		string(c.Status),
		c.Skills,
		c.Location,
		c.AvailableTime,
		c.Notes,
		c.CreatedAt.UTC().Format(TimestampLayout),
		c.UpdatedAt.UTC().Format(TimestampLayout),
		strconv.FormatInt(c.ID, 10),
	}
}
