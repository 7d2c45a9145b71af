package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/talenttrack/internal/spreadsheet"
)

// ImportColumns are the candidate fields read from a spreadsheet, in export order.
var ImportColumns = []string{
	FieldName,
	FieldEmail,
	FieldPhone,
	FieldStatus,
	FieldSkills,
	FieldLocation,
	FieldAvailableTime,
	FieldNotes,
}

// RequiredColumns must be present in an import header.
var RequiredColumns = []string{FieldName, FieldEmail, FieldPhone, FieldStatus}

// headerAliases maps alternative header spellings to field names.
var headerAliases = map[string]string{
	"candidate_name": FieldName,
}

// HeaderIndex maps normalized column names to their position in a row.
type HeaderIndex map[string]int

// NormalizeHeader lower-cases a header cell, trims it, turns spaces into
// underscores and resolves known aliases.
func NormalizeHeader(h string) string {
	h = strings.ToLower(CleanCell(h))
	h = strings.Join(strings.Fields(h), "_")
	if alias, ok := headerAliases[h]; ok {
		return alias
	}
	return h
}

// MakeHeaderIndex builds a HeaderIndex. The first occurrence of a column wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := NormalizeHeader(h)
		if key == "" {
			continue
		}
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

// ValidateHeaders checks that all required columns exist in the header.
func ValidateHeaders(header []string) (HeaderIndex, error) {
	idx := MakeHeaderIndex(header)
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// Cell returns the cleaned value of column name in row, or "" when absent.
func (idx HeaderIndex) Cell(row []string, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(row) {
		return ""
	}
	return CleanCell(row[pos])
}

// Input maps a data row to candidate input.
func (idx HeaderIndex) Input(row []string) CandidateInput {
	return CandidateInput{
		Name:          idx.Cell(row, FieldName),
		Email:         idx.Cell(row, FieldEmail),
		Phone:         idx.Cell(row, FieldPhone),
		Status:        idx.Cell(row, FieldStatus),
		Skills:        idx.Cell(row, FieldSkills),
		Location:      idx.Cell(row, FieldLocation),
		AvailableTime: idx.Cell(row, FieldAvailableTime),
		Notes:         idx.Cell(row, FieldNotes),
	}
}

// RowsFromTable converts a parsed spreadsheet into typed rows. The first row
// is the header; blank rows are dropped. An empty table or a header missing a
// required column is a *FatalIOError.
func RowsFromTable(t *spreadsheet.Table) ([]ImportRow, error) {
	if t == nil || len(t.Header) == 0 {
		return nil, fatalIO("parse header", errors.New("empty file"))
	}

	idx, err := ValidateHeaders(t.Header)
	if err != nil {
		return nil, fatalIO("parse header", err)
	}

	rows := make([]ImportRow, 0, len(t.Rows))
	for i, row := range t.Rows {
		if isEmptyRow(row) {
			continue
		}
		rows = append(rows, ImportRow{
			Line:  i + 2,
			Input: idx.Input(row),
		})
	}
	return rows, nil
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, the Excel text wrapper ="..." and the quote that
// EscapeFormula puts in front of formula-like values. Other quotes and a
// bare leading '=' are kept.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if len(s) >= 2 && s[0] == formulaQuote && isFormulaLead(s[1]) {
		return s[1:]
	}
	if len(s) >= 3 && strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = strings.TrimSpace(s[2 : len(s)-1])
	}
	return s
}

// formulaQuote marks a cell as text in spreadsheet applications.
const formulaQuote = '\''

func isFormulaLead(b byte) bool {
	switch b {
	case '=', '+', '-', '@', formulaQuote:
		return true
	}
	return false
}

// EscapeFormula prefixes a value that a spreadsheet application would
// evaluate as a formula with a single quote. CleanCell removes it again.
func EscapeFormula(s string) string {
	if s != "" && isFormulaLead(s[0]) {
		return string(formulaQuote) + s
	}
	return s
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
