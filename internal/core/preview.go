package core

import (
	"context"
	"fmt"
	"io"
)

// PreviewAction is what an import would do with a row.
type PreviewAction string

const (
	ActionNew             PreviewAction = "new"
	ActionDuplicate       PreviewAction = "duplicate"
	ActionDuplicateInFile PreviewAction = "duplicate-in-file"
	ActionInvalid         PreviewAction = "invalid"
)

// RowPreview describes one row of a previewed import.
type RowPreview struct {
	Line       int
	Input      CandidateInput
	Action     PreviewAction
	ExistingID int64    // matched candidate for ActionDuplicate
	FirstLine  int      // earlier line for ActionDuplicateInFile
	Errors     []string // validation errors for ActionInvalid
}

// PreviewReport is a read-only analysis of an import.
type PreviewReport struct {
	FileName        string
	Total           int
	New             int
	Duplicates      int
	DuplicateInFile int
	Invalid         int
	Rows            []RowPreview
}

// PreviewFile reads a spreadsheet and analyzes it without writing anything.
func (im *Importer) PreviewFile(ctx context.Context, fileName string, r io.Reader) (*PreviewReport, error) {
	rows, err := ReadImportRows(fileName, r)
	if err != nil {
		return nil, err
	}
	report, err := im.Preview(ctx, rows)
	if report != nil {
		report.FileName = fileName
	}
	return report, err
}

// Preview classifies each row as new, duplicate of a stored candidate,
// duplicate of an earlier row, or invalid.
func (im *Importer) Preview(ctx context.Context, rows []ImportRow) (*PreviewReport, error) {
	report := &PreviewReport{}

	// email/phone -> first line seen in this file
	seenEmail := make(map[string]int)
	seenPhone := make(map[string]int)

	for i, row := range rows {
		if i%ContextCheckInterval == 0 && ctx.Err() != nil {
			return report, fmt.Errorf("preview cancelled at line %d: %w", row.Line, ctx.Err())
		}

		p := RowPreview{Line: row.Line, Input: row.Input}
		report.Total++

		if v := Validate(row.Input); !v.Valid {
			p.Action = ActionInvalid
			p.Errors = v.Errors.Messages()
			report.Invalid++
			report.Rows = append(report.Rows, p)
			continue
		}
		in := row.Input.Normalize()

		if first, ok := firstSeen(seenEmail, seenPhone, in); ok {
			p.Action = ActionDuplicateInFile
			p.FirstLine = first
			report.DuplicateInFile++
			report.Rows = append(report.Rows, p)
			continue
		}
		seenEmail[in.Email] = row.Line
		seenPhone[in.Phone] = row.Line

		existing, err := im.store.FindByEmailOrPhone(ctx, in.Email, in.Phone)
		if err != nil {
			return report, fmt.Errorf("line %d: find duplicate: %w", row.Line, err)
		}
		if existing != nil {
			p.Action = ActionDuplicate
			p.ExistingID = existing.ID
			report.Duplicates++
		} else {
			p.Action = ActionNew
			report.New++
		}
		report.Rows = append(report.Rows, p)
	}

	return report, nil
}

func firstSeen(emails, phones map[string]int, in CandidateInput) (int, bool) {
	if line, ok := emails[in.Email]; ok {
		return line, true
	}
	if line, ok := phones[in.Phone]; ok {
		return line, true
	}
	return 0, false
}
