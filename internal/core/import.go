package core

// import.go reconciles spreadsheet rows against the Record Store.
//
// Each row is handled on its own: validate, look up by email or phone, then
// insert or apply the duplicate policy. A bad row is recorded in the report and
// the batch continues. Only unreadable input (a *FatalIOError, raised before
// any row is processed) or a failing store aborts the import.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/talenttrack/internal/spreadsheet"
	"github.com/google/uuid"
)

// ContextCheckInterval is how often (in rows) to check for cancellation.
var ContextCheckInterval = 100

// DefaultReaddAfter is the age after which update-stale overwrites a match.
const DefaultReaddAfter = 90 * 24 * time.Hour

// DuplicatePolicy decides what happens to an imported row that matches an
// existing candidate by email or phone.
type DuplicatePolicy string

const (
	PolicySkip        DuplicatePolicy = "skip"
	PolicyUpdate      DuplicatePolicy = "update"
	PolicyUpdateStale DuplicatePolicy = "update-stale"
)

// ErrUnknownPolicy is returned for a policy name that is not recognized.
var ErrUnknownPolicy = errors.New("unknown duplicate policy")

// DuplicatePolicies lists the accepted policies, default first.
var DuplicatePolicies = []DuplicatePolicy{PolicySkip, PolicyUpdate, PolicyUpdateStale}

// ParseDuplicatePolicy parses a policy name. An empty string yields PolicySkip.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PolicySkip, nil
	}
	for _, p := range DuplicatePolicies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w %q (use skip, update or update-stale)", ErrUnknownPolicy, s)
}

// RowOutcome is what happened to one imported row.
type RowOutcome string

const (
	OutcomeInserted RowOutcome = "inserted"
	OutcomeUpdated  RowOutcome = "updated"
	OutcomeSkipped  RowOutcome = "skipped-duplicate"
	OutcomeRejected RowOutcome = "rejected"
)

// ImportRow is one typed data row taken from a spreadsheet.
type ImportRow struct {
	Line  int // 1-based spreadsheet row; the header is line 1
	Input CandidateInput
}

// RowResult records the outcome of one row.
type RowResult struct {
	Line        int
	Outcome     RowOutcome
	CandidateID int64    // inserted, updated or matched candidate
	Email       string   // as given in the row, for display
	Reasons     []string // why the row was skipped or rejected
}

// ImportReport summarizes an import.
type ImportReport struct {
	ID        string
	FileName  string
	Policy    DuplicatePolicy
	Total     int
	Inserted  int
	Updated   int
	Skipped   int
	Rejected  int
	Rows      []RowResult
	StartedAt time.Time
	Duration  time.Duration
}

func (r *ImportReport) add(res RowResult) {
	r.Total++
	switch res.Outcome {
	case OutcomeInserted:
		r.Inserted++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeRejected:
		r.Rejected++
	}
	r.Rows = append(r.Rows, res)
}

// Problems returns the skipped and rejected rows.
func (r *ImportReport) Problems() []RowResult {
	var out []RowResult
	for _, row := range r.Rows {
		if row.Outcome == OutcomeSkipped || row.Outcome == OutcomeRejected {
			out = append(out, row)
		}
	}
	return out
}

// Run converts the report to its persisted summary.
func (r *ImportReport) Run() ImportRun {
	return ImportRun{
		ID:        r.ID,
		FileName:  r.FileName,
		Policy:    r.Policy,
		Total:     r.Total,
		Inserted:  r.Inserted,
		Updated:   r.Updated,
		Skipped:   r.Skipped,
		Rejected:  r.Rejected,
		StartedAt: r.StartedAt,
		Duration:  r.Duration,
	}
}

// ImportOptions configures an Importer.
type ImportOptions struct {
	Policy     DuplicatePolicy
	ReaddAfter time.Duration // only used by PolicyUpdateStale
}

// Importer reconciles rows against a Store.
type Importer struct {
	store Store
	opts  ImportOptions
	now   func() time.Time
}

// NewImporter creates an importer. An empty policy means PolicySkip.
func NewImporter(store Store, opts ImportOptions) *Importer {
	if opts.Policy == "" {
		opts.Policy = PolicySkip
	}
	if opts.ReaddAfter <= 0 {
		opts.ReaddAfter = DefaultReaddAfter
	}
	return &Importer{store: store, opts: opts, now: time.Now}
}

// Policy returns the configured duplicate policy.
func (im *Importer) Policy() DuplicatePolicy {
	return im.opts.Policy
}

// WithPolicy returns a copy of the importer using policy p.
func (im *Importer) WithPolicy(p DuplicatePolicy) *Importer {
	cp := *im
	cp.opts.Policy = p
	return &cp
}

// ImportFile reads a spreadsheet and imports its rows. Unreadable or
// structurally invalid input returns a *FatalIOError before anything is written.
func (im *Importer) ImportFile(ctx context.Context, fileName string, r io.Reader) (*ImportReport, error) {
	rows, err := ReadImportRows(fileName, r)
	if err != nil {
		return nil, err
	}

	report, err := im.ImportRows(ctx, rows)
	if report != nil {
		report.FileName = fileName
	}
	return report, err
}

// ImportRows processes rows sequentially. The returned error is non-nil only
// for cancellation or store failures; the partial report is returned with it.
func (im *Importer) ImportRows(ctx context.Context, rows []ImportRow) (*ImportReport, error) {
	start := im.now()
	report := &ImportReport{
		ID:        uuid.New().String(),
		Policy:    im.opts.Policy,
		StartedAt: start,
	}
	defer func() { report.Duration = im.now().Sub(start) }()

	for i, row := range rows {
		if i%ContextCheckInterval == 0 && ctx.Err() != nil {
			return report, fmt.Errorf("import cancelled at line %d: %w", row.Line, ctx.Err())
		}

		res, err := im.importRow(ctx, row)
		if err != nil {
			return report, err
		}
		report.add(res)
	}

	slog.Debug("import rows processed",
		"import_id", report.ID,
		"policy", report.Policy,
		"total", report.Total,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"rejected", report.Rejected,
	)
	return report, nil
}

func (im *Importer) importRow(ctx context.Context, row ImportRow) (RowResult, error) {
	res := RowResult{Line: row.Line, Email: strings.TrimSpace(row.Input.Email)}

	if v := Validate(row.Input); !v.Valid {
		res.Outcome = OutcomeRejected
		res.Reasons = v.Errors.Messages()
		return res, nil
	}
	in := row.Input.Normalize()

	existing, err := im.store.FindByEmailOrPhone(ctx, in.Email, in.Phone)
	if err != nil {
		return res, fmt.Errorf("line %d: find duplicate: %w", row.Line, err)
	}

	if existing == nil {
		c, err := im.store.Insert(ctx, in)
		if err == nil {
			res.Outcome = OutcomeInserted
			res.CandidateID = c.ID
			return res, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return res, fmt.Errorf("line %d: insert: %w", row.Line, err)
		}

		// Another writer got there first; resolve against the winner.
		existing, err = im.store.FindByEmailOrPhone(ctx, in.Email, in.Phone)
		if err != nil {
			return res, fmt.Errorf("line %d: find duplicate: %w", row.Line, err)
		}
		if existing == nil {
			res.Outcome = OutcomeRejected
			res.Reasons = []string{"insert conflicted with a concurrent change, retry the import"}
			return res, nil
		}
	}

	return im.applyPolicy(ctx, res, in, existing)
}

func (im *Importer) applyPolicy(ctx context.Context, res RowResult, in CandidateInput, existing *Candidate) (RowResult, error) {
	res.CandidateID = existing.ID
	dup := DuplicateOf(in, existing)

	switch im.opts.Policy {
	case PolicyUpdate:
		return im.update(ctx, res, in, existing)

	case PolicyUpdateStale:
		age := im.now().Sub(existing.CreatedAt)
		if age >= im.opts.ReaddAfter {
			return im.update(ctx, res, in, existing)
		}
		res.Outcome = OutcomeSkipped
		res.Reasons = []string{fmt.Sprintf("%s (added %s ago, re-add allowed after %s)",
			dup.Error(), age.Round(time.Hour), im.opts.ReaddAfter)}
		return res, nil

	default:
		res.Outcome = OutcomeSkipped
		res.Reasons = []string{dup.Error()}
		return res, nil
	}
}

func (im *Importer) update(ctx context.Context, res RowResult, in CandidateInput, existing *Candidate) (RowResult, error) {
	_, err := im.store.Update(ctx, existing.ID, in)
	switch {
	case err == nil:
		res.Outcome = OutcomeUpdated
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrNotFound):
		res.Outcome = OutcomeRejected
		res.Reasons = []string{err.Error()}
	default:
		return res, fmt.Errorf("line %d: update candidate #%d: %w", res.Line, existing.ID, err)
	}
	return res, nil
}

// ReadImportRows parses a spreadsheet into typed rows.
func ReadImportRows(fileName string, r io.Reader) ([]ImportRow, error) {
	table, err := spreadsheet.Read(fileName, r)
	if err != nil {
		return nil, fatalIO("read "+fileName, err)
	}
	return RowsFromTable(table)
}
