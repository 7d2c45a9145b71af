package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/talenttrack/internal/config"
	"github.com/JonMunkholm/talenttrack/internal/logging"
	"github.com/JonMunkholm/talenttrack/internal/spreadsheet"
)

// RecentImportsLimit is how many import runs the dashboard shows.
const RecentImportsLimit = 10

// Service is the entry point used by the web handlers and the CLI. It wraps a
// Store with validation, logging and the import/export engine.
type Service struct {
	store    Store
	importer *Importer
	exporter *Exporter
	limiter  *ImportLimiter

	importTimeout time.Duration
}

// NewService creates a Service over store using the import settings in cfg.
func NewService(store Store, cfg config.ImportConfig) (*Service, error) {
	policy, err := ParseDuplicatePolicy(cfg.DuplicatePolicy)
	if err != nil {
		return nil, fmt.Errorf("import config: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	return &Service{
		store: store,
		importer: NewImporter(store, ImportOptions{
			Policy:     policy,
			ReaddAfter: cfg.ReaddAfter,
		}),
		exporter:      NewExporter(store),
		limiter:       NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		importTimeout: timeout,
	}, nil
}

// DefaultPolicy returns the configured duplicate policy.
func (s *Service) DefaultPolicy() DuplicatePolicy {
	return s.importer.Policy()
}

// Create validates in and stores it as a new candidate.
// Invalid input returns ValidationErrors; a clash returns a *DuplicateError.
func (s *Service) Create(ctx context.Context, in CandidateInput) (*Candidate, error) {
	if err := Validate(in).Err(); err != nil {
		return nil, err
	}

	c, err := s.store.Insert(ctx, in.Normalize())
	if err != nil {
		return nil, fmt.Errorf("create candidate: %w", err)
	}

	logging.FromContext(ctx).Info("candidate created",
		"candidate_id", c.ID,
		"status", c.Status,
	)
	return c, nil
}

// Update validates in and overwrites candidate id.
func (s *Service) Update(ctx context.Context, id int64, in CandidateInput) (*Candidate, error) {
	if err := Validate(in).Err(); err != nil {
		return nil, err
	}

	c, err := s.store.Update(ctx, id, in.Normalize())
	if err != nil {
		return nil, fmt.Errorf("update candidate %d: %w", id, err)
	}

	logging.FromContext(ctx).Info("candidate updated",
		"candidate_id", c.ID,
		"status", c.Status,
	)
	return c, nil
}

// Get returns candidate id or an error wrapping ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*Candidate, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get candidate %d: %w", id, err)
	}
	return c, nil
}

// Search returns candidates matching f, ordered by id.
func (s *Service) Search(ctx context.Context, f Filters) ([]Candidate, error) {
	candidates, err := s.store.Search(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}
	return candidates, nil
}

// Summary returns dashboard counts.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	sum, err := s.store.Summary(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	return sum, nil
}

// RecentImports returns the latest import runs, newest first.
func (s *Service) RecentImports(ctx context.Context) ([]ImportRun, error) {
	runs, err := s.store.RecentImports(ctx, RecentImportsLimit)
	if err != nil {
		return nil, fmt.Errorf("recent imports: %w", err)
	}
	return runs, nil
}

// Import reads a spreadsheet and reconciles it against the store using
// policy, or the configured default when policy is empty. Imports are
// serialized; when no slot frees up in time ErrImportBusy is returned.
//
// A completed import is recorded as an ImportRun. On a store failure the
// partial report is returned together with the error.
func (s *Service) Import(ctx context.Context, fileName string, r io.Reader, policy DuplicatePolicy) (*ImportReport, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.importTimeout)
	defer cancel()

	im := s.importer
	if policy != "" {
		im = im.WithPolicy(policy)
	}

	logger := logging.WithFields(ctx, "file", fileName, "policy", im.Policy())
	logger.Info("import started")

	report, err := im.ImportFile(ctx, fileName, r)
	if err != nil {
		logger.Error("import failed", "error", err)
		return report, err
	}

	if err := s.store.RecordImport(ctx, report.Run()); err != nil {
		// The candidates are already written; losing the history row is not fatal.
		logger.Warn("record import run failed", "import_id", report.ID, "error", err)
	}

	logger.Info("import completed",
		"import_id", report.ID,
		"total", report.Total,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"rejected", report.Rejected,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

// Preview analyzes a spreadsheet without writing anything.
func (s *Service) Preview(ctx context.Context, fileName string, r io.Reader) (*PreviewReport, error) {
	report, err := s.importer.PreviewFile(ctx, fileName, r)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug("import previewed",
		"file", fileName,
		"total", report.Total,
		"new", report.New,
		"duplicates", report.Duplicates+report.DuplicateInFile,
		"invalid", report.Invalid,
	)
	return report, nil
}

// Export writes all candidates to w and returns how many were written.
func (s *Service) Export(ctx context.Context, w io.Writer, format spreadsheet.Format) (int, error) {
	n, err := s.exporter.Export(ctx, w, format)
	if err != nil {
		return 0, err
	}
	logging.FromContext(ctx).Info("candidates exported", "format", format, "count", n)
	return n, nil
}

// ExportTemplate writes an empty import template with one sample row.
func (s *Service) ExportTemplate(w io.Writer, format spreadsheet.Format) error {
	return s.exporter.Template(w, format)
}

// ImportStatus reports import slot usage.
func (s *Service) ImportStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Close closes the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}
