package core

import "context"

// Store is the Record Store: it owns persisted candidates and enforces that
// no two candidates share an email or a phone.
//
// Implementations must run the duplicate check and the write of Insert and
// Update in a single transaction, and must translate database uniqueness
// violations into *DuplicateError. Input passed to Insert and Update is
// expected to be validated and normalized.
type Store interface {
	// FindByEmailOrPhone returns the lowest-id candidate matching either key,
	// or nil when there is none.
	FindByEmailOrPhone(ctx context.Context, email, phone string) (*Candidate, error)

	// Insert creates a candidate with created_at = updated_at = now.
	Insert(ctx context.Context, in CandidateInput) (*Candidate, error)

	// Update overwrites the mutable fields of candidate id and refreshes
	// updated_at. It fails with ErrNotFound or a *DuplicateError when the new
	// email or phone belongs to a different candidate.
	Update(ctx context.Context, id int64, in CandidateInput) (*Candidate, error)

	// Get returns candidate id or ErrNotFound.
	Get(ctx context.Context, id int64) (*Candidate, error)

	// Search returns matching candidates ordered by id ascending.
	Search(ctx context.Context, f Filters) ([]Candidate, error)

	// Summary counts all candidates, in total and per status.
	Summary(ctx context.Context) (Summary, error)

	// RecordImport persists the summary of a completed file import.
	RecordImport(ctx context.Context, run ImportRun) error

	// RecentImports returns up to limit import runs, newest first.
	RecentImports(ctx context.Context, limit int) ([]ImportRun, error)

	Close() error
}
