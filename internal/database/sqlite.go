package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/talenttrack/internal/core"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteTimeLayout is fixed-width so that stored timestamps sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// sqliteFoldFunc lower-cases its argument with Unicode rules. SQLite's own
// lower() and LIKE fold ASCII letters only.
const sqliteFoldFunc = "casefold"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(sqliteFoldFunc, 1, casefold)
}

func casefold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// SQLiteStore is the default Store: a single local database file.
//
// The pool is limited to one connection and transactions begin IMMEDIATE, so
// the duplicate check and the write of Insert and Update cannot interleave
// with another writer.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ core.Store = (*SQLiteStore)(nil)

// sqliteDSN builds a modernc.org/sqlite connection string for path.
func sqliteDSN(path string, busyTimeout time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// OpenSQLite opens (creating if needed) the database file at path and
// ensures the schema exists.
func OpenSQLite(ctx context.Context, path string, busyTimeout time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	for _, stmt := range sqliteSchema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if already committed

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// FindByEmailOrPhone returns the lowest-id candidate with the given email or
// phone, or nil.
func (s *SQLiteStore) FindByEmailOrPhone(ctx context.Context, email, phone string) (*core.Candidate, error) {
	return sqliteFindConflict(ctx, s.db, email, phone, 0)
}

// sqliteFindConflict looks up a candidate other than excludeID by email or phone.
func sqliteFindConflict(ctx context.Context, q queryer, email, phone string, excludeID int64) (*core.Candidate, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates
		WHERE (email = ? OR phone = ?) AND id <> ?
		ORDER BY id LIMIT 1`,
		email, phone, excludeID)

	c, err := scanSQLiteCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by email or phone: %w", err)
	}
	return c, nil
}

// Insert creates a candidate. in must be validated and normalized.
func (s *SQLiteStore) Insert(ctx context.Context, in core.CandidateInput) (*core.Candidate, error) {
	var created *core.Candidate

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := sqliteFindConflict(ctx, tx, in.Email, in.Phone, 0)
		if err != nil {
			return err
		}
		if existing != nil {
			return core.DuplicateOf(in, existing)
		}

		now := s.now().UTC()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO candidates (name, email, phone, status, skills, location, available_time, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.Name, in.Email, in.Phone, in.Status, in.Skills, in.Location, in.AvailableTime, in.Notes,
			formatSQLiteTime(now), formatSQLiteTime(now))
		if err != nil {
			return sqliteWriteError(err, in)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		created = candidateFromInput(id, in, now, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update overwrites the mutable fields of candidate id.
func (s *SQLiteStore) Update(ctx context.Context, id int64, in core.CandidateInput) (*core.Candidate, error) {
	var updated *core.Candidate

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := sqliteGet(ctx, tx, id)
		if err != nil {
			return err
		}

		conflict, err := sqliteFindConflict(ctx, tx, in.Email, in.Phone, id)
		if err != nil {
			return err
		}
		if conflict != nil {
			return core.DuplicateOf(in, conflict)
		}

		now := laterOf(s.now().UTC(), current.CreatedAt)
		_, err = tx.ExecContext(ctx,
			`UPDATE candidates
			SET name = ?, email = ?, phone = ?, status = ?, skills = ?, location = ?,
				available_time = ?, notes = ?, updated_at = ?
			WHERE id = ?`,
			in.Name, in.Email, in.Phone, in.Status, in.Skills, in.Location, in.AvailableTime, in.Notes,
			formatSQLiteTime(now), id)
		if err != nil {
			return sqliteWriteError(err, in)
		}

		updated = candidateFromInput(id, in, current.CreatedAt, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Get returns candidate id.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*core.Candidate, error) {
	return sqliteGet(ctx, s.db, id)
}

func sqliteGet(ctx context.Context, q queryer, id int64) (*core.Candidate, error) {
	row := q.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id)
	c, err := scanSQLiteCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("candidate %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate %d: %w", id, err)
	}
	return c, nil
}

// Search returns candidates matching f ordered by id.
func (s *SQLiteStore) Search(ctx context.Context, f core.Filters) ([]core.Candidate, error) {
	wb := NewWhereBuilder(DialectSQLite)
	wb.AddFilters(f)
	where, args := wb.Build()

	rows, err := s.db.QueryContext(ctx, `SELECT `+candidateColumns+` FROM candidates`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]core.Candidate, 0)
	for rows.Next() {
		c, err := scanSQLiteCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}
	return candidates, nil
}

// Summary counts candidates in total and per status.
func (s *SQLiteStore) Summary(ctx context.Context) (core.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM candidates GROUP BY status`)
	if err != nil {
		return core.Summary{}, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	sum := core.NewSummary()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return core.Summary{}, fmt.Errorf("summary: %w", err)
		}
		sum.ByStatus[core.Status(status)] = n
		sum.Total += n
	}
	if err := rows.Err(); err != nil {
		return core.Summary{}, fmt.Errorf("summary: %w", err)
	}
	return sum, nil
}

// RecordImport stores the summary of a completed import.
func (s *SQLiteStore) RecordImport(ctx context.Context, run core.ImportRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_runs (id, `+importRunColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.FileName, string(run.Policy), run.Total, run.Inserted, run.Updated, run.Skipped, run.Rejected,
		formatSQLiteTime(run.StartedAt), run.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record import %s: %w", run.ID, err)
	}
	return nil
}

// RecentImports returns up to limit import runs, newest first.
func (s *SQLiteStore) RecentImports(ctx context.Context, limit int) ([]core.ImportRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, `+importRunColumns+` FROM import_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent imports: %w", err)
	}
	defer rows.Close()

	runs := make([]core.ImportRun, 0)
	for rows.Next() {
		var run core.ImportRun
		var policy, startedAt string
		var durationMS int64
		if err := rows.Scan(&run.ID, &run.FileName, &policy, &run.Total, &run.Inserted, &run.Updated,
			&run.Skipped, &run.Rejected, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("recent imports: %w", err)
		}
		run.Policy = core.DuplicatePolicy(policy)
		run.Duration = time.Duration(durationMS) * time.Millisecond
		if run.StartedAt, err = parseSQLiteTime(startedAt); err != nil {
			return nil, fmt.Errorf("import %s started_at: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent imports: %w", err)
	}
	return runs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteCandidate(row scanner) (*core.Candidate, error) {
	var c core.Candidate
	var status, createdAt, updatedAt string
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &status, &c.Skills, &c.Location,
		&c.AvailableTime, &c.Notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = core.Status(status)
	if c.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return nil, fmt.Errorf("candidate %d created_at: %w", c.ID, err)
	}
	if c.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return nil, fmt.Errorf("candidate %d updated_at: %w", c.ID, err)
	}
	return &c, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		// Rows written by other tools may use plain RFC 3339.
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

// sqliteWriteError maps a unique-constraint failure to *core.DuplicateError.
// The pre-write lookup normally catches duplicates first; this covers rows
// written by another process between the lookup and the write.
func sqliteWriteError(err error, in core.CandidateInput) error {
	var se *sqlite.Error
	unique := errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	if !unique && !strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("write candidate: %w", err)
	}

	if strings.Contains(err.Error(), "candidates.email") {
		return &core.DuplicateError{Field: core.FieldEmail, Value: in.Email}
	}
	return &core.DuplicateError{Field: core.FieldPhone, Value: in.Phone}
}

func candidateFromInput(id int64, in core.CandidateInput, createdAt, updatedAt time.Time) *core.Candidate {
	return &core.Candidate{
		ID:            id,
		Name:          in.Name,
		Email:         in.Email,
		Phone:         in.Phone,
		Status:        core.Status(in.Status),
		Skills:        in.Skills,
		Location:      in.Location,
		AvailableTime: in.AvailableTime,
		Notes:         in.Notes,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

func laterOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}
