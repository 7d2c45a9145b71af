package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/talenttrack/internal/config"
	"github.com/JonMunkholm/talenttrack/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is a Store backed by a PostgreSQL connection pool. The
// UNIQUE constraints on email and phone decide races between the duplicate
// check and the write.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ core.Store = (*PostgresStore)(nil)

// OpenPostgres connects to cfg.URL and ensures the schema exists.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, stmt := range postgresSchema() {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// FindByEmailOrPhone returns the lowest-id candidate with the given email or
// phone, or nil.
func (s *PostgresStore) FindByEmailOrPhone(ctx context.Context, email, phone string) (*core.Candidate, error) {
	return pgFindConflict(ctx, s.pool, email, phone, 0)
}

func pgFindConflict(ctx context.Context, q DBTX, email, phone string, excludeID int64) (*core.Candidate, error) {
	row := q.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates
		WHERE (email = $1 OR phone = $2) AND id <> $3
		ORDER BY id LIMIT 1`,
		email, phone, excludeID)

	c, err := scanPgCandidate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by email or phone: %w", err)
	}
	return c, nil
}

// Insert creates a candidate. in must be validated and normalized.
func (s *PostgresStore) Insert(ctx context.Context, in core.CandidateInput) (*core.Candidate, error) {
	var created *core.Candidate

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		existing, err := pgFindConflict(ctx, tx, in.Email, in.Phone, 0)
		if err != nil {
			return err
		}
		if existing != nil {
			return core.DuplicateOf(in, existing)
		}

		now := s.now().UTC()
		row := tx.QueryRow(ctx,
			`INSERT INTO candidates (name, email, phone, status, skills, location, available_time, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
			RETURNING `+candidateColumns,
			in.Name, in.Email, in.Phone, in.Status, in.Skills, in.Location, in.AvailableTime, in.Notes, now)

		created, err = scanPgCandidate(row)
		if err != nil {
			return pgWriteError(err, in)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update overwrites the mutable fields of candidate id.
func (s *PostgresStore) Update(ctx context.Context, id int64, in core.CandidateInput) (*core.Candidate, error) {
	var updated *core.Candidate

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		current, err := pgGet(ctx, tx, id, true)
		if err != nil {
			return err
		}

		conflict, err := pgFindConflict(ctx, tx, in.Email, in.Phone, id)
		if err != nil {
			return err
		}
		if conflict != nil {
			return core.DuplicateOf(in, conflict)
		}

		now := laterOf(s.now().UTC(), current.CreatedAt)
		row := tx.QueryRow(ctx,
			`UPDATE candidates
			SET name = $1, email = $2, phone = $3, status = $4, skills = $5, location = $6,
				available_time = $7, notes = $8, updated_at = $9
			WHERE id = $10
			RETURNING `+candidateColumns,
			in.Name, in.Email, in.Phone, in.Status, in.Skills, in.Location, in.AvailableTime, in.Notes, now, id)

		updated, err = scanPgCandidate(row)
		if err != nil {
			return pgWriteError(err, in)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Get returns candidate id.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*core.Candidate, error) {
	return pgGet(ctx, s.pool, id, false)
}

func pgGet(ctx context.Context, q DBTX, id int64, forUpdate bool) (*core.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	c, err := scanPgCandidate(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("candidate %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate %d: %w", id, err)
	}
	return c, nil
}

// Search returns candidates matching f ordered by id.
func (s *PostgresStore) Search(ctx context.Context, f core.Filters) ([]core.Candidate, error) {
	wb := NewWhereBuilder(DialectPostgres)
	wb.AddFilters(f)
	where, args := wb.Build()

	rows, err := s.pool.Query(ctx, `SELECT `+candidateColumns+` FROM candidates`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]core.Candidate, 0)
	for rows.Next() {
		c, err := scanPgCandidate(rows)
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
func (s *PostgresStore) Summary(ctx context.Context) (core.Summary, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM candidates GROUP BY status`)
	if err != nil {
		return core.Summary{}, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	sum := core.NewSummary()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return core.Summary{}, fmt.Errorf("summary: %w", err)
		}
		sum.ByStatus[core.Status(status)] = int(n)
		sum.Total += int(n)
	}
	if err := rows.Err(); err != nil {
		return core.Summary{}, fmt.Errorf("summary: %w", err)
	}
	return sum, nil
}

// RecordImport stores the summary of a completed import.
func (s *PostgresStore) RecordImport(ctx context.Context, run core.ImportRun) error {
	id, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("record import: invalid id %q: %w", run.ID, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO import_runs (id, `+importRunColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, run.FileName, string(run.Policy), run.Total, run.Inserted, run.Updated, run.Skipped, run.Rejected,
		run.StartedAt.UTC(), run.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record import %s: %w", run.ID, err)
	}
	return nil
}

// RecentImports returns up to limit import runs, newest first.
func (s *PostgresStore) RecentImports(ctx context.Context, limit int) ([]core.ImportRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, `+importRunColumns+` FROM import_runs ORDER BY started_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent imports: %w", err)
	}
	defer rows.Close()

	runs := make([]core.ImportRun, 0)
	for rows.Next() {
		var run core.ImportRun
		var policy string
		var total, inserted, updated, skipped, rejected int32
		var durationMS int64
		if err := rows.Scan(&run.ID, &run.FileName, &policy, &total, &inserted, &updated,
			&skipped, &rejected, &run.StartedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("recent imports: %w", err)
		}
		run.Policy = core.DuplicatePolicy(policy)
		run.Total, run.Inserted, run.Updated = int(total), int(inserted), int(updated)
		run.Skipped, run.Rejected = int(skipped), int(rejected)
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent imports: %w", err)
	}
	return runs, nil
}

func scanPgCandidate(row pgx.Row) (*core.Candidate, error) {
	var c core.Candidate
	var status string
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &status, &c.Skills, &c.Location,
		&c.AvailableTime, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = core.Status(status)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

// pgWriteError maps a unique violation to *core.DuplicateError using the
// constraint name.
func pgWriteError(err error, in core.CandidateInput) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return fmt.Errorf("write candidate: %w", err)
	}
	if strings.Contains(pgErr.ConstraintName, "email") {
		return &core.DuplicateError{Field: core.FieldEmail, Value: in.Email}
	}
	return &core.DuplicateError{Field: core.FieldPhone, Value: in.Phone}
}
