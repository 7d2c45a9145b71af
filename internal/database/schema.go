package database

import (
	"strings"

	"github.com/JonMunkholm/talenttrack/internal/core"
)

// Schema statements are idempotent and run on every open. There is no
// migration history; new columns need a new statement here.

// statusCheck renders the allowed statuses for a CHECK constraint.
func statusCheck() string {
	quoted := make([]string, len(core.Statuses))
	for i, st := range core.Statuses {
		quoted[i] = "'" + string(st) + "'"
	}
	return "status IN (" + strings.Join(quoted, ", ") + ")"
}

func sqliteSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS candidates (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			name           TEXT NOT NULL,
			email          TEXT NOT NULL UNIQUE,
			phone          TEXT NOT NULL UNIQUE,
			status         TEXT NOT NULL CHECK (` + statusCheck() + `),
			skills         TEXT NOT NULL DEFAULT '',
			location       TEXT NOT NULL DEFAULT '',
			available_time TEXT NOT NULL DEFAULT '',
			notes          TEXT NOT NULL DEFAULT '',
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS import_runs (
			id          TEXT PRIMARY KEY,
			file_name   TEXT NOT NULL,
			policy      TEXT NOT NULL,
			total       INTEGER NOT NULL,
			inserted    INTEGER NOT NULL,
			updated     INTEGER NOT NULL,
			skipped     INTEGER NOT NULL,
			rejected    INTEGER NOT NULL,
			started_at  TEXT NOT NULL,
			duration_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS import_runs_started_at_idx ON import_runs (started_at)`,
	}
}

func postgresSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS candidates (
			id             BIGSERIAL PRIMARY KEY,
			name           TEXT NOT NULL,
			email          TEXT NOT NULL CONSTRAINT candidates_email_key UNIQUE,
			phone          TEXT NOT NULL CONSTRAINT candidates_phone_key UNIQUE,
			status         TEXT NOT NULL CONSTRAINT candidates_status_check CHECK (` + statusCheck() + `),
			skills         TEXT NOT NULL DEFAULT '',
			location       TEXT NOT NULL DEFAULT '',
			available_time TEXT NOT NULL DEFAULT '',
			notes          TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL,
			CONSTRAINT candidates_timestamps_check CHECK (created_at <= updated_at)
		)`,
		`CREATE TABLE IF NOT EXISTS import_runs (
			id          UUID PRIMARY KEY,
			file_name   TEXT NOT NULL,
			policy      TEXT NOT NULL,
			total       INTEGER NOT NULL,
			inserted    INTEGER NOT NULL,
			updated     INTEGER NOT NULL,
			skipped     INTEGER NOT NULL,
			rejected    INTEGER NOT NULL,
			started_at  TIMESTAMPTZ NOT NULL,
			duration_ms BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS import_runs_started_at_idx ON import_runs (started_at DESC)`,
	}
}

// candidateColumns is the select list shared by both backends, in scan order.
const candidateColumns = `id, name, email, phone, status, skills, location, available_time, notes, created_at, updated_at`

const importRunColumns = `file_name, policy, total, inserted, updated, skipped, rejected, started_at, duration_ms`
