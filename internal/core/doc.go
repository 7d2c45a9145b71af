// Package core provides the business logic for candidate tracking.
//
// This package is the heart of TalentTrack, containing all domain logic
// independent of any UI or storage engine. It can be used by web handlers,
// the CLI, or tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Validator: [Validate] checks raw candidate fields and never fails hard on
//     bad input; problems come back as a [ValidationResult].
//   - Record Store: the [Store] interface owns persisted candidates and enforces
//     uniqueness of email and phone. Implementations live in internal/database.
//   - Service: [Service] validates manual form input before it reaches the store.
//   - Import/Export: [Importer] reconciles spreadsheet rows against the store
//     under a [DuplicatePolicy]; [Exporter] writes the store back out in the
//     same layout the importer reads.
//
// # Duplicate Policy
//
// When an imported row matches an existing candidate by email or phone, the
// configured policy decides what happens:
//
//   - skip (default): the row is reported as skipped-duplicate.
//   - update: the matched candidate is overwritten with the row's fields.
//   - update-stale: the match is overwritten only once it is older than the
//     configured re-add window, otherwise skipped.
//
// Rows that repeat an earlier row of the same file are handled exactly like
// database duplicates, because the earlier row has already been written.
//
// # Error Handling
//
// Field problems are [ValidationErrors], uniqueness violations are
// [*DuplicateError] (matching [ErrDuplicate]), missing ids wrap [ErrNotFound]
// and unreadable import files are [*FatalIOError]. Technical errors are mapped
// to user-friendly messages using [MapError]:
//
//   - CAND001-CAND002: Candidate errors (duplicate, not found)
//   - VAL001-VAL005: Validation errors (formats, missing columns)
//   - FILE001-FILE005: File errors (size, format, empty)
//   - IMP001-IMP003: Import errors (busy, cancelled, timeout)
//   - DB001-DB004: Database errors (constraints, connections)
package core
