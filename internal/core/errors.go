package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a candidate id does not exist.
var ErrNotFound = errors.New("candidate not found")

// ErrDuplicate matches any *DuplicateError via errors.Is.
var ErrDuplicate = errors.New("duplicate candidate")

// DuplicateError reports a uniqueness violation on email or phone.
// The record is not written.
type DuplicateError struct {
	Field      string // FieldEmail or FieldPhone
	Value      string
	ExistingID int64 // 0 if the database only reported a constraint name
}

func (e *DuplicateError) Error() string {
	if e.ExistingID > 0 {
		return fmt.Sprintf("duplicate candidate: %s %q already belongs to candidate #%d", e.Field, e.Value, e.ExistingID)
	}
	return fmt.Sprintf("duplicate candidate: %s %q already exists", e.Field, e.Value)
}

// Is makes errors.Is(err, ErrDuplicate) true for any *DuplicateError.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// DuplicateOf builds the DuplicateError for in colliding with existing.
// Email collisions take precedence over phone collisions.
func DuplicateOf(in CandidateInput, existing *Candidate) *DuplicateError {
	if existing.Email == in.Email {
		return &DuplicateError{Field: FieldEmail, Value: in.Email, ExistingID: existing.ID}
	}
	return &DuplicateError{Field: FieldPhone, Value: in.Phone, ExistingID: existing.ID}
}

// FatalIOError aborts a whole import: the input could not be read or has no
// usable structure. Nothing is written when it is returned.
type FatalIOError struct {
	Op  string
	Err error
}

func (e *FatalIOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FatalIOError) Unwrap() error {
	return e.Err
}

func fatalIO(op string, err error) *FatalIOError {
	return &FatalIOError{Op: op, Err: err}
}
