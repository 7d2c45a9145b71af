package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference.
//
// # Error Codes Reference
//
// Typed errors are matched first (errors.Is / errors.As), then the error text
// is matched case-insensitively against known patterns.
//
// # Candidate Errors (CAND001-CAND099)
//
//	CAND001 - Duplicate candidate: email or phone already belongs to a candidate
//	          Action: Edit the existing candidate instead
//	          Matches: ErrDuplicate, "duplicate candidate"
//
//	CAND002 - Not found: the candidate does not exist
//	          Action: Return to the candidate list
//	          Matches: ErrNotFound, "candidate not found"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Required field is empty           ("required field")
//	VAL002 - Invalid email address              ("invalid email")
//	VAL003 - Invalid phone number               ("invalid phone")
//	VAL004 - Invalid status                     ("invalid status")
//	VAL005 - Spreadsheet is missing a column    ("missing required column")
//
// A ValidationErrors value is reported with the code of its first error.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large                    (ErrFileTooLarge, "file too large")
//	FILE002 - Unsupported file type             ("unsupported file format")
//	FILE003 - File could not be read            (*FatalIOError not matched above)
//	FILE004 - No file selected                  (ErrNoFile, "no file provided")
//	FILE005 - Empty file                        ("empty file")
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Another import is running          (ErrImportBusy)
//	IMP002 - Unknown duplicate policy           ("unknown duplicate policy")
//	IMP003 - Import cancelled                   (context.Canceled)
//	IMP004 - Import timed out                   (context.DeadlineExceeded)
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Database is locked                  ("database is locked", "sqlite_busy")
//	DB002 - Unable to connect                   ("connection refused")
//	DB003 - Unique constraint                   ("unique constraint", "violates unique")
//	DB004 - Operation timed out                 ("timeout")
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Support staff should check the application
// log, which carries the technical error and the request ID.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Errors raised by callers reading uploads.
var (
	ErrFileTooLarge = errors.New("file too large")
	ErrNoFile       = errors.New("no file provided")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgDuplicate = UserMessage{
		Message: "A candidate with this email or phone already exists",
		Action:  "Edit the existing candidate instead",
		Code:    "CAND001",
	}
	msgNotFound = UserMessage{
		Message: "Candidate not found",
		Action:  "Return to the candidate list",
		Code:    "CAND002",
	}
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	}
	msgUnreadable = UserMessage{
		Message: "The file could not be read",
		Action:  "Check that the file is a valid .xlsx or .csv spreadsheet",
		Code:    "FILE003",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Please select an .xlsx or .csv file",
		Code:    "FILE004",
	}
	msgImportBusy = UserMessage{
		Message: "Another import is in progress",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}
	msgCancelled = UserMessage{
		Message: "The request was cancelled",
		Action:  "Please try again",
		Code:    "IMP003",
	}
	msgTimedOut = UserMessage{
		Message: "The request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "IMP004",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// The first matching pattern wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	// Candidate
	{"duplicate candidate", msgDuplicate},
	{"candidate not found", msgNotFound},

	// Validation
	{"required field", UserMessage{
		Message: "A required field is empty",
		Action:  "Fill in name, email, phone and status",
		Code:    "VAL001",
	}},
	{"invalid email", UserMessage{
		Message: "The email address is not valid",
		Action:  "Use an address like name@example.com",
		Code:    "VAL002",
	}},
	{"invalid phone", UserMessage{
		Message: "The phone number is not valid",
		Action:  "Use 7 to 15 digits with optional spaces, dashes or a leading +",
		Code:    "VAL003",
	}},
	{"invalid status", UserMessage{
		Message: "The status is not recognized",
		Action:  "Use Applied, Interviewing, Offered, Hired or Rejected",
		Code:    "VAL004",
	}},
	{"missing required column", UserMessage{
		Message: "The spreadsheet is missing a required column",
		Action:  "Download the template and match its header row",
		Code:    "VAL005",
	}},

	// File
	{"file too large", msgFileTooLarge},
	{"unsupported file format", UserMessage{
		Message: "This file type is not supported",
		Action:  "Upload an .xlsx or .csv file",
		Code:    "FILE002",
	}},
	{"no file provided", msgNoFile},
	{"empty file", UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Upload a spreadsheet with a header row and data rows",
		Code:    "FILE005",
	}},

	// Import
	{"unknown duplicate policy", UserMessage{
		Message: "Unknown duplicate handling option",
		Action:  "Choose skip, update or update-stale",
		Code:    "IMP002",
	}},
	{"context canceled", msgCancelled},
	{"context deadline exceeded", msgTimedOut},

	// Database
	{"database is locked", UserMessage{
		Message: "The database is busy",
		Action:  "Please try again in a few moments",
		Code:    "DB001",
	}},
	{"sqlite_busy", UserMessage{
		Message: "The database is busy",
		Action:  "Please try again in a few moments",
		Code:    "DB001",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB002",
	}},
	{"unique constraint", UserMessage{
		Message: "This value must be unique but already exists",
		Action:  "Check for duplicate email or phone values",
		Code:    "DB003",
	}},
	{"violates unique", UserMessage{
		Message: "This value must be unique but already exists",
		Action:  "Check for duplicate email or phone values",
		Code:    "DB003",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Please try again later",
		Code:    "DB004",
	}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Known typed errors are matched first, then error text patterns. If nothing
// matches, a generic fallback with code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var verrs ValidationErrors
	var fatal *FatalIOError

	switch {
	case errors.Is(err, ErrDuplicate):
		return msgDuplicate
	case errors.Is(err, ErrNotFound):
		return msgNotFound
	case errors.Is(err, ErrImportBusy):
		return msgImportBusy
	case errors.Is(err, ErrFileTooLarge):
		return msgFileTooLarge
	case errors.Is(err, ErrNoFile):
		return msgNoFile
	case errors.Is(err, context.Canceled):
		return msgCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimedOut
	case errors.As(err, &verrs) && len(verrs) > 0:
		return matchPattern(verrs[0].Message)
	}

	if msg, ok := lookupPattern(err.Error()); ok {
		return msg
	}
	if errors.As(err, &fatal) {
		return msgUnreadable
	}
	return defaultMessage
}

func matchPattern(s string) UserMessage {
	if msg, ok := lookupPattern(s); ok {
		return msg
	}
	return defaultMessage
}

func lookupPattern(s string) (UserMessage, bool) {
	s = strings.ToLower(s)
	for _, ep := range errorPatterns {
		if strings.Contains(s, ep.pattern) {
			return ep.msg, true
		}
	}
	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
