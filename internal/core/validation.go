package core

// validation.go provides field-level validation for candidate input.
//
// Checks run in a fixed order:
//  1. Required fields: name, email, phone and status must be non-empty
//  2. Email shape
//  3. Phone shape: digits with optional separators and a leading '+'
//  4. Status membership
//
// A field that fails the required check is not checked further. Validation
// never panics on bad input; every problem is returned in the result.

import (
	"fmt"
	"regexp"
	"strings"
)

// Phone length bounds, counted in digits after separators are removed.
const (
	MinPhoneDigits = 7
	MaxPhoneDigits = 15
)

var emailRegex = regexp.MustCompile(`^[\w.+-]+@[\w-]+(\.[\w-]+)*\.[A-Za-z]{2,}$`)

// phoneSeparators are dropped from phone numbers before validation and storage.
const phoneSeparators = " -.()"

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field/column name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors is the error form of a failed validation.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ForField returns the message of the first error on field, or "".
func (errs ValidationErrors) ForField(field string) string {
	for _, e := range errs {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

// Messages returns each error formatted as "field: message".
func (errs ValidationErrors) Messages() []string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return msgs
}

// ValidationResult contains the result of validating candidate input.
type ValidationResult struct {
	Valid  bool             // True if all validations passed
	Errors ValidationErrors // List of validation errors (empty if Valid)
}

// Err returns the errors as an error value, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return r.Errors
}

func (r *ValidationResult) add(field, value, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: message})
}

// Field names used in validation errors and spreadsheet headers.
const (
	FieldName          = "name"
	FieldEmail         = "email"
	FieldPhone         = "phone"
	FieldStatus        = "status"
	FieldSkills        = "skills"
	FieldLocation      = "location"
	FieldAvailableTime = "available_time"
	FieldNotes         = "notes"
)

// Validate checks candidate input and returns every problem found.
func Validate(in CandidateInput) ValidationResult {
	result := ValidationResult{Valid: true}

	required := []struct {
		field string
		value string
	}{
		{FieldName, in.Name},
		{FieldEmail, in.Email},
		{FieldPhone, in.Phone},
		{FieldStatus, in.Status},
	}
	missing := make(map[string]bool, len(required))
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			result.add(r.field, "", "required field is empty")
			missing[r.field] = true
		}
	}

	if !missing[FieldEmail] {
		if err := ValidateEmail(in.Email); err != nil {
			result.add(FieldEmail, in.Email, err.Error())
		}
	}
	if !missing[FieldPhone] {
		if err := ValidatePhone(in.Phone); err != nil {
			result.add(FieldPhone, in.Phone, err.Error())
		}
	}
	if !missing[FieldStatus] {
		if _, ok := ParseStatus(in.Status); !ok {
			result.add(FieldStatus, in.Status,
				fmt.Sprintf("invalid status, must be one of: %s", strings.Join(StatusNames(), ", ")))
		}
	}

	return result
}

// ValidateEmail checks that s looks like an email address.
func ValidateEmail(s string) error {
	if !emailRegex.MatchString(NormalizeEmail(s)) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidatePhone checks that s is a plausible phone number.
func ValidatePhone(s string) error {
	digits := strings.TrimPrefix(NormalizePhone(s), "+")
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("invalid phone format, use digits with optional spaces, dashes, dots or parentheses")
		}
	}
	if len(digits) < MinPhoneDigits || len(digits) > MaxPhoneDigits {
		return fmt.Errorf("invalid phone length, must have %d to %d digits", MinPhoneDigits, MaxPhoneDigits)
	}
	return nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone removes separators from a phone number, keeping a leading '+'.
// Characters that are neither digits nor separators are kept so validation can
// reject them.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case strings.ContainsRune(phoneSeparators, r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
