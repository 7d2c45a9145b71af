package core

import (
	"strings"
	"time"
)

// Status is the hiring stage of a candidate.
type Status string

const (
	StatusApplied      Status = "Applied"
	StatusInterviewing Status = "Interviewing"
	StatusOffered      Status = "Offered"
	StatusHired        Status = "Hired"
	StatusRejected     Status = "Rejected"
)

// Statuses lists every recognized status in pipeline order.
var Statuses = []Status{
	StatusApplied,
	StatusInterviewing,
	StatusOffered,
	StatusHired,
	StatusRejected,
}

// ParseStatus matches s against the recognized statuses, ignoring case and
// surrounding whitespace.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	for _, st := range Statuses {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

// StatusNames returns the recognized statuses as strings.
func StatusNames() []string {
	names := make([]string, len(Statuses))
	for i, st := range Statuses {
		names[i] = string(st)
	}
	return names
}

// CandidateInput holds raw, user-supplied candidate fields.
// It is the shape produced by the web form and by spreadsheet rows.
type CandidateInput struct {
	Name          string
	Email         string
	Phone         string
	Status        string
	Skills        string
	Location      string
	AvailableTime string
	Notes         string
}

// Normalize returns the canonical form persisted by the store: values are
// trimmed, email is lower-cased, phone separators are removed and status uses
// its canonical spelling. Normalize does not validate.
func (in CandidateInput) Normalize() CandidateInput {
	out := CandidateInput{
		Name:          strings.TrimSpace(in.Name),
		Email:         NormalizeEmail(in.Email),
		Phone:         NormalizePhone(in.Phone),
		Status:        strings.TrimSpace(in.Status),
		Skills:        strings.TrimSpace(in.Skills),
		Location:      strings.TrimSpace(in.Location),
		AvailableTime: strings.TrimSpace(in.AvailableTime),
		Notes:         strings.TrimSpace(in.Notes),
	}
	if st, ok := ParseStatus(out.Status); ok {
		out.Status = string(st)
	}
	return out
}

// Candidate is a persisted candidate record.
type Candidate struct {
	ID            int64
	Name          string
	Email         string
	Phone         string
	Status        Status
	Skills        string
	Location      string
	AvailableTime string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Input returns the candidate's mutable fields, e.g. to prefill an edit form.
func (c Candidate) Input() CandidateInput {
	return CandidateInput{
		Name:          c.Name,
		Email:         c.Email,
		Phone:         c.Phone,
		Status:        string(c.Status),
		Skills:        c.Skills,
		Location:      c.Location,
		AvailableTime: c.AvailableTime,
		Notes:         c.Notes,
	}
}

// Filters narrows a candidate search. Zero-valued fields are ignored.
// Name, Email and Phone match case-insensitive substrings; Status is exact.
type Filters struct {
	Name   string
	Email  string
	Phone  string
	Status Status
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f == Filters{}
}

// Summary holds candidate counts for the dashboard.
type Summary struct {
	Total    int
	ByStatus map[Status]int
}

// NewSummary returns a Summary with every recognized status present at zero.
func NewSummary() Summary {
	s := Summary{ByStatus: make(map[Status]int, len(Statuses))}
	for _, st := range Statuses {
		s.ByStatus[st] = 0
	}
	return s
}

// Count returns the number of candidates with the given status.
func (s Summary) Count(st Status) int {
	return s.ByStatus[st]
}

// ImportRun is the persisted summary of one completed file import.
type ImportRun struct {
	ID        string
	FileName  string
	Policy    DuplicatePolicy
	Total     int
	Inserted  int
	Updated   int
	Skipped   int
	Rejected  int
	StartedAt time.Time
	Duration  time.Duration
}
