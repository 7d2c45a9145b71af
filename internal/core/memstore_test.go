package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// memStore is an in-memory Store for engine tests.
type memStore struct {
	mu         sync.Mutex
	candidates map[int64]Candidate
	runs       []ImportRun
	nextID     int64
	now        func() time.Time

	// failAfter makes every call fail once this many inserts succeeded (0 = never).
	failAfter int
	inserts   int
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		candidates: make(map[int64]Candidate),
		nextID:     1,
		now:        time.Now,
	}
}

var errStoreDown = errors.New("store unavailable: connection refused")

func (m *memStore) down() bool {
	return m.failAfter > 0 && m.inserts >= m.failAfter
}

func (m *memStore) conflict(email, phone string, excludeID int64) *Candidate {
	var best *Candidate
	for _, c := range m.candidates {
		if c.ID == excludeID {
			continue
		}
		if c.Email == email || c.Phone == phone {
			if best == nil || c.ID < best.ID {
				cp := c
				best = &cp
			}
		}
	}
	return best
}

func (m *memStore) FindByEmailOrPhone(_ context.Context, email, phone string) (*Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down() {
		return nil, errStoreDown
	}
	return m.conflict(email, phone, 0), nil
}

func (m *memStore) Insert(_ context.Context, in CandidateInput) (*Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down() {
		return nil, errStoreDown
	}
	if existing := m.conflict(in.Email, in.Phone, 0); existing != nil {
		return nil, DuplicateOf(in, existing)
	}

	now := m.now().UTC()
	c := candidateOf(m.nextID, in, now, now)
	m.candidates[c.ID] = c
	m.nextID++
	m.inserts++
	return &c, nil
}

func (m *memStore) Update(_ context.Context, id int64, in CandidateInput) (*Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down() {
		return nil, errStoreDown
	}
	current, ok := m.candidates[id]
	if !ok {
		return nil, fmt.Errorf("candidate %d: %w", id, ErrNotFound)
	}
	if existing := m.conflict(in.Email, in.Phone, id); existing != nil {
		return nil, DuplicateOf(in, existing)
	}

	c := candidateOf(id, in, current.CreatedAt, m.now().UTC())
	m.candidates[id] = c
	return &c, nil
}

func (m *memStore) Get(_ context.Context, id int64) (*Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[id]
	if !ok {
		return nil, fmt.Errorf("candidate %d: %w", id, ErrNotFound)
	}
	return &c, nil
}

func (m *memStore) Search(_ context.Context, f Filters) ([]Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down() {
		return nil, errStoreDown
	}

	contains := func(field, sub string) bool {
		return sub == "" || strings.Contains(strings.ToLower(field), strings.ToLower(sub))
	}
	out := make([]Candidate, 0)
	for _, c := range m.candidates {
		if contains(c.Name, f.Name) && contains(c.Email, f.Email) && contains(c.Phone, NormalizePhone(f.Phone)) &&
			(f.Status == "" || c.Status == f.Status) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) Summary(_ context.Context) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := NewSummary()
	for _, c := range m.candidates {
		s.ByStatus[c.Status]++
		s.Total++
	}
	return s, nil
}

func (m *memStore) RecordImport(_ context.Context, run ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memStore) RecentImports(_ context.Context, limit int) ([]ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ImportRun, 0, limit)
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

// backdate moves a candidate's created_at into the past.
func (m *memStore) backdate(id int64, age time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.candidates[id]
	c.CreatedAt = c.CreatedAt.Add(-age)
	c.UpdatedAt = c.CreatedAt
	m.candidates[id] = c
}

func candidateOf(id int64, in CandidateInput, createdAt, updatedAt time.Time) Candidate {
	return Candidate{
		ID:            id,
		Name:          in.Name,
		Email:         in.Email,
		Phone:         in.Phone,
		Status:        Status(in.Status),
		Skills:        in.Skills,
		Location:      in.Location,
		AvailableTime: in.AvailableTime,
		Notes:         in.Notes,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

// seed inserts normalized input directly.
func (m *memStore) seed(in CandidateInput) Candidate {
	c, err := m.Insert(context.Background(), in.Normalize())
	if err != nil {
		panic(err)
	}
	return *c
}
