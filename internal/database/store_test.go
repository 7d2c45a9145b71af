package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/talenttrack/internal/core"
	"github.com/google/uuid"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"), 5*time.Second)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func candidate(name, email, phone string, status core.Status) core.CandidateInput {
	return core.CandidateInput{
		Name:   name,
		Email:  email,
		Phone:  phone,
		Status: string(status),
	}.Normalize()
}

// runStoreContract exercises behavior every Store must share. The store must
// be empty.
func runStoreContract(t *testing.T, store core.Store) {
	ctx := context.Background()

	ann, err := store.Insert(ctx, candidate("Ann Lee", "ann@example.com", "5550101", core.StatusApplied))
	if err != nil {
		t.Fatalf("Insert(ann) error = %v", err)
	}
	bob, err := store.Insert(ctx, candidate("Bob Stone", "bob@example.com", "5550102", core.StatusHired))
	if err != nil {
		t.Fatalf("Insert(bob) error = %v", err)
	}

	t.Run("insert assigns ids and timestamps", func(t *testing.T) {
		if ann.ID <= 0 || bob.ID <= ann.ID {
			t.Errorf("ids = %d, %d, want increasing positive ids", ann.ID, bob.ID)
		}
		if ann.CreatedAt.IsZero() || !ann.CreatedAt.Equal(ann.UpdatedAt) {
			t.Errorf("created_at = %v, updated_at = %v, want equal and set", ann.CreatedAt, ann.UpdatedAt)
		}
	})

	t.Run("get", func(t *testing.T) {
		got, err := store.Get(ctx, ann.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Email != "ann@example.com" || got.Status != core.StatusApplied {
			t.Errorf("Get() = %+v", got)
		}
		if !got.CreatedAt.Equal(ann.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, ann.CreatedAt)
		}

		_, err = store.Get(ctx, 999999)
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := store.Insert(ctx, candidate("Ann Two", "ann@example.com", "5550199", core.StatusApplied))
		var dup *core.DuplicateError
		if !errors.As(err, &dup) {
			t.Fatalf("Insert() error = %v, want *DuplicateError", err)
		}
		if dup.Field != core.FieldEmail || dup.ExistingID != ann.ID {
			t.Errorf("DuplicateError = %+v, want email of #%d", dup, ann.ID)
		}
	})

	t.Run("duplicate phone rejected", func(t *testing.T) {
		_, err := store.Insert(ctx, candidate("Phone Twin", "twin@example.com", "555-0102", core.StatusApplied))
		var dup *core.DuplicateError
		if !errors.As(err, &dup) {
			t.Fatalf("Insert() error = %v, want *DuplicateError", err)
		}
		if dup.Field != core.FieldPhone || dup.ExistingID != bob.ID {
			t.Errorf("DuplicateError = %+v, want phone of #%d", dup, bob.ID)
		}
	})

	t.Run("find by email or phone", func(t *testing.T) {
		got, err := store.FindByEmailOrPhone(ctx, "nobody@example.com", "5550102")
		if err != nil {
			t.Fatalf("FindByEmailOrPhone() error = %v", err)
		}
		if got == nil || got.ID != bob.ID {
			t.Errorf("FindByEmailOrPhone() = %+v, want #%d", got, bob.ID)
		}

		got, err = store.FindByEmailOrPhone(ctx, "nobody@example.com", "000000000")
		if err != nil || got != nil {
			t.Errorf("FindByEmailOrPhone(none) = %+v, %v, want nil, nil", got, err)
		}
	})

	t.Run("update", func(t *testing.T) {
		in := ann.Input()
		in.Status = string(core.StatusInterviewing)
		in.Notes = "phone screen booked"

		got, err := store.Update(ctx, ann.ID, in)
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if got.Status != core.StatusInterviewing || got.Notes != "phone screen booked" {
			t.Errorf("Update() = %+v", got)
		}
		if !got.CreatedAt.Equal(ann.CreatedAt) {
			t.Errorf("CreatedAt changed: %v -> %v", ann.CreatedAt, got.CreatedAt)
		}
		if got.UpdatedAt.Before(got.CreatedAt) {
			t.Errorf("UpdatedAt %v before CreatedAt %v", got.UpdatedAt, got.CreatedAt)
		}
	})

	t.Run("update into another candidate's email", func(t *testing.T) {
		in := ann.Input()
		in.Email = "bob@example.com"

		_, err := store.Update(ctx, ann.ID, in)
		if !errors.Is(err, core.ErrDuplicate) {
			t.Fatalf("Update() error = %v, want ErrDuplicate", err)
		}
		got, _ := store.Get(ctx, ann.ID)
		if got.Email != "ann@example.com" {
			t.Errorf("email changed to %q after failed update", got.Email)
		}
	})

	t.Run("update missing", func(t *testing.T) {
		_, err := store.Update(ctx, 999999, ann.Input())
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("search", func(t *testing.T) {
		tests := []struct {
			name    string
			filters core.Filters
			wantIDs []int64
		}{
			{"all", core.Filters{}, []int64{ann.ID, bob.ID}},
			{"name substring, case-insensitive", core.Filters{Name: "STONE"}, []int64{bob.ID}},
			{"email substring", core.Filters{Email: "ann@"}, []int64{ann.ID}},
			{"phone with separators", core.Filters{Phone: "555-0101"}, []int64{ann.ID}},
			{"status", core.Filters{Status: core.StatusHired}, []int64{bob.ID}},
			{"combined", core.Filters{Name: "ann", Status: core.StatusHired}, []int64{}},
			{"no match", core.Filters{Name: "zelda"}, []int64{}},
			{"wildcard literal", core.Filters{Name: "%"}, []int64{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := store.Search(ctx, tt.filters)
				if err != nil {
					t.Fatalf("Search() error = %v", err)
				}
				if got == nil {
					t.Fatal("Search() returned nil slice")
				}
				ids := make([]int64, len(got))
				for i, c := range got {
					ids[i] = c.ID
				}
				if fmt.Sprint(ids) != fmt.Sprint(tt.wantIDs) {
					t.Errorf("Search() ids = %v, want %v", ids, tt.wantIDs)
				}
			})
		}
	})

	t.Run("summary", func(t *testing.T) {
		sum, err := store.Summary(ctx)
		if err != nil {
			t.Fatalf("Summary() error = %v", err)
		}
		if sum.Total != 2 {
			t.Errorf("Total = %d, want 2", sum.Total)
		}
		if sum.Count(core.StatusInterviewing) != 1 || sum.Count(core.StatusHired) != 1 {
			t.Errorf("ByStatus = %v", sum.ByStatus)
		}
		if _, ok := sum.ByStatus[core.StatusRejected]; !ok {
			t.Error("ByStatus should include zero counts")
		}
	})

	t.Run("search non-ascii name", func(t *testing.T) {
		emile, err := store.Insert(ctx, candidate("Émile Zola", "emile@example.com", "5550103", core.StatusApplied))
		if err != nil {
			t.Fatalf("Insert(emile) error = %v", err)
		}

		tests := []struct {
			query string
			want  int
		}{
			{"Émile", 1},
			{"émile", 1},
			{"ÉMILE", 1},
			{"zola", 1},
			{"Emile", 0},
		}
		for _, tt := range tests {
			t.Run(tt.query, func(t *testing.T) {
				got, err := store.Search(ctx, core.Filters{Name: tt.query})
				if err != nil {
					t.Fatalf("Search() error = %v", err)
				}
				if len(got) != tt.want {
					t.Fatalf("Search(%q) = %d results, want %d", tt.query, len(got), tt.want)
				}
				if tt.want == 1 && got[0].ID != emile.ID {
					t.Errorf("Search(%q) = #%d, want #%d", tt.query, got[0].ID, emile.ID)
				}
			})
		}
	})

	t.Run("import runs", func(t *testing.T) {
		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			run := core.ImportRun{
				ID:        uuid.New().String(),
				FileName:  fmt.Sprintf("batch-%d.xlsx", i),
				Policy:    core.PolicySkip,
				Total:     10,
				Inserted:  7,
				Skipped:   2,
				Rejected:  1,
				StartedAt: base.Add(time.Duration(i) * time.Hour),
				Duration:  1500 * time.Millisecond,
			}
			if err := store.RecordImport(ctx, run); err != nil {
				t.Fatalf("RecordImport() error = %v", err)
			}
		}

		runs, err := store.RecentImports(ctx, 2)
		if err != nil {
			t.Fatalf("RecentImports() error = %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("len(runs) = %d, want 2", len(runs))
		}
		if runs[0].FileName != "batch-2.xlsx" || runs[1].FileName != "batch-1.xlsx" {
			t.Errorf("runs = %s, %s, want newest first", runs[0].FileName, runs[1].FileName)
		}
		if runs[0].Inserted != 7 || runs[0].Duration != 1500*time.Millisecond || runs[0].Policy != core.PolicySkip {
			t.Errorf("run = %+v", runs[0])
		}
		if !runs[0].StartedAt.Equal(base.Add(2 * time.Hour)) {
			t.Errorf("StartedAt = %v", runs[0].StartedAt)
		}
	})
}

func TestSQLiteStore_Contract(t *testing.T) {
	runStoreContract(t, newSQLiteStore(t))
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	store, err := OpenSQLite(ctx, path, time.Second)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	c, err := store.Insert(ctx, candidate("Ann Lee", "ann@example.com", "5550101", core.StatusApplied))
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	store.Close()

	store, err = OpenSQLite(ctx, path, time.Second)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer store.Close()

	got, err := store.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got.Email != c.Email {
		t.Errorf("Email = %q, want %q", got.Email, c.Email)
	}
}

func TestSQLiteStore_ConcurrentInsertSameEmail(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Insert(ctx, candidate(
				fmt.Sprintf("Racer %d", i), "race@example.com", fmt.Sprintf("55501%02d", i), core.StatusApplied))
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, core.ErrDuplicate):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != workers-1 {
		t.Errorf("inserted %d, duplicates %d, want 1 and %d", ok, dup, workers-1)
	}
}

func TestSQLiteWriteError(t *testing.T) {
	in := candidate("Ann", "ann@example.com", "5550101", core.StatusApplied)

	tests := []struct {
		name      string
		err       error
		wantField string
	}{
		{"email constraint", errors.New("constraint failed: UNIQUE constraint failed: candidates.email (2067)"), core.FieldEmail},
		{"phone constraint", errors.New("constraint failed: UNIQUE constraint failed: candidates.phone (2067)"), core.FieldPhone},
		{"other error", errors.New("disk I/O error"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sqliteWriteError(tt.err, in)
			var dup *core.DuplicateError
			if tt.wantField == "" {
				if errors.As(err, &dup) {
					t.Fatalf("sqliteWriteError() = %v, want plain error", err)
				}
				return
			}
			if !errors.As(err, &dup) || dup.Field != tt.wantField {
				t.Errorf("sqliteWriteError() = %v, want duplicate %s", err, tt.wantField)
			}
		})
	}
}
