package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/talenttrack/internal/spreadsheet"
)

func csvFile(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func input(name, email, phone, status string) CandidateInput {
	return CandidateInput{Name: name, Email: email, Phone: phone, Status: status}
}

func rowsOf(inputs ...CandidateInput) []ImportRow {
	rows := make([]ImportRow, len(inputs))
	for i, in := range inputs {
		rows[i] = ImportRow{Line: i + 2, Input: in}
	}
	return rows
}

func TestParseDuplicatePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    DuplicatePolicy
		wantErr bool
	}{
		{"", PolicySkip, false},
		{"skip", PolicySkip, false},
		{" Update ", PolicyUpdate, false},
		{"update-stale", PolicyUpdateStale, false},
		{"merge", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDuplicatePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuplicatePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuplicatePolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestImportRows_MixedBatch(t *testing.T) {
	store := newMemStore()
	existing := store.seed(input("Old Timer", "old@example.com", "5550100", "Applied"))

	im := NewImporter(store, ImportOptions{})
	report, err := im.ImportRows(context.Background(), rowsOf(
		input("Ann Lee", "ann@example.com", "555-0101", "applied"),
		input("No Email", "", "5550102", "Applied"),
		input("Old Again", "OLD@example.com", "5550199", "Hired"),
		input("Bad Status", "bad@example.com", "5550103", "Maybe"),
	))
	if err != nil {
		t.Fatalf("ImportRows() error = %v", err)
	}

	if report.Total != 4 || report.Inserted != 1 || report.Skipped != 1 || report.Rejected != 2 || report.Updated != 0 {
		t.Errorf("report = total %d inserted %d updated %d skipped %d rejected %d",
			report.Total, report.Inserted, report.Updated, report.Skipped, report.Rejected)
	}

	wantOutcomes := []RowOutcome{OutcomeInserted, OutcomeRejected, OutcomeSkipped, OutcomeRejected}
	for i, want := range wantOutcomes {
		if report.Rows[i].Outcome != want {
			t.Errorf("row %d outcome = %s, want %s", i, report.Rows[i].Outcome, want)
		}
		if report.Rows[i].Line != i+2 {
			t.Errorf("row %d line = %d, want %d", i, report.Rows[i].Line, i+2)
		}
	}

	if report.Rows[2].CandidateID != existing.ID {
		t.Errorf("skipped row candidate = %d, want %d", report.Rows[2].CandidateID, existing.ID)
	}
	if !strings.Contains(strings.Join(report.Rows[1].Reasons, ";"), "email: required field is empty") {
		t.Errorf("rejected reasons = %v", report.Rows[1].Reasons)
	}
	if got := len(report.Problems()); got != 3 {
		t.Errorf("len(Problems()) = %d, want 3", got)
	}

	// Stored in canonical form.
	c, _ := store.Get(context.Background(), report.Rows[0].CandidateID)
	if c.Phone != "5550101" || c.Status != StatusApplied {
		t.Errorf("stored candidate = %+v, want normalized phone and status", c)
	}
}

func TestImportRows_SkipLeavesExistingUntouched(t *testing.T) {
	store := newMemStore()
	existing := store.seed(input("Ann Lee", "ann@example.com", "5550101", "Applied"))

	im := NewImporter(store, ImportOptions{Policy: PolicySkip})
	_, err := im.ImportRows(context.Background(), rowsOf(input("Ann Changed", "ann@example.com", "5550101", "Hired")))
	if err != nil {
		t.Fatalf("ImportRows() error = %v", err)
	}

	got, _ := store.Get(context.Background(), existing.ID)
	if got.Name != "Ann Lee" || got.Status != StatusApplied || !got.UpdatedAt.Equal(existing.UpdatedAt) {
		t.Errorf("existing candidate changed: %+v", got)
	}
}

func TestImportRows_UpdatePolicy(t *testing.T) {
	store := newMemStore()
	ann := store.seed(input("Ann Lee", "ann@example.com", "5550101", "Applied"))
	bob := store.seed(input("Bob Stone", "bob@example.com", "5550102", "Applied"))

	im := NewImporter(store, ImportOptions{Policy: PolicyUpdate})
	report, err := im.ImportRows(context.Background(), rowsOf(
		// matches Ann by email, moves her forward
		input("Ann Lee", "ann@example.com", "5550101", "Offered"),
		// matches Ann by email but takes Bob's phone
		input("Ann Lee", "ann@example.com", "5550102", "Hired"),
	))
	if err != nil {
		t.Fatalf("ImportRows() error = %v", err)
	}

	if report.Updated != 1 || report.Rejected != 1 {
		t.Fatalf("updated %d rejected %d, want 1 and 1", report.Updated, report.Rejected)
	}
	if report.Rows[1].Outcome != OutcomeRejected {
		t.Errorf("collision row outcome = %s", report.Rows[1].Outcome)
	}

	got, _ := store.Get(context.Background(), ann.ID)
	if got.Status != StatusOffered {
		t.Errorf("Ann status = %s, want Offered", got.Status)
	}
	gotBob, _ := store.Get(context.Background(), bob.ID)
	if gotBob.Phone != "5550102" || gotBob.Status != StatusApplied {
		t.Errorf("Bob changed: %+v", gotBob)
	}
}

func TestImportRows_UpdateStalePolicy(t *testing.T) {
	store := newMemStore()
	fresh := store.seed(input("Fresh", "fresh@example.com", "5550101", "Applied"))
	stale := store.seed(input("Stale", "stale@example.com", "5550102", "Rejected"))
	store.backdate(stale.ID, 100*24*time.Hour)

	im := NewImporter(store, ImportOptions{Policy: PolicyUpdateStale, ReaddAfter: 90 * 24 * time.Hour})
	report, err := im.ImportRows(context.Background(), rowsOf(
		input("Fresh", "fresh@example.com", "5550101", "Interviewing"),
		input("Stale", "stale@example.com", "5550102", "Applied"),
	))
	if err != nil {
		t.Fatalf("ImportRows() error = %v", err)
	}

	if report.Rows[0].Outcome != OutcomeSkipped {
		t.Errorf("fresh row = %s, want skipped", report.Rows[0].Outcome)
	}
	if !strings.Contains(report.Rows[0].Reasons[0], "re-add allowed after") {
		t.Errorf("fresh reason = %q", report.Rows[0].Reasons[0])
	}
	if report.Rows[1].Outcome != OutcomeUpdated {
		t.Errorf("stale row = %s, want updated", report.Rows[1].Outcome)
	}

	got, _ := store.Get(context.Background(), fresh.ID)
	if got.Status != StatusApplied {
		t.Errorf("fresh status = %s, want unchanged", got.Status)
	}
	got, _ = store.Get(context.Background(), stale.ID)
	if got.Status != StatusApplied {
		t.Errorf("stale status = %s, want Applied", got.Status)
	}
}

func TestImportRows_DuplicateWithinBatch(t *testing.T) {
	tests := []struct {
		policy       DuplicatePolicy
		wantOutcome  RowOutcome
		wantStatus   Status
		wantInserted int
	}{
		{PolicySkip, OutcomeSkipped, StatusApplied, 1},
		{PolicyUpdate, OutcomeUpdated, StatusHired, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			store := newMemStore()
			im := NewImporter(store, ImportOptions{Policy: tt.policy})
			report, err := im.ImportRows(context.Background(), rowsOf(
				input("Ann Lee", "ann@example.com", "5550101", "Applied"),
				input("Ann Lee", "Ann@Example.com", "555 0101", "Hired"),
			))
			if err != nil {
				t.Fatalf("ImportRows() error = %v", err)
			}
			if report.Inserted != tt.wantInserted {
				t.Errorf("Inserted = %d, want %d", report.Inserted, tt.wantInserted)
			}
			if report.Rows[1].Outcome != tt.wantOutcome {
				t.Errorf("second row = %s, want %s", report.Rows[1].Outcome, tt.wantOutcome)
			}

			all, _ := store.Search(context.Background(), Filters{})
			if len(all) != 1 || all[0].Status != tt.wantStatus {
				t.Errorf("stored = %+v, want one candidate with status %s", all, tt.wantStatus)
			}
		})
	}
}

func TestImportRows_StoreFailureAborts(t *testing.T) {
	store := newMemStore()
	store.failAfter = 2

	im := NewImporter(store, ImportOptions{})
	report, err := im.ImportRows(context.Background(), rowsOf(
		input("A", "a@example.com", "5550101", "Applied"),
		input("B", "b@example.com", "5550102", "Applied"),
		input("C", "c@example.com", "5550103", "Applied"),
	))
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("ImportRows() error = %v, want store failure", err)
	}
	if !strings.Contains(err.Error(), "line 4") {
		t.Errorf("error should name the failing line: %v", err)
	}
	if report == nil || report.Inserted != 2 {
		t.Errorf("partial report = %+v, want 2 inserted", report)
	}
}

func TestImportRows_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newMemStore()
	_, err := NewImporter(store, ImportOptions{}).ImportRows(ctx, rowsOf(input("A", "a@example.com", "5550101", "Applied")))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ImportRows() error = %v, want context.Canceled", err)
	}
	if all, _ := store.Search(context.Background(), Filters{}); len(all) != 0 {
		t.Errorf("stored %d candidates after cancel", len(all))
	}
}

func TestImportFile_LineNumbersAndBlankRows(t *testing.T) {
	store := newMemStore()
	im := NewImporter(store, ImportOptions{})

	report, err := im.ImportFile(context.Background(), "batch.csv", csvFile(
		"Candidate Name,Email,Phone,Status,Extra",
		"Ann Lee,ann@example.com,5550101,Applied,x",
		",,,,",
		"Bob Stone,not-an-email,5550102,Applied,y",
	))
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}

	if report.FileName != "batch.csv" {
		t.Errorf("FileName = %q", report.FileName)
	}
	if report.Total != 2 {
		t.Fatalf("Total = %d, want 2 (blank row ignored)", report.Total)
	}
	if report.Rows[1].Line != 4 || report.Rows[1].Outcome != OutcomeRejected {
		t.Errorf("second row = %+v, want rejected at line 4", report.Rows[1])
	}
}

func TestImportFile_FatalErrors(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		body     string
		wantMsg  string
	}{
		{"missing column", "x.csv", "name,email,status\nAnn,ann@example.com,Applied\n", "missing required columns: phone"},
		{"empty file", "x.csv", "", "empty file"},
		{"unsupported extension", "x.txt", "name,email,phone,status\n", "unsupported file format"},
		{"corrupt workbook", "x.xlsx", "not a zip", "read x.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			report, err := NewImporter(store, ImportOptions{}).ImportFile(context.Background(), tt.fileName, strings.NewReader(tt.body))

			var fatal *FatalIOError
			if !errors.As(err, &fatal) {
				t.Fatalf("ImportFile() error = %v, want *FatalIOError", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
			if report != nil {
				t.Errorf("report = %+v, want nil", report)
			}
			if all, _ := store.Search(context.Background(), Filters{}); len(all) != 0 {
				t.Errorf("stored %d candidates", len(all))
			}
		})
	}
}

func TestImportFile_Idempotent(t *testing.T) {
	store := newMemStore()
	im := NewImporter(store, ImportOptions{})
	file := []string{
		"name,email,phone,status",
		"Ann Lee,ann@example.com,5550101,Applied",
		"Bob Stone,bob@example.com,5550102,Hired",
	}

	first, err := im.ImportFile(context.Background(), "a.csv", csvFile(file...))
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	second, err := im.ImportFile(context.Background(), "a.csv", csvFile(file...))
	if err != nil {
		t.Fatalf("second import: %v", err)
	}

	if first.Inserted != 2 || second.Inserted != 0 || second.Skipped != 2 {
		t.Errorf("first inserted %d, second inserted %d skipped %d", first.Inserted, second.Inserted, second.Skipped)
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	seeds := []CandidateInput{
		{Name: "Ann Lee", Email: "ann@example.com", Phone: "+1 555 010 0101",
			Status: "Applied", Skills: "Go, SQL", Location: "Oslo", Notes: "quote \" and, comma"},
		input("Bob Stone", "bob@example.com", "5550102", "Hired"),
		{Name: "Cy Vance", Email: "cy@example.com", Phone: "5550103", Status: "Interviewing",
			Skills: "=C++", Location: "@remote", AvailableTime: "-", Notes: `"VIP"`},
		{Name: "Di Roy", Email: "di@example.com", Phone: "5550104", Status: "Offered",
			Skills: "+44 desk", Location: "'quoted", Notes: "=SUM(A1:A3)"},
	}

	for _, format := range []spreadsheet.Format{spreadsheet.FormatXLSX, spreadsheet.FormatCSV} {
		for _, policy := range []DuplicatePolicy{PolicySkip, PolicyUpdate} {
			t.Run(string(format)+"/"+string(policy), func(t *testing.T) {
				store := newMemStore()
				var want []Candidate
				for _, in := range seeds {
					want = append(want, store.seed(in))
				}

				var buf bytes.Buffer
				n, err := NewExporter(store).Export(context.Background(), &buf, format)
				if err != nil || n != len(seeds) {
					t.Fatalf("Export() = %d, %v", n, err)
				}

				report, err := NewImporter(store, ImportOptions{Policy: policy}).
					ImportFile(context.Background(), "export"+format.Extension(), &buf)
				if err != nil {
					t.Fatalf("ImportFile() error = %v", err)
				}
				wantUpdated := 0
				if policy == PolicyUpdate {
					wantUpdated = len(seeds)
				}
				if report.Inserted != 0 || report.Rejected != 0 || report.Updated != wantUpdated ||
					report.Skipped != len(seeds)-wantUpdated {
					t.Errorf("round trip = inserted %d updated %d skipped %d rejected %d",
						report.Inserted, report.Updated, report.Skipped, report.Rejected)
				}

				for _, w := range want {
					got, err := store.Get(context.Background(), w.ID)
					if err != nil {
						t.Fatalf("Get(%d) error = %v", w.ID, err)
					}
					if got.Input() != w.Input() {
						t.Errorf("candidate #%d after re-import =\n%+v\nwant\n%+v", w.ID, got.Input(), w.Input())
					}
				}
			})
		}
	}
}
