package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

type harness struct {
	t   *testing.T
	dir string
	db  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")
	dir := t.TempDir()
	return &harness{t: t, dir: dir, db: filepath.Join(dir, "cli.db")}
}

// run executes ttctl against the harness database.
func (h *harness) run(args ...string) (code int, stdout, stderr string) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--db", h.db, "--env-file", filepath.Join(h.dir, "missing.env")}, args...)
	code = Execute(context.Background(), full, &out, &errOut)
	return code, out.String(), errOut.String()
}

func (h *harness) file(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		h.t.Fatal(err)
	}
	return path
}

// summaryCount reads "<label>  <n>" from summary output, or -1.
func summaryCount(out, label string) int {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[0] == label {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return -1
			}
			return n
		}
	}
	return -1
}

const batchCSV = "name,email,phone,status\n" +
	"Ann Lee,ann@example.com,555-0101,Applied\n" +
	"Bob Stone,bob@example.com,5550102,Hired\n" +
	"Ann Twin,ANN@example.com,5550199,Applied\n" +
	"No Email,,5550103,Applied\n"

func TestImportThenReimportExport(t *testing.T) {
	h := newHarness(t)
	src := h.file("batch.csv", batchCSV)

	code, out, stderr := h.run("import", src)
	if code != 0 {
		t.Fatalf("import exit %d: %s", code, stderr)
	}
	if !strings.Contains(out, "batch.csv: 4 row(s), 2 inserted, 0 updated, 1 skipped, 1 rejected") {
		t.Errorf("import output = %q", out)
	}
	if !strings.Contains(out, "email: required field is empty") {
		t.Errorf("rejected row not listed: %q", out)
	}

	for _, name := range []string{"all.xlsx", "all.csv"} {
		dst := filepath.Join(h.dir, name)
		code, out, stderr = h.run("export", dst)
		if code != 0 {
			t.Fatalf("export %s exit %d: %s", name, code, stderr)
		}
		if !strings.Contains(out, "Exported 2 candidate(s)") {
			t.Errorf("export output = %q", out)
		}

		code, out, _ = h.run("import", dst)
		if code != 0 || !strings.Contains(out, "2 row(s), 0 inserted, 0 updated, 2 skipped") {
			t.Errorf("re-import of %s: exit %d, %q", name, code, out)
		}
	}
}

func TestImportPolicyFlag(t *testing.T) {
	h := newHarness(t)
	if code, _, stderr := h.run("import", h.file("a.csv", batchCSV)); code != 0 {
		t.Fatalf("import exit %d: %s", code, stderr)
	}

	update := h.file("b.csv", "name,email,phone,status\nBob Stone,bob@example.com,5550102,Rejected\n")
	code, out, _ := h.run("import", "--policy", "update", update)
	if code != 0 || !strings.Contains(out, "1 updated") {
		t.Errorf("import --policy update: exit %d, %q", code, out)
	}

	_, out, _ = h.run("summary")
	if got := summaryCount(out, "Rejected"); got != 1 {
		t.Errorf("Rejected = %d in summary %q", got, out)
	}
	if got := summaryCount(out, "Hired"); got != 0 {
		t.Errorf("Hired = %d in summary %q", got, out)
	}
}

func TestPreviewWritesNothing(t *testing.T) {
	h := newHarness(t)

	code, out, stderr := h.run("preview", h.file("batch.csv", batchCSV))
	if code != 0 {
		t.Fatalf("preview exit %d: %s", code, stderr)
	}
	if !strings.Contains(out, "4 row(s), 2 new, 0 duplicate(s), 1 repeated in file, 1 invalid") {
		t.Errorf("preview output = %q", out)
	}
	if !strings.Contains(out, "same email or phone as line 2") {
		t.Errorf("in-file duplicate not reported: %q", out)
	}

	_, out, _ = h.run("summary")
	if got := summaryCount(out, "Total"); got != 0 {
		t.Errorf("Total = %d after preview, summary %q", got, out)
	}
}

func TestTemplateCommand(t *testing.T) {
	h := newHarness(t)
	dst := filepath.Join(h.dir, "template.csv")

	if code, _, stderr := h.run("template", dst); code != 0 {
		t.Fatalf("template exit %d: %s", code, stderr)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "name,email,phone,status,") {
		t.Errorf("template = %q", data)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     func(h *harness) []string
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing file argument",
			args:     func(h *harness) []string { return []string{"import"} },
			wantCode: 2,
			wantErr:  "accepts 1 arg(s)",
		},
		{
			name: "unknown policy",
			args: func(h *harness) []string {
				return []string{"import", "--policy", "merge", h.file("a.csv", batchCSV)}
			},
			wantCode: 2,
			wantErr:  "unknown duplicate policy",
		},
		{
			name:     "unknown flag",
			args:     func(h *harness) []string { return []string{"summary", "--bogus"} },
			wantCode: 2,
			wantErr:  "unknown flag: --bogus",
		},
		{
			name:     "flag without value",
			args:     func(h *harness) []string { return []string{"import", "--policy"} },
			wantCode: 2,
			wantErr:  "flag needs an argument",
		},
		{
			name: "missing columns",
			args: func(h *harness) []string {
				return []string{"import", h.file("a.csv", "name,email\nAnn,ann@example.com\n")}
			},
			wantCode: 1,
			wantErr:  "VAL005",
		},
		{
			name:     "unsupported export extension",
			args:     func(h *harness) []string { return []string{"export", filepath.Join(h.dir, "out.txt")} },
			wantCode: 1,
			wantErr:  "FILE002",
		},
		{
			name:     "file does not exist",
			args:     func(h *harness) []string { return []string{"preview", filepath.Join(h.dir, "nope.csv")} },
			wantCode: 1,
			wantErr:  "nope.csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			code, _, stderr := h.run(tt.args(h)...)
			if code != tt.wantCode {
				t.Errorf("exit = %d, want %d (%s)", code, tt.wantCode, stderr)
			}
			if !strings.Contains(stderr, tt.wantErr) {
				t.Errorf("stderr = %q, want %q", stderr, tt.wantErr)
			}
		})
	}

	h := newHarness(t)
	h.run("export", filepath.Join(h.dir, "out.txt"))
	if _, err := os.Stat(filepath.Join(h.dir, "out.txt")); !os.IsNotExist(err) {
		t.Error("failed export left a file behind")
	}
}
