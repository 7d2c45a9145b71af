package web

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/talenttrack/internal/config"
	"github.com/JonMunkholm/talenttrack/internal/core"
	"github.com/JonMunkholm/talenttrack/internal/database"
	"github.com/JonMunkholm/talenttrack/internal/spreadsheet"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           8080,
			RequestTimeout: 10 * time.Second,
		},
		Import: config.ImportConfig{
			MaxFileSize:     64 << 10,
			DuplicatePolicy: "skip",
			ReaddAfter:      core.DefaultReaddAfter,
			MaxConcurrent:   1,
			MaxWaitTime:     100 * time.Millisecond,
			Timeout:         time.Minute,
		},
	}
}

func newTestServer(t *testing.T) (*Server, *core.Service) {
	t.Helper()
	store, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "web.db"), 5*time.Second)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	cfg := testConfig()
	svc, err := core.NewService(store, cfg.Import)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return NewServer(svc, cfg), svc
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func multipartRequest(t *testing.T, path, fileName string, content []byte, policy string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	}
	if policy != "" {
		mw.WriteField("policy", policy)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func candidateForm(name, email, phone, status string) url.Values {
	return url.Values{
		core.FieldName:   {name},
		core.FieldEmail:  {email},
		core.FieldPhone:  {phone},
		core.FieldStatus: {status},
	}
}

func TestDashboard(t *testing.T) {
	s, svc := newTestServer(t)
	if _, err := svc.Create(context.Background(), core.CandidateInput{
		Name: "Ann", Email: "ann@example.com", Phone: "5550101", Status: "Hired",
	}); err != nil {
		t.Fatal(err)
	}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Total<b>1</b>") || !strings.Contains(body, "Hired<b>1</b>") {
		t.Errorf("dashboard counts missing: %s", body)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers not set")
	}
}

func TestCreateCandidate(t *testing.T) {
	s, svc := newTestServer(t)

	rec := serve(s, postForm("/candidates", candidateForm("Ann Lee", "Ann@Example.com", "555-0101", "applied")))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("POST /candidates = %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/candidates?saved=1" {
		t.Errorf("Location = %q", loc)
	}

	c, err := svc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if c.Email != "ann@example.com" || c.Phone != "5550101" {
		t.Errorf("stored %+v", c)
	}
}

func TestCreateCandidate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation",
			form:       candidateForm("Bob", "not-an-email", "5550102", "Applied"),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "invalid email format",
		},
		{
			name:       "duplicate email",
			form:       candidateForm("Other", "ann@example.com", "5550199", "Applied"),
			wantStatus: http.StatusConflict,
			wantBody:   "candidate #1",
		},
		{
			name:       "duplicate phone",
			form:       candidateForm("Other", "other@example.com", "(555) 0101", "Applied"),
			wantStatus: http.StatusConflict,
			wantBody:   "CAND001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, svc := newTestServer(t)
			if _, err := svc.Create(context.Background(), core.CandidateInput{
				Name: "Ann", Email: "ann@example.com", Phone: "5550101", Status: "Applied",
			}); err != nil {
				t.Fatal(err)
			}

			rec := serve(s, postForm("/candidates", tt.form))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body missing %q", tt.wantBody)
			}

			sum, _ := svc.Summary(context.Background())
			if sum.Total != 1 {
				t.Errorf("Total = %d, rejected input must not be stored", sum.Total)
			}
		})
	}
}

func TestEditAndUpdateCandidate(t *testing.T) {
	s, svc := newTestServer(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, core.CandidateInput{Name: "Ann", Email: "ann@example.com", Phone: "5550101", Status: "Applied"})
	if err != nil {
		t.Fatal(err)
	}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/candidates/1/edit", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `value="ann@example.com"`) {
		t.Fatalf("GET edit = %d", rec.Code)
	}

	rec = serve(s, postForm("/candidates/1", candidateForm("Ann Lee", "ann@example.com", "5550101", "Offered")))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("POST update = %d: %s", rec.Code, rec.Body.String())
	}
	got, _ := svc.Get(ctx, c.ID)
	if got.Status != core.StatusOffered || got.Name != "Ann Lee" {
		t.Errorf("updated = %+v", got)
	}

	for _, path := range []string{"/candidates/99/edit", "/candidates/abc/edit"} {
		if rec := serve(s, httptest.NewRequest(http.MethodGet, path, nil)); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, rec.Code)
		}
	}
}

func TestListCandidates_Filters(t *testing.T) {
	s, svc := newTestServer(t)
	ctx := context.Background()
	for _, in := range []core.CandidateInput{
		{Name: "Ann Lee", Email: "ann@example.com", Phone: "5550101", Status: "Applied"},
		{Name: "Bob Stone", Email: "bob@example.com", Phone: "5550102", Status: "Hired"},
	} {
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/candidates?status=hired", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "Bob Stone") || strings.Contains(body, "Ann Lee") {
		t.Errorf("status filter not applied")
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/candidates?name=ANN", nil))
	body = rec.Body.String()
	if !strings.Contains(body, "Ann Lee") || strings.Contains(body, "Bob Stone") {
		t.Errorf("name filter not applied")
	}
}

func TestImport(t *testing.T) {
	s, svc := newTestServer(t)
	csv := []byte("Name,Email,Phone,Status\n" +
		"Ann Lee,ann@example.com,5550101,Applied\n" +
		"Ann Again,ann@example.com,5550199,Applied\n" +
		"Broken,,5550103,Applied\n")

	rec := serve(s, multipartRequest(t, "/import", "batch.csv", csv, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /import = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"Inserted<b>1</b>", "Skipped<b>1</b>", "Rejected<b>1</b>", "email: required field is empty"} {
		if !strings.Contains(body, want) {
			t.Errorf("result page missing %q", want)
		}
	}

	runs, err := svc.RecentImports(context.Background())
	if err != nil || len(runs) != 1 || runs[0].FileName != "batch.csv" {
		t.Errorf("RecentImports() = %+v, %v", runs, err)
	}
}

func TestImport_PolicyField(t *testing.T) {
	s, svc := newTestServer(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, core.CandidateInput{Name: "Ann", Email: "ann@example.com", Phone: "5550101", Status: "Applied"}); err != nil {
		t.Fatal(err)
	}

	csv := []byte("name,email,phone,status\nAnn,ann@example.com,5550101,Hired\n")
	rec := serve(s, multipartRequest(t, "/import", "b.csv", csv, "update"))
	if !strings.Contains(rec.Body.String(), "Updated<b>1</b>") {
		t.Fatalf("update policy not applied: %d", rec.Code)
	}
	c, _ := svc.Get(ctx, 1)
	if c.Status != core.StatusHired {
		t.Errorf("Status = %s, want Hired", c.Status)
	}

	rec = serve(s, multipartRequest(t, "/import", "b.csv", csv, "merge"))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "IMP002") {
		t.Errorf("unknown policy = %d", rec.Code)
	}
}

func TestImport_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantCode   string
	}{
		{
			name: "no file",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/import", "", nil, "skip")
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE004",
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/import", "big.csv", bytes.Repeat([]byte("x"), 2<<20), "")
			},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "FILE001",
		},
		{
			name: "unsupported type",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/import", "notes.txt", []byte("hello"), "")
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE002",
		},
		{
			name: "missing columns",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/import", "b.csv", []byte("name,email\nAnn,ann@example.com\n"), "")
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VAL005",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, svc := newTestServer(t)
			rec := serve(s, tt.req(t))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.wantCode) {
				t.Errorf("body missing code %s", tt.wantCode)
			}
			if runs, _ := svc.RecentImports(context.Background()); len(runs) != 0 {
				t.Errorf("rejected upload recorded %d runs", len(runs))
			}
		})
	}
}

func TestPreview_WritesNothing(t *testing.T) {
	s, svc := newTestServer(t)
	csv := []byte("name,email,phone,status\nAnn,ann@example.com,5550101,Applied\nAnn,ann@example.com,5550101,Applied\n")

	rec := serve(s, multipartRequest(t, "/import/preview", "b.csv", csv, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /import/preview = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "same email or phone as line 2") {
		t.Error("in-file duplicate not shown")
	}
	if sum, _ := svc.Summary(context.Background()); sum.Total != 0 {
		t.Errorf("preview wrote %d candidates", sum.Total)
	}
}

func TestExport(t *testing.T) {
	s, svc := newTestServer(t)
	if _, err := svc.Create(context.Background(), core.CandidateInput{
		Name: "Ann", Email: "ann@example.com", Phone: "5550101", Status: "Applied",
	}); err != nil {
		t.Fatal(err)
	}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/export?format=csv", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /export = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != spreadsheet.FormatCSV.ContentType() {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, ".csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), strings.Join(core.ExportColumns, ",")) {
		t.Errorf("export header = %q", rec.Body.String())
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/export", nil))
	table, err := spreadsheet.Read("export.xlsx", rec.Body)
	if err != nil {
		t.Fatalf("default export is not xlsx: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Errorf("xlsx rows = %d, want 1", len(table.Rows))
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/export?format=pdf", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET /export?format=pdf = %d, want 400", rec.Code)
	}
}

func TestExportTemplate(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/export/template?format=csv", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /export/template = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), strings.Join(core.ImportColumns, ",")+"\n") {
		t.Errorf("template = %q", rec.Body.String())
	}
}

func TestNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "HTTP404") {
		t.Errorf("GET /nope = %d", rec.Code)
	}
}

func TestImportBusy(t *testing.T) {
	s, svc := newTestServer(t)

	// Occupy the only slot with a slow import that blocks on its reader.
	r, w := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Import(context.Background(), "slow.csv", r, "")
	}()
	waitFor(t, func() bool { return svc.ImportStatus().Active == 1 })

	csv := []byte("name,email,phone,status\n")
	rec := serve(s, multipartRequest(t, "/import", "b.csv", csv, ""))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "IMP001") {
		t.Errorf("busy import = %d", rec.Code)
	}

	w.Close()
	<-done
}
