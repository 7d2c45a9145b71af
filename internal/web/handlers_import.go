package web

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/talenttrack/internal/core"
	"github.com/JonMunkholm/talenttrack/internal/logging"
	"github.com/JonMunkholm/talenttrack/internal/spreadsheet"
	"github.com/JonMunkholm/talenttrack/internal/web/templates"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and the other fields.
const multipartOverhead = 1 << 20

// multipartMemory is kept in memory while parsing; larger files spill to disk.
const multipartMemory = 8 << 20

func (s *Server) handleImportPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, templates.ImportPage(s.importPageParams(nil)))
}

func (s *Server) importPageParams(failure *core.UserMessage) templates.ImportPageParams {
	return templates.ImportPageParams{
		DefaultPolicy: s.service.DefaultPolicy(),
		MaxFileSize:   s.cfg.Import.MaxFileSize,
		Error:         failure,
	}
}

// upload is a received spreadsheet.
type upload struct {
	name   string
	file   multipart.File
	policy core.DuplicatePolicy
	form   *multipart.Form
}

func (u *upload) Close() {
	u.file.Close()
	u.form.RemoveAll()
}

// readUpload enforces the size limit and returns the "file" part and the
// chosen duplicate policy.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, core.ErrFileTooLarge
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, core.ErrNoFile
		}
		return nil, fmt.Errorf("parse upload: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		r.MultipartForm.RemoveAll()
		if errors.Is(err, http.ErrMissingFile) {
			return nil, core.ErrNoFile
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}
	u := &upload{name: header.Filename, file: file, form: r.MultipartForm}

	if header.Size > maxSize {
		u.Close()
		return nil, core.ErrFileTooLarge
	}

	// An empty policy leaves the configured default in place.
	if raw := r.FormValue("policy"); raw != "" {
		policy, err := core.ParseDuplicatePolicy(raw)
		if err != nil {
			u.Close()
			return nil, err
		}
		u.policy = policy
	}
	return u, nil
}

// handlePreview shows what an import would do without writing anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	u, err := s.readUpload(w, r)
	if err != nil {
		s.respondImportError(w, r, err)
		return
	}
	defer u.Close()

	report, err := s.service.Preview(r.Context(), u.name, u.file)
	if err != nil {
		s.respondImportError(w, r, err)
		return
	}

	policy := u.policy
	if policy == "" {
		policy = s.service.DefaultPolicy()
	}
	s.render(w, r, http.StatusOK, templates.PreviewPage(report, policy))
}

// handleImport runs an import and renders its report. A store failure
// mid-import still shows the rows processed before it.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	u, err := s.readUpload(w, r)
	if err != nil {
		s.respondImportError(w, r, err)
		return
	}
	defer u.Close()

	report, err := s.service.Import(r.Context(), u.name, u.file, u.policy)
	if err != nil {
		if report == nil {
			s.respondImportError(w, r, err)
			return
		}
		msg := core.MapError(err)
		logging.FromContext(r.Context()).Error("import aborted",
			"file", u.name,
			"import_id", report.ID,
			"processed", report.Total,
			"error", err,
		)
		s.render(w, r, statusFor(err), templates.ImportResultPage(report, &msg))
		return
	}
	s.render(w, r, http.StatusOK, templates.ImportResultPage(report, nil))
}

// respondImportError shows upload problems on the import page itself.
func (s *Server) respondImportError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.respondError(w, r, err, status)
		return
	}

	msg := core.MapError(err)
	logging.FromContext(r.Context()).Warn("import rejected", "status", status, "error", err, "code", msg.Code)
	s.render(w, r, status, templates.ImportPage(s.importPageParams(&msg)))
}

// handleExport downloads every candidate as xlsx (default) or csv.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := spreadsheet.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	// Buffer the file so a failure can still produce an error page.
	var buf bytes.Buffer
	if _, err := s.service.Export(r.Context(), &buf, format); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	sendFile(w, fmt.Sprintf("candidates-%s%s", time.Now().Format("20060102"), format.Extension()), format, buf.Bytes())
}

// handleExportTemplate downloads an empty import template.
func (s *Server) handleExportTemplate(w http.ResponseWriter, r *http.Request) {
	format, err := spreadsheet.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := s.service.ExportTemplate(&buf, format); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	sendFile(w, "candidate-import-template"+format.Extension(), format, buf.Bytes())
}

func sendFile(w http.ResponseWriter, name string, format spreadsheet.Format, data []byte) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
