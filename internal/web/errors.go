package web

// errors.go turns errors into HTML responses.
//
// The technical error is logged with the request ID; the client only sees the
// core.MapError message, its suggested action and the support code. HTMX
// requests get the alert fragment, everything else a full error page.

import (
	"context"
	"errors"
	"net/http"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/talenttrack/internal/core"
	"github.com/JonMunkholm/talenttrack/internal/logging"
	"github.com/JonMunkholm/talenttrack/internal/web/templates"
)

var msgPageNotFound = core.UserMessage{
	Message: "Page not found",
	Action:  "Check the address or go back to the dashboard",
	Code:    "HTTP404",
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var verrs core.ValidationErrors
	var fatal *core.FatalIOError

	switch {
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrImportBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNoFile), errors.Is(err, core.ErrUnknownPolicy), errors.As(err, &fatal):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and renders its user message. A zero status is
// derived from err.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status == 0 {
		status = statusFor(err)
	}
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	if isHTMX(r) {
		s.render(w, r, status, templates.ErrorAlert(userMsg.Message, userMsg.Action, userMsg.Code))
		return
	}
	s.render(w, r, status, templates.ErrorPage(userMsg))
}

// render writes an HTML component with status.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "path", r.URL.Path, "error", err)
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
