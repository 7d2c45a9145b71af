package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/talenttrack/internal/core"
	"github.com/JonMunkholm/talenttrack/internal/web/templates"
)

// handleDashboard shows status counts and recent imports.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sum, err := s.service.Summary(ctx)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	runs, err := s.service.RecentImports(ctx)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	s.render(w, r, http.StatusOK, templates.Dashboard(templates.DashboardParams{
		Summary:       sum,
		RecentImports: runs,
		ActiveImports: s.service.ImportStatus().Active,
	}))
}

// handleListCandidates lists candidates matching the query filters.
func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)

	candidates, err := s.service.Search(r.Context(), filters)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	params := templates.CandidateListParams{Filters: filters, Candidates: candidates}
	if id := r.URL.Query().Get("saved"); id != "" {
		params.Notice = fmt.Sprintf("Candidate #%s saved", id)
	}
	s.render(w, r, http.StatusOK, templates.CandidateList(params))
}

func (s *Server) handleNewCandidate(w http.ResponseWriter, r *http.Request) {
	in := core.CandidateInput{Status: string(core.StatusApplied)}
	s.render(w, r, http.StatusOK, templates.CandidateForm(templates.CandidateFormParams{Input: in}))
}

func (s *Server) handleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	in, err := parseCandidateForm(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	c, err := s.service.Create(r.Context(), in)
	if err != nil {
		s.respondFormError(w, r, 0, in, err)
		return
	}
	redirectSaved(w, r, c.ID)
}

func (s *Server) handleEditCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := candidateID(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	c, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.render(w, r, http.StatusOK, templates.CandidateForm(templates.CandidateFormParams{
		ID:    c.ID,
		Input: c.Input(),
	}))
}

func (s *Server) handleUpdateCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := candidateID(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	in, err := parseCandidateForm(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	c, err := s.service.Update(r.Context(), id, in)
	if err != nil {
		s.respondFormError(w, r, id, in, err)
		return
	}
	redirectSaved(w, r, c.ID)
}

// respondFormError re-renders the form for validation and duplicate errors
// and falls back to the error page for anything else.
func (s *Server) respondFormError(w http.ResponseWriter, r *http.Request, id int64, in core.CandidateInput, err error) {
	params := templates.CandidateFormParams{ID: id, Input: in}

	var verrs core.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		params.Errors = verrs
	case errors.Is(err, core.ErrDuplicate):
		msg := core.MapError(err)
		var dup *core.DuplicateError
		if errors.As(err, &dup) && dup.ExistingID > 0 {
			msg.Action = fmt.Sprintf("The %s belongs to candidate #%d. Edit that candidate instead", dup.Field, dup.ExistingID)
		}
		params.Error = &msg
	default:
		s.respondError(w, r, err, 0)
		return
	}
	s.render(w, r, statusFor(err), templates.CandidateForm(params))
}

func redirectSaved(w http.ResponseWriter, r *http.Request, id int64) {
	http.Redirect(w, r, fmt.Sprintf("/candidates?saved=%d", id), http.StatusSeeOther)
}

func candidateID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("candidate id %q: %w", raw, core.ErrNotFound)
	}
	return id, nil
}

// parseFilters reads the list filters. An unknown status is ignored.
func parseFilters(r *http.Request) core.Filters {
	q := r.URL.Query()
	f := core.Filters{
		Name:  q.Get(core.FieldName),
		Email: q.Get(core.FieldEmail),
		Phone: q.Get(core.FieldPhone),
	}
	if st, ok := core.ParseStatus(q.Get(core.FieldStatus)); ok {
		f.Status = st
	}
	return f
}

func parseCandidateForm(r *http.Request) (core.CandidateInput, error) {
	if err := r.ParseForm(); err != nil {
		return core.CandidateInput{}, fmt.Errorf("parse form: %w", err)
	}
	return core.CandidateInput{
		Name:          r.PostForm.Get(core.FieldName),
		Email:         r.PostForm.Get(core.FieldEmail),
		Phone:         r.PostForm.Get(core.FieldPhone),
		Status:        r.PostForm.Get(core.FieldStatus),
		Skills:        r.PostForm.Get(core.FieldSkills),
		Location:      r.PostForm.Get(core.FieldLocation),
		AvailableTime: r.PostForm.Get(core.FieldAvailableTime),
		Notes:         r.PostForm.Get(core.FieldNotes),
	}, nil
}
