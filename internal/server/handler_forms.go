package server

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/me/galahad/internal/form"
	"github.com/me/galahad/pkg/galaxy"
	"github.com/me/galahad/pkg/model"
)

type createFormRequest struct {
	ToolID      string `json:"tool_id"`
	ToolVersion string `json:"tool_version"`
	HistoryID   string `json:"history_id"`
}

type formResponse struct {
	ID string `json:"id"`
	form.Snapshot
}

type formSummary struct {
	ID         string         `json:"id"`
	Tool       galaxy.ToolRef `json:"tool"`
	Title      string         `json:"title"`
	Generation uint64         `json:"generation"`
}

type setValueRequest struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type setValueResponse struct {
	Change form.Change  `json:"change"`
	Form   formResponse `json:"form"`
}

type jobResponse struct {
	ToolID      string         `json:"tool_id"`
	ToolVersion string         `json:"tool_version,omitempty"`
	Inputs      map[string]any `json:"inputs"`
}

type submitRequest struct {
	HistoryID string `json:"history_id"`
}

// listOptions reads limit, offset and q from the query string.
func listOptions(r *http.Request) model.ListOptions {
	opts := model.DefaultListOptions()
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil {
		opts.Offset = n
	}
	opts.Query = q.Get("q")
	opts.Clamp()
	return opts
}

func (s *Server) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req createFormRequest
	if !decodeBody(w, r, reqID, &req) {
		return
	}
	if req.ToolID == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid request",
			model.FieldError{Field: "tool_id", Message: "required"}))
		return
	}
	ref := galaxy.ToolRef{ID: req.ToolID, Version: req.ToolVersion, HistoryID: req.HistoryID}
	if ref.HistoryID == "" {
		ref.HistoryID = s.config.Galaxy.HistoryID
	}

	f, err := s.openForm(r.Context(), ref)
	if err != nil {
		respondFormError(w, reqID, err)
		return
	}

	id := "form_" + uuid.New().String()
	s.mu.Lock()
	s.forms[id] = f
	s.mu.Unlock()
	s.logger.Info("form opened", "id", id, "tool", f.Tool().String())

	respondCreated(w, reqID, formResponse{ID: id, Snapshot: f.Snapshot()})
}

// openForm fetches the schema for ref and compiles a new form from it.
// Concurrent opens of the same tool share a single fetch.
// openForm fetches the schema once for all concurrent opens of the same
// tool and history. The shared fetch is detached from the request that
// started it, so one client going away does not fail the others.
func (s *Server) openForm(ctx context.Context, ref galaxy.ToolRef) (*form.Form, error) {
	key := ref.String() + "#" + ref.HistoryID
	ch := s.opens.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.source.ToolSchema(fetchCtx, ref, nil)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("shared schema fetch", "tool", ref.String())
		}
		tool, _ := res.Val.(*galaxy.Tool)
		return form.NewForm(ref, tool, s.overrides)
	}
}

func (s *Server) handleListForms(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	opts := listOptions(r)

	s.mu.RLock()
	all := make([]formSummary, 0, len(s.forms))
	for id, f := range s.forms {
		snap := f.Snapshot()
		all = append(all, formSummary{ID: id, Tool: snap.Tool, Title: snap.Title, Generation: snap.Generation})
	}
	s.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	page := model.Page(all, opts)
	respondList(w, reqID, page, model.NewPagination(len(all), opts, len(page)))
}

func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	f := s.lookupForm(id)
	if f == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("form", id))
		return
	}
	respondOK(w, reqID, formResponse{ID: id, Snapshot: f.Snapshot()})
}

func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	_, ok := s.forms[id]
	delete(s.forms, id)
	s.mu.Unlock()

	if !ok {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("form", id))
		return
	}
	respondOK(w, reqID, map[string]any{"deleted": true})
}

// handleSetValue records one value. When the parameter refreshes on change
// the form is recompiled; a failed recompilation is reported through the
// form's message and does not fail the request.
func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	f := s.lookupForm(id)
	if f == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("form", id))
		return
	}

	var req setValueRequest
	if !decodeBody(w, r, reqID, &req) {
		return
	}
	if req.Name == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid request",
			model.FieldError{Field: "name", Message: "required"}))
		return
	}

	change, err := s.driver.Update(r.Context(), f, req.Name, req.Value)
	var recompErr *form.RecompilationError
	switch {
	case err == nil, errors.Is(err, form.ErrStaleRecompilation):
	case errors.As(err, &recompErr):
		s.logger.Warn("recompilation after set failed", "id", id, "param", req.Name, "error", err)
	default:
		respondFormError(w, reqID, err)
		return
	}

	respondOK(w, reqID, setValueResponse{
		Change: change,
		Form:   formResponse{ID: id, Snapshot: f.Snapshot()},
	})
}

func (s *Server) handleRecompile(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	f := s.lookupForm(id)
	if f == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("form", id))
		return
	}

	if err := s.driver.Recompile(r.Context(), f); err != nil && !errors.Is(err, form.ErrStaleRecompilation) {
		respondFormError(w, reqID, err)
		return
	}
	respondOK(w, reqID, formResponse{ID: id, Snapshot: f.Snapshot()})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	f := s.lookupForm(id)
	if f == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("form", id))
		return
	}
	ref := f.Tool()
	respondOK(w, reqID, jobResponse{ToolID: ref.ID, ToolVersion: ref.Version, Inputs: f.JobInputs()})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if s.galaxy == nil {
		respondError(w, reqID, http.StatusServiceUnavailable, model.NewUpstreamError("Galaxy client not configured"))
		return
	}
	f := s.lookupForm(id)
	if f == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("form", id))
		return
	}

	var req submitRequest
	if r.ContentLength != 0 && !decodeBody(w, r, reqID, &req) {
		return
	}
	ref := f.Tool()
	if req.HistoryID != "" {
		ref.HistoryID = req.HistoryID
	}
	if ref.HistoryID == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid request",
			model.FieldError{Field: "history_id", Message: "required"}))
		return
	}

	res, err := s.galaxy.RunTool(r.Context(), galaxy.RunInput{Tool: ref, Inputs: f.JobInputs()})
	if err != nil {
		respondFormError(w, reqID, err)
		return
	}
	s.logger.Info("job submitted", "id", id, "tool", ref.String(), "jobs", len(res.Jobs))
	respondCreated(w, reqID, res)
}
