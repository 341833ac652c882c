package server

import (
	"net/http"
	"strings"

	"github.com/me/galahad/pkg/galaxy"
	"github.com/me/galahad/pkg/model"
)

// handleListTools lists the Galaxy server's tools. Only the newest version
// of each tool is returned unless all=true.
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	if s.galaxy == nil {
		respondError(w, reqID, http.StatusServiceUnavailable, model.NewUpstreamError("Galaxy client not configured"))
		return
	}
	opts := listOptions(r)

	tools, err := s.galaxy.ListTools(r.Context())
	if err != nil {
		respondFormError(w, reqID, err)
		return
	}
	if r.URL.Query().Get("all") != "true" {
		tools = galaxy.LatestTools(tools)
	}
	galaxy.SortTools(tools)

	if opts.Query != "" {
		q := strings.ToLower(opts.Query)
		filtered := make([]galaxy.ToolSummary, 0, len(tools))
		for _, t := range tools {
			if strings.Contains(strings.ToLower(t.Name), q) ||
				strings.Contains(strings.ToLower(t.ID), q) ||
				strings.Contains(strings.ToLower(t.Description), q) {
				filtered = append(filtered, t)
			}
		}
		tools = filtered
	}

	page := model.Page(tools, opts)
	respondList(w, reqID, page, model.NewPagination(len(tools), opts, len(page)))
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	if s.schemas == nil {
		respondList(w, reqID, []model.SchemaEntry{}, model.NewPagination(0, listOptions(r), 0))
		return
	}
	opts := listOptions(r)

	entries, total, err := s.schemas.ListSchemas(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	respondList(w, reqID, entries, model.NewPagination(total, opts, len(entries)))
}
