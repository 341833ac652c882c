package server

import (
	"encoding/json"
	"net/http"

	"github.com/me/galahad/internal/form"
	"github.com/me/galahad/pkg/galaxy"
	"github.com/me/galahad/pkg/model"
)

type compileRequest struct {
	Tool      json.RawMessage `json:"tool"`
	Overrides form.Overrides  `json:"overrides"`
	Values    map[string]any  `json:"values"`
}

type compileResponse struct {
	Groups     []form.DisplayGroup  `json:"groups"`
	Params     []form.FlatParameter `json:"params"`
	Spec       form.Spec            `json:"spec"`
	Values     map[string]any       `json:"values"`
	Visibility map[string]bool      `json:"visibility"`
}

// handleCompile compiles a tool document sent in the request. Values
// override the spec defaults when computing visibility.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req compileRequest
	if !decodeBody(w, r, reqID, &req) {
		return
	}
	if len(req.Tool) == 0 {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid request",
			model.FieldError{Field: "tool", Message: "required"}))
		return
	}
	tool, err := galaxy.DecodeTool(req.Tool)
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid tool document",
			model.FieldError{Field: "tool", Message: err.Error()}))
		return
	}

	overrides := req.Overrides
	if overrides == nil {
		overrides = s.overrides
	}
	compiled, err := form.CompileTool(tool.Inputs, overrides)
	if err != nil {
		respondFormError(w, reqID, err)
		return
	}

	values := make(map[string]any, len(compiled.Spec))
	for _, e := range compiled.Spec {
		values[e.Param] = e.Default
	}
	for name, v := range req.Values {
		values[name] = v
	}

	respondOK(w, reqID, compileResponse{
		Groups:     compiled.Groups,
		Params:     compiled.Params,
		Spec:       compiled.Spec,
		Values:     values,
		Visibility: form.ComputeVisibility(compiled.Params, values),
	})
}
