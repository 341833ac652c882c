package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "galahad API",
		Version:     "v1",
		Description: "Compiles Galaxy tool input schemas into renderer-ready form specs",
		Endpoints: []endpointInfo{
			{"/api/v1/compile", []string{"POST"}, "Compile a tool schema document without opening a form"},
			{"/api/v1/forms", []string{"GET", "POST"}, "Open a form for a Galaxy tool, or list open forms"},
			{"/api/v1/forms/{id}", []string{"GET", "DELETE"}, "Form spec, groups, values and visibility"},
			{"/api/v1/forms/{id}/values", []string{"PUT"}, "Set a parameter value; recompiles when the parameter refreshes on change"},
			{"/api/v1/forms/{id}/recompile", []string{"POST"}, "Refetch the schema for the current values"},
			{"/api/v1/forms/{id}/job", []string{"GET"}, "Galaxy job inputs for the current values"},
			{"/api/v1/forms/{id}/submit", []string{"POST"}, "Run the tool in Galaxy with the current values"},
			{"/api/v1/tools", []string{"GET"}, "List Galaxy tools, newest version per name"},
			{"/api/v1/uploads", []string{"POST"}, "Upload a file into a Galaxy history for a data parameter"},
			{"/api/v1/schemas", []string{"GET"}, "List cached tool schemas"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}
