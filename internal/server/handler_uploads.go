package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/me/galahad/pkg/galaxy"
	"github.com/me/galahad/pkg/model"
)

// maxUploadBytes caps a file sent through the API.
const maxUploadBytes = 512 << 20

// handleUpload uploads a multipart "file" into a Galaxy history and returns
// the new dataset. Its ID is the value a data parameter takes.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	if s.galaxy == nil {
		respondError(w, reqID, http.StatusServiceUnavailable, model.NewUpstreamError("Galaxy client not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, reqID, http.StatusRequestEntityTooLarge, model.NewValidationError("File too large"))
			return
		}
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid multipart body: "+err.Error()))
		return
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid request",
			model.FieldError{Field: "file", Message: "required"}))
		return
	}
	defer file.Close()

	history := r.FormValue("history_id")
	if history == "" {
		history = s.config.Galaxy.HistoryID
	}
	if history == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Invalid request",
			model.FieldError{Field: "history_id", Message: "required"}))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("Reading file: "+err.Error()))
		return
	}

	d, err := s.galaxy.UploadDataset(r.Context(), galaxy.UploadInput{
		HistoryID: history,
		Name:      filepath.Base(hdr.Filename),
		Data:      data,
		Ext:       r.FormValue("ext"),
		DBKey:     r.FormValue("dbkey"),
	})
	if err != nil {
		respondFormError(w, reqID, err)
		return
	}
	s.logger.Info("dataset uploaded", "id", d.ID, "name", d.Name, "history", history, "bytes", len(data))
	respondCreated(w, reqID, d)
}
