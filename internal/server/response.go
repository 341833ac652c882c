package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/me/galahad/internal/form"
	"github.com/me/galahad/pkg/galaxy"
	"github.com/me/galahad/pkg/model"
)

// requestID generates a unique request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

// respondOK writes a success response with the standard envelope.
func respondOK(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusOK, reqID, data, nil, nil)
}

// respondCreated writes a 201 response with the standard envelope.
func respondCreated(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusCreated, reqID, data, nil, nil)
}

// respondList writes a success response with pagination.
func respondList(w http.ResponseWriter, reqID string, data any, pg *model.Pagination) {
	respondJSON(w, http.StatusOK, reqID, data, pg, nil)
}

// respondError writes an error response with the standard envelope.
func respondError(w http.ResponseWriter, reqID string, status int, apiErr *model.APIError) {
	respondJSON(w, status, reqID, nil, nil, apiErr)
}

func respondJSON(w http.ResponseWriter, status int, reqID string, data any, pg *model.Pagination, apiErr *model.APIError) {
	resp := model.Response{
		RequestID:  reqID,
		Timestamp:  time.Now().UTC(),
		Data:       data,
		Pagination: pg,
		Error:      apiErr,
	}
	if apiErr != nil {
		resp.Status = "error"
	} else {
		resp.Status = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// respondFormError maps engine and Galaxy errors onto API errors.
func respondFormError(w http.ResponseWriter, reqID string, err error) {
	var recompErr *form.RecompilationError
	switch {
	case errors.Is(err, form.ErrSchemaMalformed):
		respondError(w, reqID, http.StatusUnprocessableEntity,
			&model.APIError{Code: model.ErrSchemaMalformed, Message: err.Error()})
	case errors.Is(err, form.ErrUnknownParameter):
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError(err.Error()))
	case galaxy.IsAuthError(err):
		respondError(w, reqID, http.StatusUnauthorized,
			&model.APIError{Code: model.ErrUnauthorized, Message: galaxy.UserMessage(err)})
	case galaxy.IsNotFoundError(err):
		respondError(w, reqID, http.StatusNotFound,
			&model.APIError{Code: model.ErrNotFound, Message: galaxy.UserMessage(err)})
	case errors.As(err, &recompErr):
		respondError(w, reqID, http.StatusBadGateway, model.NewUpstreamError(galaxy.UserMessage(recompErr.Err)))
	case isGalaxyError(err):
		respondError(w, reqID, http.StatusBadGateway, model.NewUpstreamError(galaxy.UserMessage(err)))
	default:
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
	}
}

func isGalaxyError(err error) bool {
	var gErr *galaxy.Error
	var httpErr *galaxy.HTTPError
	return errors.As(err, &gErr) || errors.As(err, &httpErr)
}

// decodeBody decodes a JSON request body, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, reqID string, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("Invalid JSON body: "+err.Error()))
		return false
	}
	return true
}
