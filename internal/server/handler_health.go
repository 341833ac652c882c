package server

import (
	"net/http"
	"time"

	"github.com/me/galahad/pkg/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, model.Health{
		Status:  "healthy",
		Version: Version,
		Galaxy:  s.config.Galaxy.URL,
		Forms:   s.formCount(),
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	})
}
