package server

import "net/http"

// Health reports liveness and the number of open stream sessions.
func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":          "ok",
			"active_sessions": s.sessions.Len(),
		})
	}
}
