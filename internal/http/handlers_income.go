package http

import (
	"net/http"
)

func (s *Server) handleSetIncome(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	_, err := s.ledger.SetIncome(r.Context(), sanitizeInput(r.Form.Get("amount")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateDashboard()
	redirect(w, r, "/")
}
