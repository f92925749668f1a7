package http

import (
	"net/http"
)

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	_, err := s.ledger.Add(r.Context(),
		sanitizeInput(r.Form.Get("date")),
		sanitizeInput(r.Form.Get("amount")),
		sanitizeInput(r.Form.Get("category")),
		sanitizeInput(r.Form.Get("description")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateDashboard()
	redirect(w, r, "/")
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	_, err = s.ledger.Edit(r.Context(), id,
		sanitizeInput(r.Form.Get("date")),
		sanitizeInput(r.Form.Get("amount")),
		sanitizeInput(r.Form.Get("category")),
		sanitizeInput(r.Form.Get("description")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateDashboard()
	redirect(w, r, "/")
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.ledger.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateDashboard()
	redirect(w, r, "/")
}
