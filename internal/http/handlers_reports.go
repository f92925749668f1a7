package http

import (
	"log/slog"
	"net/http"
)

type dashboardJSON struct {
	Expenses     []expenseJSON       `json:"expenses"`
	ByCategory   []categoryTotalJSON `json:"by_category"`
	TotalExpense float64             `json:"total_expense"`
	TotalIncome  float64             `json:"total_income"`
}

type analysisJSON struct {
	Total      float64             `json:"total"`
	ByCategory []categoryTotalJSON `json:"by_category"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if dash, found := s.dashCache.Get(dashboardCacheKey); found {
		slog.DebugContext(r.Context(), "Dashboard cache hit")
		writeJSON(w, http.StatusOK, toDashboardJSON(dash))
		return
	}

	dash, err := s.reports.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.dashCache.Set(dashboardCacheKey, dash)
	writeJSON(w, http.StatusOK, toDashboardJSON(dash))
}

func (s *Server) handleMonthlyExpenses(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.Monthly(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportJSON(rep))
}

func (s *Server) handleWeeklyExpenses(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.Weekly(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportJSON(rep))
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.reports.Analyze(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisJSON{
		Total:      analysis.Total.Float(),
		ByCategory: toCategoryTotalsJSON(analysis.ByCategory),
	})
}
