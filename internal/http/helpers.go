package http

import (
	"net/http"
	"strconv"
	"strings"

	"ledger/internal/core"
)

// expenseJSON is the wire shape of one expense row.
type expenseJSON struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
}

type categoryTotalJSON struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

type reportJSON struct {
	Expenses []expenseJSON `json:"expenses"`
	Total    float64       `json:"total"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		Date:        e.Date.String(),
		Amount:      e.Amount.Float(),
		Category:    e.Category,
		Description: e.Description,
	}
}

func toExpensesJSON(expenses []core.Expense) []expenseJSON {
	out := make([]expenseJSON, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseJSON(e))
	}
	return out
}

func toCategoryTotalsJSON(totals []core.CategoryTotal) []categoryTotalJSON {
	out := make([]categoryTotalJSON, 0, len(totals))
	for _, t := range totals {
		out = append(out, categoryTotalJSON{Category: t.Category, Total: t.Total.Float()})
	}
	return out
}

func toReportJSON(rep core.Report) reportJSON {
	return reportJSON{
		Expenses: toExpensesJSON(rep.Expenses),
		Total:    rep.Total.Float(),
	}
}

func toDashboardJSON(d core.Dashboard) dashboardJSON {
	return dashboardJSON{
		Expenses:     toExpensesJSON(d.Expenses),
		ByCategory:   toCategoryTotalsJSON(d.ByCategory),
		TotalExpense: d.TotalExpense.Float(),
		TotalIncome:  d.TotalIncome.Float(),
	}
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
