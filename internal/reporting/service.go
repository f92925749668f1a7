// Package reporting derives aggregated views over the stored ledger.
package reporting

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/core"
)

// Store is the read surface the reports need.
type Store interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	ListExpensesInMonth(ctx context.Context, year int, month time.Month) ([]core.Expense, error)
	ListExpensesBetween(ctx context.Context, from, to core.Day) ([]core.Expense, error)
	CategoryTotals(ctx context.Context) ([]core.CategoryTotal, error)
	ExpenseTotal(ctx context.Context) (core.Money, error)
	IncomeTotal(ctx context.Context) (core.Money, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// Monthly reports the expenses of the current calendar month.
func (s *Service) Monthly(ctx context.Context) (core.Report, error) {
	today := s.now()

	expenses, err := s.store.ListExpensesInMonth(ctx, today.Year(), today.Month())
	if err != nil {
		return core.Report{}, fmt.Errorf("list monthly expenses: %w", err)
	}

	return core.Report{Expenses: expenses, Total: sum(expenses)}, nil
}

// Weekly reports the expenses of the last seven days, both bounds
// inclusive. Rows dated after today are out of the window.
func (s *Service) Weekly(ctx context.Context) (core.Report, error) {
	today := s.now()
	from := core.Day{Time: today.AddDate(0, 0, -7)}
	to := core.Day{Time: today}

	expenses, err := s.store.ListExpensesBetween(ctx, from, to)
	if err != nil {
		return core.Report{}, fmt.Errorf("list weekly expenses: %w", err)
	}

	return core.Report{Expenses: expenses, Total: sum(expenses)}, nil
}

// TotalsByCategory returns per-category sums over the full history,
// ordered by category name.
func (s *Service) TotalsByCategory(ctx context.Context) ([]core.CategoryTotal, error) {
	totals, err := s.store.CategoryTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	return totals, nil
}

// Analyze breaks the full history down by category.
func (s *Service) Analyze(ctx context.Context) (core.Analysis, error) {
	byCategory, err := s.store.CategoryTotals(ctx)
	if err != nil {
		return core.Analysis{}, fmt.Errorf("category totals: %w", err)
	}

	total, err := s.store.ExpenseTotal(ctx)
	if err != nil {
		return core.Analysis{}, fmt.Errorf("expense total: %w", err)
	}

	return core.Analysis{Total: total, ByCategory: byCategory}, nil
}

// Dashboard assembles the landing-page view: every expense plus the
// derived aggregates.
func (s *Service) Dashboard(ctx context.Context) (core.Dashboard, error) {
	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("list expenses: %w", err)
	}

	byCategory, err := s.store.CategoryTotals(ctx)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("category totals: %w", err)
	}

	totalExpense, err := s.store.ExpenseTotal(ctx)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("expense total: %w", err)
	}

	totalIncome, err := s.store.IncomeTotal(ctx)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("income total: %w", err)
	}

	return core.Dashboard{
		Expenses:     expenses,
		ByCategory:   byCategory,
		TotalExpense: totalExpense,
		TotalIncome:  totalIncome,
	}, nil
}

func sum(expenses []core.Expense) core.Money {
	var cents int64
	for _, e := range expenses {
		cents += e.Amount.Cents
	}
	return core.Money{Cents: cents}
}
