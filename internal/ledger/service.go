// Package ledger holds the expense and income write operations.
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/core"
)

// Store is the persistence surface the ledger needs.
type Store interface {
	CreateExpense(ctx context.Context, e core.Expense) (int64, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, id int64) error
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	AddIncome(ctx context.Context, amount core.Money) (int64, error)
}

// Service orchestrates ledger writes across SQLite and AMQP.
type Service struct {
	store  Store
	events *amqp.Client
}

func NewService(store Store, events *amqp.Client) *Service {
	return &Service{
		store:  store,
		events: events,
	}
}

// Add validates and saves a new expense. The returned expense carries
// the assigned ID.
func (s *Service) Add(ctx context.Context, date, amount, category, description string) (core.Expense, error) {
	e, err := buildExpense(0, date, amount, category, description)
	if err != nil {
		return core.Expense{}, err
	}

	id, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id

	s.publishEvent(ctx, amqp.EntityExpense, id, amqp.ActionCreated)

	slog.InfoContext(ctx, "Expense added",
		"id", id,
		"date", e.Date.String(),
		"category", e.Category)

	return e, nil
}

// Edit replaces every field of an existing expense.
func (s *Service) Edit(ctx context.Context, id int64, date, amount, category, description string) (core.Expense, error) {
	e, err := buildExpense(id, date, amount, category, description)
	if err != nil {
		return core.Expense{}, err
	}

	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.publishEvent(ctx, amqp.EntityExpense, id, amqp.ActionUpdated)

	slog.InfoContext(ctx, "Expense updated", "id", id)

	return e, nil
}

// Delete removes an expense. Returns core.ErrNotFound when the row
// does not exist.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.publishEvent(ctx, amqp.EntityExpense, id, amqp.ActionDeleted)

	slog.InfoContext(ctx, "Expense deleted", "id", id)

	return nil
}

// Get loads a single expense by ID.
func (s *Service) Get(ctx context.Context, id int64) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("load expense: %w", err)
	}
	return e, nil
}

// ListAll returns every expense, newest date first.
func (s *Service) ListAll(ctx context.Context) ([]core.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// SetIncome records an income entry. Zero is allowed.
func (s *Service) SetIncome(ctx context.Context, amount string) (core.Income, error) {
	cents, err := core.ParseNonNegativeAmount(amount)
	if err != nil {
		return core.Income{}, err
	}
	money := core.Money{Cents: cents}

	id, err := s.store.AddIncome(ctx, money)
	if err != nil {
		return core.Income{}, fmt.Errorf("save income: %w", err)
	}

	s.publishEvent(ctx, amqp.EntityIncome, id, amqp.ActionRecorded)

	slog.InfoContext(ctx, "Income recorded", "id", id, "amount", money.String())

	return core.Income{ID: id, Amount: money}, nil
}

func buildExpense(id int64, date, amount, category, description string) (core.Expense, error) {
	day, err := core.ParseDay(date)
	if err != nil {
		return core.Expense{}, err
	}

	cents, err := core.ParseAmount(amount)
	if err != nil {
		return core.Expense{}, err
	}

	e := core.Expense{
		ID:          id,
		Date:        day,
		Amount:      core.Money{Cents: cents},
		Category:    category,
		Description: description,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (s *Service) publishEvent(ctx context.Context, entity string, id int64, action string) {
	if s.events == nil {
		return
	}

	event := amqp.NewLedgerEvent(entity, id, action)
	if err := s.events.PublishLedgerEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"entity", entity, "id", id, "action", action, "error", err)
		// Don't fail the request - the write already succeeded
	}
}
