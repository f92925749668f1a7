// Package worker turns ledger change events into audit log entries.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/core"
)

// Store is the persistence surface the audit worker needs.
type Store interface {
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	GetIncome(ctx context.Context, id int64) (core.Income, error)
	AppendAudit(ctx context.Context, entity string, entityID int64, action, detail string) error
}

// Exporter mirrors row state to an external spreadsheet.
type Exporter interface {
	AppendExpenseRow(ctx context.Context, action string, e core.Expense) error
	AppendIncomeRow(ctx context.Context, action string, inc core.Income) error
}

// AuditWorker records one audit row per ledger event, with the current
// row state when the row still exists. The exporter is optional.
type AuditWorker struct {
	store    Store
	exporter Exporter
}

func NewAuditWorker(store Store, exporter Exporter) *AuditWorker {
	return &AuditWorker{
		store:    store,
		exporter: exporter,
	}
}

// HandleEvent processes a single ledger event.
func (w *AuditWorker) HandleEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"entity", event.Entity,
		"id", event.ID,
		"action", event.Action)

	switch event.Entity {
	case amqp.EntityExpense:
		return w.handleExpenseEvent(ctx, event)
	case amqp.EntityIncome:
		return w.handleIncomeEvent(ctx, event)
	default:
		// Unknown entities are recorded as-is rather than requeued forever
		slog.WarnContext(ctx, "Unknown event entity", "entity", event.Entity)
		return w.store.AppendAudit(ctx, event.Entity, event.ID, event.Action, "")
	}
}

func (w *AuditWorker) handleExpenseEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	detail := ""

	expense, err := w.store.GetExpense(ctx, event.ID)
	switch {
	case err == nil:
		payload, merr := json.Marshal(map[string]any{
			"date":        expense.Date.String(),
			"amount":      expense.Amount.Float(),
			"category":    expense.Category,
			"description": expense.Description,
		})
		if merr != nil {
			return fmt.Errorf("marshal expense detail: %w", merr)
		}
		detail = string(payload)
	case errors.Is(err, core.ErrNotFound):
		// Deleted rows have no state left to snapshot
	default:
		return fmt.Errorf("load expense %d: %w", event.ID, err)
	}

	if err := w.store.AppendAudit(ctx, event.Entity, event.ID, event.Action, detail); err != nil {
		return fmt.Errorf("append audit row: %w", err)
	}

	if w.exporter != nil && detail != "" {
		if err := w.exporter.AppendExpenseRow(ctx, event.Action, expense); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror expense to spreadsheet",
				"id", event.ID, "error", err)
			// The audit row is already written; don't requeue
		}
	}

	return nil
}

func (w *AuditWorker) handleIncomeEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	detail := ""

	income, err := w.store.GetIncome(ctx, event.ID)
	switch {
	case err == nil:
		payload, merr := json.Marshal(map[string]any{
			"amount": income.Amount.Float(),
		})
		if merr != nil {
			return fmt.Errorf("marshal income detail: %w", merr)
		}
		detail = string(payload)
	case errors.Is(err, core.ErrNotFound):
	default:
		return fmt.Errorf("load income %d: %w", event.ID, err)
	}

	if err := w.store.AppendAudit(ctx, event.Entity, event.ID, event.Action, detail); err != nil {
		return fmt.Errorf("append audit row: %w", err)
	}

	if w.exporter != nil && detail != "" {
		if err := w.exporter.AppendIncomeRow(ctx, event.Action, income); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror income to spreadsheet",
				"id", event.ID, "error", err)
		}
	}

	return nil
}
