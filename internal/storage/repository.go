// Package storage provides the relational store for users, expenses,
// income, sessions and the audit log, backed by SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledger/internal/core"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

// NewRepository opens (creating if absent) the SQLite database at dbPath
// and applies schema migrations. Migration failure is a startup failure;
// there is no recovery path.
func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite allows a single writer; one pooled connection also keeps
	// :memory: databases from splitting across connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- users ---

func (r *Repository) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		username, passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.User{}, core.ErrUsernameTaken
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}
	return core.User{ID: id, Username: username, PasswordHash: passwordHash}, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`,
		username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// --- expenses ---

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (date, amount_cents, category, description) VALUES (?, ?, ?, ?)`,
		e.Date.String(), e.Amount.Cents, e.Category, e.Description)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense insert id: %w", err)
	}
	return id, nil
}

func (r *Repository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, date, amount_cents, category, description FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// UpdateExpense overwrites every field of the row (full replace semantics).
func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET date = ?, amount_cents = ?, category = ?, description = ? WHERE id = ?`,
		e.Date.String(), e.Amount.Cents, e.Category, e.Description, e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListExpenses returns all expenses, newest date first. Rows sharing a
// date come back in insertion order.
func (r *Repository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT id, date, amount_cents, category, description FROM expenses ORDER BY date DESC, id ASC`)
}

// ListExpensesInMonth returns expenses whose date falls in the given
// calendar month, newest first.
func (r *Repository) ListExpensesInMonth(ctx context.Context, year int, month time.Month) ([]core.Expense, error) {
	prefix := fmt.Sprintf("%04d-%02d", year, int(month))
	return r.queryExpenses(ctx,
		`SELECT id, date, amount_cents, category, description FROM expenses
		 WHERE substr(date, 1, 7) = ? ORDER BY date DESC, id ASC`, prefix)
}

// ListExpensesBetween returns expenses dated within the given range,
// both bounds inclusive, newest first. ISO dates compare correctly as
// strings.
func (r *Repository) ListExpensesBetween(ctx context.Context, from, to core.Day) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT id, date, amount_cents, category, description FROM expenses
		 WHERE date >= ? AND date <= ? ORDER BY date DESC, id ASC`, from.String(), to.String())
}

// CategoryTotals sums all expenses grouped by category, ordered by
// category name for a stable breakdown.
func (r *Repository) CategoryTotals(ctx context.Context) ([]core.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents) FROM expenses GROUP BY category ORDER BY category ASC`)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryTotal
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

func (r *Repository) ExpenseTotal(ctx context.Context) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses`).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("expense total: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// --- income ---

func (r *Repository) AddIncome(ctx context.Context, amount core.Money) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO income (amount_cents) VALUES (?)`, amount.Cents)
	if err != nil {
		return 0, fmt.Errorf("insert income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("income insert id: %w", err)
	}
	return id, nil
}

func (r *Repository) GetIncome(ctx context.Context, id int64) (core.Income, error) {
	var inc core.Income
	err := r.db.QueryRowContext(ctx,
		`SELECT id, amount_cents FROM income WHERE id = ?`, id).
		Scan(&inc.ID, &inc.Amount.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, core.ErrNotFound
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("select income: %w", err)
	}
	return inc, nil
}

// IncomeTotal sums all income rows; zero when none are recorded.
func (r *Repository) IncomeTotal(ctx context.Context) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM income`).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("income total: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// --- sessions ---

func (r *Repository) CreateSession(ctx context.Context, s core.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		s.Token, s.UserID, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession resolves a token to its session. Expiry is checked in Go
// against the caller's clock rather than SQLite's.
func (r *Repository) GetSession(ctx context.Context, token string, now time.Time) (core.Session, error) {
	var s core.Session
	err := r.db.QueryRowContext(ctx,
		`SELECT token, user_id, expires_at FROM sessions WHERE token = ?`,
		token).Scan(&s.Token, &s.UserID, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, core.ErrNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", err)
	}
	if !s.ExpiresAt.After(now) {
		return core.Session{}, core.ErrNotFound
	}
	return s, nil
}

// DeleteSession removes a session row. Deleting an absent token is not
// an error; logout is idempotent.
func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired sessions rows affected: %w", err)
	}
	return n, nil
}

// --- audit log ---

// AuditEntry is one recorded ledger event.
type AuditEntry struct {
	ID        int64
	Entity    string
	EntityID  int64
	Action    string
	Detail    string
	CreatedAt time.Time
}

func (r *Repository) AppendAudit(ctx context.Context, entity string, entityID int64, action, detail string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (entity, entity_id, action, detail) VALUES (?, ?, ?, ?)`,
		entity, entityID, action, detail)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func (r *Repository) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, entity, entity_id, action, detail, created_at FROM audit_log
		 ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var a AuditEntry
		if err := rows.Scan(&a.ID, &a.Entity, &a.EntityID, &a.Action, &a.Detail, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e       core.Expense
		dateStr string
	)
	if err := row.Scan(&e.ID, &dateStr, &e.Amount.Cents, &e.Category, &e.Description); err != nil {
		return core.Expense{}, err
	}
	day, err := core.ParseDay(dateStr)
	if err != nil {
		return core.Expense{}, fmt.Errorf("stored date %q: %w", dateStr, err)
	}
	e.Date = day
	return e, nil
}

func (r *Repository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}
