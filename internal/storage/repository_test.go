package storage

import (
	"context"
	"testing"
	"time"

	"ledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RepositoryTestSuite exercises the SQLite repository against an
// in-memory database migrated through the embedded migrations.
type RepositoryTestSuite struct {
	suite.Suite
	repo *Repository
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	repo, err := NewRepository(":memory:")
	require.NoError(s.T(), err, "failed to create test repository")
	s.repo = repo
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close()
	}
}

func (s *RepositoryTestSuite) mustAdd(date string, cents int64, category string) int64 {
	day, err := core.ParseDay(date)
	require.NoError(s.T(), err)
	id, err := s.repo.CreateExpense(s.ctx, core.Expense{
		Date:     day,
		Amount:   core.Money{Cents: cents},
		Category: category,
	})
	require.NoError(s.T(), err)
	return id
}

func (s *RepositoryTestSuite) TestExpenseRoundTrip() {
	id := s.mustAdd("2024-01-05", 5000, "food")

	got, err := s.repo.GetExpense(s.ctx, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "2024-01-05", got.Date.String())
	assert.Equal(s.T(), int64(5000), got.Amount.Cents)
	assert.Equal(s.T(), "food", got.Category)
}

func (s *RepositoryTestSuite) TestListOrderedByDateDescending() {
	s.mustAdd("2024-01-05", 100, "food")
	s.mustAdd("2024-02-01", 200, "transport")
	s.mustAdd("2024-01-20", 300, "food")

	list, err := s.repo.ListExpenses(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 3)
	assert.Equal(s.T(), "2024-02-01", list[0].Date.String())
	assert.Equal(s.T(), "2024-01-20", list[1].Date.String())
	assert.Equal(s.T(), "2024-01-05", list[2].Date.String())
}

func (s *RepositoryTestSuite) TestSameDateTieBreakIsInsertionOrder() {
	first := s.mustAdd("2024-03-10", 100, "a")
	second := s.mustAdd("2024-03-10", 200, "b")

	list, err := s.repo.ListExpenses(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 2)
	assert.Equal(s.T(), first, list[0].ID)
	assert.Equal(s.T(), second, list[1].ID)
}

func (s *RepositoryTestSuite) TestListExpensesInMonth() {
	s.mustAdd("2024-01-05", 5000, "food")
	s.mustAdd("2024-01-20", 3000, "food")
	s.mustAdd("2024-02-01", 1000, "transport")

	jan, err := s.repo.ListExpensesInMonth(s.ctx, 2024, time.January)
	require.NoError(s.T(), err)
	assert.Len(s.T(), jan, 2)

	feb, err := s.repo.ListExpensesInMonth(s.ctx, 2024, time.February)
	require.NoError(s.T(), err)
	assert.Len(s.T(), feb, 1)

	mar, err := s.repo.ListExpensesInMonth(s.ctx, 2024, time.March)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), mar)
}

func (s *RepositoryTestSuite) TestListExpensesBetweenBoundsInclusive() {
	s.mustAdd("2024-01-17", 100, "food")
	s.mustAdd("2024-01-18", 200, "food")
	s.mustAdd("2024-01-20", 300, "food")
	s.mustAdd("2024-01-21", 400, "food")

	from, err := core.ParseDay("2024-01-18")
	require.NoError(s.T(), err)
	to, err := core.ParseDay("2024-01-20")
	require.NoError(s.T(), err)
	list, err := s.repo.ListExpensesBetween(s.ctx, from, to)
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 2)
	assert.Equal(s.T(), "2024-01-20", list[0].Date.String())
	assert.Equal(s.T(), "2024-01-18", list[1].Date.String())
}

func (s *RepositoryTestSuite) TestUpdateReplacesAllFields() {
	id := s.mustAdd("2024-01-05", 5000, "food")

	day, err := core.ParseDay("2024-01-06")
	require.NoError(s.T(), err)
	err = s.repo.UpdateExpense(s.ctx, core.Expense{
		ID:          id,
		Date:        day,
		Amount:      core.Money{Cents: 750},
		Category:    "transport",
		Description: "bus pass",
	})
	require.NoError(s.T(), err)

	got, err := s.repo.GetExpense(s.ctx, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "2024-01-06", got.Date.String())
	assert.Equal(s.T(), int64(750), got.Amount.Cents)
	assert.Equal(s.T(), "transport", got.Category)
	assert.Equal(s.T(), "bus pass", got.Description)
}

func (s *RepositoryTestSuite) TestUpdateMissingIsNotFound() {
	day, _ := core.ParseDay("2024-01-06")
	err := s.repo.UpdateExpense(s.ctx, core.Expense{
		ID: 4242, Date: day, Amount: core.Money{Cents: 1}, Category: "x",
	})
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestDeleteTwiceReportsNotFound() {
	id := s.mustAdd("2024-01-05", 5000, "food")

	require.NoError(s.T(), s.repo.DeleteExpense(s.ctx, id))
	err := s.repo.DeleteExpense(s.ctx, id)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestCategoryTotals() {
	s.mustAdd("2024-01-05", 5000, "food")
	s.mustAdd("2024-01-20", 3000, "food")
	s.mustAdd("2024-02-01", 1000, "transport")

	totals, err := s.repo.CategoryTotals(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), totals, 2)
	assert.Equal(s.T(), "food", totals[0].Category)
	assert.Equal(s.T(), int64(8000), totals[0].Total.Cents)
	assert.Equal(s.T(), "transport", totals[1].Category)
	assert.Equal(s.T(), int64(1000), totals[1].Total.Cents)

	grand, err := s.repo.ExpenseTotal(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(9000), grand.Cents)
}

func (s *RepositoryTestSuite) TestIncomeTotalZeroWhenEmpty() {
	total, err := s.repo.IncomeTotal(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(0), total.Cents)

	_, err = s.repo.AddIncome(s.ctx, core.Money{Cents: 123_00})
	require.NoError(s.T(), err)
	_, err = s.repo.AddIncome(s.ctx, core.Money{Cents: 0})
	require.NoError(s.T(), err)

	total, err = s.repo.IncomeTotal(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(123_00), total.Cents)
}

func (s *RepositoryTestSuite) TestUserUniqueness() {
	_, err := s.repo.CreateUser(s.ctx, "alice", "hash-one")
	require.NoError(s.T(), err)

	_, err = s.repo.CreateUser(s.ctx, "alice", "hash-two")
	assert.ErrorIs(s.T(), err, core.ErrUsernameTaken)

	// The original hash is untouched by the failed signup
	u, err := s.repo.GetUserByUsername(s.ctx, "alice")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "hash-one", u.PasswordHash)

	// Usernames are case-sensitive: Alice is a different account
	_, err = s.repo.CreateUser(s.ctx, "Alice", "hash-three")
	assert.NoError(s.T(), err)
}

func (s *RepositoryTestSuite) TestSessionLifecycle() {
	u, err := s.repo.CreateUser(s.ctx, "bob", "hash")
	require.NoError(s.T(), err)

	now := time.Now()
	sess := core.Session{Token: "tok-1", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}
	require.NoError(s.T(), s.repo.CreateSession(s.ctx, sess))

	got, err := s.repo.GetSession(s.ctx, "tok-1", now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), u.ID, got.UserID)

	// Expired tokens resolve to not found
	_, err = s.repo.GetSession(s.ctx, "tok-1", now.Add(2*time.Hour))
	assert.ErrorIs(s.T(), err, core.ErrNotFound)

	// Delete is idempotent
	require.NoError(s.T(), s.repo.DeleteSession(s.ctx, "tok-1"))
	require.NoError(s.T(), s.repo.DeleteSession(s.ctx, "tok-1"))
	_, err = s.repo.GetSession(s.ctx, "tok-1", now)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestDeleteExpiredSessions() {
	u, err := s.repo.CreateUser(s.ctx, "carol", "hash")
	require.NoError(s.T(), err)

	now := time.Now()
	require.NoError(s.T(), s.repo.CreateSession(s.ctx, core.Session{Token: "live", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(s.T(), s.repo.CreateSession(s.ctx, core.Session{Token: "dead", UserID: u.ID, ExpiresAt: now.Add(-time.Hour)}))

	n, err := s.repo.DeleteExpiredSessions(s.ctx, now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), n)

	_, err = s.repo.GetSession(s.ctx, "live", now)
	assert.NoError(s.T(), err)
}

func (s *RepositoryTestSuite) TestAuditLog() {
	require.NoError(s.T(), s.repo.AppendAudit(s.ctx, "expense", 1, "created", "amount=50.00"))
	require.NoError(s.T(), s.repo.AppendAudit(s.ctx, "expense", 1, "deleted", ""))

	entries, err := s.repo.ListAudit(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 2)
	// Newest first
	assert.Equal(s.T(), "deleted", entries[0].Action)
	assert.Equal(s.T(), "created", entries[1].Action)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
