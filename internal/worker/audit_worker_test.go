package worker

import (
	"context"
	"testing"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type AuditWorkerTestSuite struct {
	suite.Suite
	repo   *storage.Repository
	worker *AuditWorker
	ctx    context.Context
}

func (s *AuditWorkerTestSuite) SetupTest() {
	repo, err := storage.NewRepository(":memory:")
	require.NoError(s.T(), err)
	s.repo = repo
	s.worker = NewAuditWorker(repo, nil)
	s.ctx = context.Background()
}

func (s *AuditWorkerTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close()
	}
}

func (s *AuditWorkerTestSuite) createExpense() int64 {
	day, err := core.ParseDay("2024-01-05")
	require.NoError(s.T(), err)
	id, err := s.repo.CreateExpense(s.ctx, core.Expense{
		Date:        day,
		Amount:      core.Money{Cents: 5000},
		Category:    "food",
		Description: "groceries",
	})
	require.NoError(s.T(), err)
	return id
}

func (s *AuditWorkerTestSuite) TestExpenseCreatedSnapshotsRowState() {
	id := s.createExpense()

	event := amqp.NewLedgerEvent(amqp.EntityExpense, id, amqp.ActionCreated)
	require.NoError(s.T(), s.worker.HandleEvent(s.ctx, event))

	entries, err := s.repo.ListAudit(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)

	entry := entries[0]
	assert.Equal(s.T(), amqp.EntityExpense, entry.Entity)
	assert.Equal(s.T(), id, entry.EntityID)
	assert.Equal(s.T(), amqp.ActionCreated, entry.Action)
	assert.Contains(s.T(), entry.Detail, `"date":"2024-01-05"`)
	assert.Contains(s.T(), entry.Detail, `"category":"food"`)
}

func (s *AuditWorkerTestSuite) TestExpenseDeletedHasEmptyDetail() {
	id := s.createExpense()
	require.NoError(s.T(), s.repo.DeleteExpense(s.ctx, id))

	event := amqp.NewLedgerEvent(amqp.EntityExpense, id, amqp.ActionDeleted)
	require.NoError(s.T(), s.worker.HandleEvent(s.ctx, event))

	entries, err := s.repo.ListAudit(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)
	assert.Equal(s.T(), amqp.ActionDeleted, entries[0].Action)
	assert.Empty(s.T(), entries[0].Detail)
}

func (s *AuditWorkerTestSuite) TestIncomeRecorded() {
	id, err := s.repo.AddIncome(s.ctx, core.Money{Cents: 120050})
	require.NoError(s.T(), err)

	event := amqp.NewLedgerEvent(amqp.EntityIncome, id, amqp.ActionRecorded)
	require.NoError(s.T(), s.worker.HandleEvent(s.ctx, event))

	entries, err := s.repo.ListAudit(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)
	assert.Equal(s.T(), amqp.EntityIncome, entries[0].Entity)
	assert.Contains(s.T(), entries[0].Detail, `"amount":1200.5`)
}

func (s *AuditWorkerTestSuite) TestUnknownEntityStillAudited() {
	event := amqp.NewLedgerEvent("mystery", 1, amqp.ActionCreated)
	require.NoError(s.T(), s.worker.HandleEvent(s.ctx, event))

	entries, err := s.repo.ListAudit(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)
	assert.Equal(s.T(), "mystery", entries[0].Entity)
}

func (s *AuditWorkerTestSuite) TestSessionSweeper() {
	user, err := s.repo.CreateUser(s.ctx, "alice", "hash")
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.repo.CreateSession(s.ctx, core.Session{
		Token:     "expired",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(s.T(), s.repo.CreateSession(s.ctx, core.Session{
		Token:     "live",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	sweeper := NewSessionSweeper(s.repo, time.Minute)
	require.NoError(s.T(), sweeper.SweepOnce(s.ctx))

	_, err = s.repo.GetSession(s.ctx, "expired", time.Now())
	assert.ErrorIs(s.T(), err, core.ErrNotFound)

	live, err := s.repo.GetSession(s.ctx, "live", time.Now())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID, live.UserID)
}

func TestAuditWorkerTestSuite(t *testing.T) {
	suite.Run(t, new(AuditWorkerTestSuite))
}
