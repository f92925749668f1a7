package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionStore is the slice of storage the sweeper needs.
type SessionStore interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// SessionSweeper periodically removes expired session rows.
type SessionSweeper struct {
	store    SessionStore
	interval time.Duration
	now      func() time.Time
}

func NewSessionSweeper(store SessionStore, interval time.Duration) *SessionSweeper {
	return &SessionSweeper{
		store:    store,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps on a ticker until ctx is done. One sweep runs immediately
// on startup.
func (s *SessionSweeper) Run(ctx context.Context) error {
	if err := s.SweepOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Session sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "Session sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce deletes every session past its expiry.
func (s *SessionSweeper) SweepOnce(ctx context.Context) error {
	removed, err := s.store.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	if removed > 0 {
		slog.InfoContext(ctx, "Removed expired sessions", "count", removed)
	}
	return nil
}
