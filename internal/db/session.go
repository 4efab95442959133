package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Sessions hands out one pooled connection per unit of work. The connection
// is returned to the pool on every exit path of Do, including panics.
type Sessions struct {
	db      *sql.DB
	timeout time.Duration
}

func NewSessions(db *sql.DB, timeout time.Duration) *Sessions {
	return &Sessions{db: db, timeout: timeout}
}

// Do runs fn on a dedicated connection. A positive timeout bounds the whole
// session, otherwise only ctx does.
func (s *Sessions) Do(ctx context.Context, fn func(ctx context.Context, conn *sql.Conn) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire session: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Error("release session", "error", err)
		}
	}()

	return fn(ctx, conn)
}

// Ping checks the store answers a trivial query on a fresh session.
func (s *Sessions) Ping(ctx context.Context) error {
	return s.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		var ok int
		if err := conn.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
			return err
		}
		if ok != 1 {
			return fmt.Errorf("unexpected ping result %d", ok)
		}
		return nil
	})
}
