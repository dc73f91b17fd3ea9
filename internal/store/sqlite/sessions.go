package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/store"
)

// SaveSession inserts or updates session metadata and marks it most recently
// active. Secrets are not persisted.
func (s *DB) SaveSession(ctx context.Context, session *domain.Session) error {
	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, tenant_id, has_client_key, created_at, last_active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			tenant_id      = excluded.tenant_id,
			has_client_key = excluded.has_client_key,
			last_active    = excluded.last_active`,
		session.UserID, session.TenantID, session.ClientKey != "", createdAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.UserID, err)
	}
	return nil
}

const sessionColumns = `user_id, COALESCE(tenant_id, ''), created_at`

func scanSession(row interface{ Scan(...any) error }) (*domain.Session, error) {
	var sess domain.Session
	if err := row.Scan(&sess.UserID, &sess.TenantID, &sess.CreatedAt); err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetSession returns session metadata for a user, or store.ErrNotFound.
func (s *DB) GetSession(ctx context.Context, userID string) (*domain.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ?`, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", userID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", userID, err)
	}
	return sess, nil
}

// CurrentSession returns the most recently active session, or nil if none.
func (s *DB) CurrentSession(ctx context.Context) (*domain.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY last_active DESC LIMIT 1`,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current session: %w", err)
	}
	return sess, nil
}

func (s *DB) ListSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY last_active DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session along with its push tokens and inbox state.
func (s *DB) DeleteSession(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", userID, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM inbox_state WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete inbox state %s: %w", userID, err)
	}
	return nil
}
