package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/store"
)

// GetInboxState retrieves the inbox state for a user.
// If no state exists, it returns a zero PaginationLimit so callers can apply
// their own default.
func (s *DB) GetInboxState(ctx context.Context, userID string) (*store.InboxState, error) {
	state := store.InboxState{UserID: userID}
	var lastSync sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, pagination_limit, last_sync FROM inbox_state WHERE user_id = ?`,
		userID,
	).Scan(&state.UserID, &state.PaginationLimit, &lastSync)

	if errors.Is(err, sql.ErrNoRows) {
		return &store.InboxState{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox state for %s: %w", userID, err)
	}

	state.LastSync = lastSync.Int64
	state.PaginationLimit = domain.ClampPaginationLimit(state.PaginationLimit)
	return &state, nil
}

// SetInboxState inserts or updates the inbox state for a user.
func (s *DB) SetInboxState(ctx context.Context, state *store.InboxState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inbox_state (user_id, pagination_limit, last_sync)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			pagination_limit = excluded.pagination_limit,
			last_sync        = excluded.last_sync`,
		state.UserID, domain.ClampPaginationLimit(state.PaginationLimit), state.LastSync,
	)
	if err != nil {
		return fmt.Errorf("failed to set inbox state for %s: %w", state.UserID, err)
	}
	return nil
}
