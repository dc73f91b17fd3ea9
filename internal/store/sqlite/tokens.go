package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/lu-zhengda/courier/internal/domain"
)

func (s *DB) UpsertPushToken(ctx context.Context, token *domain.PushToken) error {
	provider := token.Provider
	if provider == "" {
		provider = domain.PushProviderFCM
	}
	createdAt := token.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO push_tokens (user_id, token, provider, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, token) DO UPDATE SET provider = excluded.provider`,
		token.UserID, token.Token, provider, createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert push token for %s: %w", token.UserID, err)
	}
	return nil
}

func (s *DB) ListPushTokens(ctx context.Context, userID string) ([]domain.PushToken, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, token, provider, created_at FROM push_tokens WHERE user_id = ? ORDER BY created_at`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list push tokens for %s: %w", userID, err)
	}
	defer rows.Close()

	var tokens []domain.PushToken
	for rows.Next() {
		var t domain.PushToken
		if err := rows.Scan(&t.UserID, &t.Token, &t.Provider, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan push token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *DB) DeletePushToken(ctx context.Context, userID, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_tokens WHERE user_id = ? AND token = ?`, userID, token)
	if err != nil {
		return fmt.Errorf("failed to delete push token for %s: %w", userID, err)
	}
	return nil
}
