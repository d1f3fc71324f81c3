package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/vidyavistaar/portal/internal/model"
)

const authSessionTTL = 24 * time.Hour

// CreateAuthSession opens a session for userID acting as role and returns
// its bearer token.
func (s *Store) CreateAuthSession(ctx context.Context, userID string, role model.UserRole) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	now := s.now()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (id, user_id, role, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		token, userID, role, now, now.Add(authSessionTTL),
	); err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return token, nil
}

// GetAuthSession looks up a live session. A missing or expired token yields
// nil; expired rows are removed on the way out.
func (s *Store) GetAuthSession(ctx context.Context, token string) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, role, created_at, expires_at FROM auth_sessions WHERE id = ?`, token,
	).Scan(&sess.ID, &sess.UserID, &sess.Role, &sess.CreatedAt, &sess.ExpiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("query session: %w", err)
	}
	if !s.now().Before(sess.ExpiresAt) {
		if err := s.DeleteAuthSession(ctx, token); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &sess, nil
}

func (s *Store) DeleteAuthSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE id = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CleanupExpiredSessions drops every expired session and reports how many
// were removed.
func (s *Store) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE expires_at <= ?`, s.now())
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	return res.RowsAffected()
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
