package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

// SessionRepository resolves bearer tokens issued by the account service.
type SessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *SessionRepository) ResolveUser(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, "resolve session", errors.New("token is empty"))
	}

	var userID string
	err := r.db.QueryRowContext(ctx, `
SELECT user_id FROM sessions WHERE token = $1 AND expires_at > $2
`, token, r.now()).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.WrapError(domain.ErrUnauthorized, "resolve session", errors.New("session is unknown or expired"))
		}
		return "", fmt.Errorf("query session: %w", err)
	}
	return userID, nil
}
