package repository

import (
	"context"
	"time"

	"little-stars/internal/domain"
)

// SessionRepository keeps the server-side record of every issued token.
type SessionRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, session *domain.IssuedSession) error
	Get(ctx context.Context, id string) (*domain.IssuedSession, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// RevocationCache is a fast lookup of revoked token ids. Entries only need to
// live until the token would have expired anyway.
type RevocationCache interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// ClientSessionRepository stores the single signed-in session of a client
// install.
type ClientSessionRepository interface {
	Init(ctx context.Context) error
	Load(ctx context.Context) (*domain.SavedSession, error)
	Save(ctx context.Context, saved domain.SavedSession) error
	Clear(ctx context.Context) error
}
