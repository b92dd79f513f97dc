package repository

import (
	"context"
	"errors"

	"little-stars/internal/domain"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// StudentRepository defines persistence operations for student profiles.
type StudentRepository interface {
	Init(ctx context.Context) error
	Upsert(ctx context.Context, student *domain.User) error
	GetByMobile(ctx context.Context, mobile string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdatePhoto(ctx context.Context, id, photoURL string) error
}
