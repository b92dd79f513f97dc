package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"little-stars/internal/domain"
	"little-stars/internal/repository"
)

// the table holds at most one row, pinned to id 1
const createClientSessionTable = `
CREATE TABLE IF NOT EXISTS client_session (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	token TEXT NOT NULL,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	class TEXT NOT NULL,
	division TEXT NOT NULL,
	roll_number TEXT NOT NULL,
	photo_url TEXT NOT NULL,
	parent_name TEXT NOT NULL,
	mobile TEXT NOT NULL,
	saved_at DATETIME NOT NULL
);
`

type ClientSessionRepository struct {
	db *sql.DB
}

func NewClientSessionRepository(db *sql.DB) repository.ClientSessionRepository {
	return &ClientSessionRepository{db: db}
}

func (r *ClientSessionRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createClientSessionTable); err != nil {
		return fmt.Errorf("create client_session table: %w", err)
	}
	return nil
}

// Load returns the saved session, or nil when nobody is signed in.
func (r *ClientSessionRepository) Load(ctx context.Context) (*domain.SavedSession, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT token, user_id, name, role, class, division, roll_number, photo_url, parent_name, mobile, saved_at
FROM client_session
WHERE id = 1`)

	var (
		saved domain.SavedSession
		user  domain.User
		role  string
	)
	if err := row.Scan(
		&saved.Token,
		&user.ID,
		&user.Name,
		&role,
		&user.Class,
		&user.Division,
		&user.RollNumber,
		&user.PhotoURL,
		&user.ParentName,
		&user.Mobile,
		&saved.SavedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan client session: %w", err)
	}
	user.Role = domain.Role(role)
	saved.User = &user
	return &saved, nil
}

func (r *ClientSessionRepository) Save(ctx context.Context, saved domain.SavedSession) error {
	if saved.User == nil || saved.Token == "" {
		return errors.New("saved session needs a user and a token")
	}
	if saved.SavedAt.IsZero() {
		saved.SavedAt = time.Now().UTC()
	}
	u := saved.User
	_, err := r.db.ExecContext(ctx, `
INSERT INTO client_session (id, token, user_id, name, role, class, division, roll_number, photo_url, parent_name, mobile, saved_at)
VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	token = excluded.token,
	user_id = excluded.user_id,
	name = excluded.name,
	role = excluded.role,
	class = excluded.class,
	division = excluded.division,
	roll_number = excluded.roll_number,
	photo_url = excluded.photo_url,
	parent_name = excluded.parent_name,
	mobile = excluded.mobile,
	saved_at = excluded.saved_at`,
		saved.Token,
		u.ID,
		u.Name,
		string(u.Role),
		u.Class,
		u.Division,
		u.RollNumber,
		u.PhotoURL,
		u.ParentName,
		u.Mobile,
		saved.SavedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save client session: %w", err)
	}
	return nil
}

func (r *ClientSessionRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM client_session`); err != nil {
		return fmt.Errorf("clear client session: %w", err)
	}
	return nil
}
