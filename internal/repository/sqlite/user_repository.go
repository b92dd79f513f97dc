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

const createStudentsTable = `
CREATE TABLE IF NOT EXISTS students (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	class TEXT NOT NULL,
	division TEXT NOT NULL,
	roll_number TEXT NOT NULL,
	photo_url TEXT NOT NULL DEFAULT '',
	parent_name TEXT NOT NULL,
	mobile TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type StudentRepository struct {
	db *sql.DB
}

func NewStudentRepository(db *sql.DB) repository.StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createStudentsTable); err != nil {
		return fmt.Errorf("create students table: %w", err)
	}
	return nil
}

// Upsert inserts the student or overwrites every profile field of an existing
// row with the same id.
func (r *StudentRepository) Upsert(ctx context.Context, student *domain.User) error {
	if student == nil || student.ID == "" {
		return errors.New("student id is required")
	}
	role := student.Role
	if role == "" {
		role = domain.RoleStudent
	}
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO students (id, name, role, class, division, roll_number, photo_url, parent_name, mobile, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	role = excluded.role,
	class = excluded.class,
	division = excluded.division,
	roll_number = excluded.roll_number,
	photo_url = excluded.photo_url,
	parent_name = excluded.parent_name,
	mobile = excluded.mobile,
	updated_at = excluded.updated_at`,
		student.ID,
		student.Name,
		string(role),
		student.Class,
		student.Division,
		student.RollNumber,
		student.PhotoURL,
		student.ParentName,
		student.Mobile,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert student: %w", err)
	}
	return nil
}

func (r *StudentRepository) GetByMobile(ctx context.Context, mobile string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, role, class, division, roll_number, photo_url, parent_name, mobile
FROM students
WHERE mobile = ?`,
		mobile,
	)
	return scanStudent(row)
}

func (r *StudentRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, role, class, division, roll_number, photo_url, parent_name, mobile
FROM students
WHERE id = ?`,
		id,
	)
	return scanStudent(row)
}

func (r *StudentRepository) UpdatePhoto(ctx context.Context, id, photoURL string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE students SET photo_url = ?, updated_at = ? WHERE id = ?`,
		photoURL,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update student photo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("student photo rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("student %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func scanStudent(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&role,
		&user.Class,
		&user.Division,
		&user.RollNumber,
		&user.PhotoURL,
		&user.ParentName,
		&user.Mobile,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("student: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan student: %w", err)
	}
	user.Role = domain.Role(role)
	return &user, nil
}
