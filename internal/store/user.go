package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/vidyavistaar/portal/internal/model"
)

const userColumns = `id, name, email, role, profile_picture, parent_name, parent_phone,
	teacher_notes, class, subject_en, subject_pa`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(sc rowScanner) (model.User, error) {
	var u model.User
	err := sc.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.ProfilePicture, &u.ParentName,
		&u.ParentPhone, &u.TeacherNotes, &u.Class, &u.Subject.En, &u.Subject.Pa)
	return u, err
}

// UpsertUser inserts or replaces a user record.
func (s *Store) UpsertUser(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email,
		   role = excluded.role, profile_picture = excluded.profile_picture,
		   parent_name = excluded.parent_name, parent_phone = excluded.parent_phone,
		   class = excluded.class, subject_en = excluded.subject_en, subject_pa = excluded.subject_pa`,
		u.ID, u.Name, u.Email, u.Role, u.ProfilePicture, u.ParentName, u.ParentPhone,
		u.TeacherNotes, u.Class, u.Subject.En, u.Subject.Pa,
	)
	if err != nil {
		slog.Error("failed to upsert user", "id", u.ID, "error", err)
	}
	return err
}

// GetUserByEmail returns the user of the given role whose email matches
// case-insensitively, or nil if there is none.
func (s *Store) GetUserByEmail(ctx context.Context, email string, role model.UserRole) (*model.User, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE AND role = ?`, email, role))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID returns a user by ID, or nil if not found.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all users with the given role ordered by ID.
func (s *Store) ListUsers(ctx context.Context, role model.UserRole) ([]model.User, error) {
	if err := s.pause(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY id`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListStudents returns all students ordered by ID.
func (s *Store) ListStudents(ctx context.Context) ([]model.User, error) {
	return s.ListUsers(ctx, model.UserRoleStudent)
}

// UpdateTeacherNotes replaces a student's teacher notes and returns the updated record.
func (s *Store) UpdateTeacherNotes(ctx context.Context, studentID, notes string) (model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`UPDATE users SET teacher_notes = ? WHERE id = ? AND role = ?
		 RETURNING `+userColumns,
		notes, studentID, model.UserRoleStudent))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, model.NewNotFoundError("student", studentID)
	}
	if err != nil {
		return model.User{}, err
	}
	slog.Info("updated teacher notes", "student_id", studentID)
	return u, nil
}

// UserCount returns the total number of users.
func (s *Store) UserCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
