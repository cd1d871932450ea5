package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agendalink/server/internal/model/user"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrNameTaken    = errors.New("name already registered")
	ErrEmailTaken   = errors.New("email already registered")
)

const userColumns = `id, name, COALESCE(email, ''), password, COALESCE(birthdate, ''), COALESCE(special_date, ''), role, created_at`

// CreateUser inserts a new account. Name and email must be unique.
func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE name = ?`, u.Name).Scan(&exists); err != nil {
		return user.User{}, fmt.Errorf("check name: %w", err)
	}
	if exists > 0 {
		return user.User{}, ErrNameTaken
	}

	if u.Email != "" {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, u.Email).Scan(&exists); err != nil {
			return user.User{}, fmt.Errorf("check email: %w", err)
		}
		if exists > 0 {
			return user.User{}, ErrEmailTaken
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password, birthdate, special_date, role, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.BirthDate, u.SpecialDate, string(u.Role), formatTime(u.CreatedAt))
	if err != nil {
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetUser fetches an account by id.
func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetUserByName fetches an account by its unique name.
func (s *Store) GetUserByName(ctx context.Context, name string) (user.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE name = ?`, name))
}

// GetUserByEmail fetches an account by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// ListUsers returns every account, newest last.
func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := s.scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteUser removes an account by id.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateUserRole changes an account's role.
func (s *Store) UpdateUserRole(ctx context.Context, id string, role user.Role) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, string(role), id)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanUser(row rowScanner) (user.User, error) {
	return s.scanUserRow(row)
}

func (s *Store) scanUserRow(row rowScanner) (user.User, error) {
	var u user.User
	var role, createdAt string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.BirthDate, &u.SpecialDate, &role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, ErrUserNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Role = user.Role(role)
	u.CreatedAt = parseTime(createdAt)
	return u, nil
}
