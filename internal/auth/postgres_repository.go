package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores users in the app_users table.
type PostgresRepository struct {
	db pgxQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool (or a mock).
func NewPostgresRepository(db pgxQuerier) *PostgresRepository {
	if db == nil {
		panic("auth: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, user *User) (*User, error) {
	query := `
		INSERT INTO app_users (email, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	out := *user
	if err := r.db.QueryRow(ctx, query, user.Email, user.PasswordHash, string(user.Role)).
		Scan(&out.ID, &out.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("auth: insert user: %w", err)
	}
	return &out, nil
}

// GetByEmail fetches a user by normalized email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, password_hash, role, created_at
		FROM app_users
		WHERE email = $1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, normalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, email, password_hash, role, created_at
		FROM app_users
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// UpdateCredentials replaces the password hash and role.
func (r *PostgresRepository) UpdateCredentials(ctx context.Context, id int64, passwordHash string, role Role) error {
	query := `
		UPDATE app_users
		SET password_hash = $2, role = $3
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, passwordHash, string(role))
	if err != nil {
		return fmt.Errorf("auth: update credentials: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row pgx.Row) (*User, error) {
	var (
		u    User
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("auth: select user: %w", err)
	}
	u.Role = Role(role)
	return &u, nil
}
