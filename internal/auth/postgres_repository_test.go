package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

func TestPostgresRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	created := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO app_users").
		WithArgs("new@example.com", "hash", "USER").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

	repo := NewPostgresRepository(mock)
	user, err := repo.Create(context.Background(), &User{Email: "new@example.com", PasswordHash: "hash", Role: RoleUser})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID != 42 || !user.CreatedAt.Equal(created) {
		t.Fatalf("unexpected user %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepositoryCreateDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO app_users").
		WithArgs("dup@example.com", "hash", "USER").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	repo := NewPostgresRepository(mock)
	_, err = repo.Create(context.Background(), &User{Email: "dup@example.com", PasswordHash: "hash", Role: RoleUser})
	if !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Fatalf("expected ErrEmailAlreadyRegistered, got %v", err)
	}
}

func TestPostgresRepositoryGetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, email, password_hash, role, created_at").
		WithArgs("admin@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "role", "created_at"}).
			AddRow(int64(1), "admin@example.com", "hash", "ADMIN", now))
	mock.ExpectQuery("SELECT id, email, password_hash, role, created_at").
		WithArgs("missing@example.com").
		WillReturnError(pgx.ErrNoRows)

	repo := NewPostgresRepository(mock)
	user, err := repo.GetByEmail(context.Background(), " Admin@Example.com ")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if user.Role != RoleAdmin {
		t.Fatalf("expected ADMIN, got %s", user.Role)
	}

	if _, err := repo.GetByEmail(context.Background(), "missing@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestPostgresRepositoryUpdateCredentialsMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("UPDATE app_users").
		WithArgs(int64(9), "hash", "ADMIN").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPostgresRepository(mock)
	if err := repo.UpdateCredentials(context.Background(), 9, "hash", RoleAdmin); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
