package doctors

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

func TestPostgresRepositoryListFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("FROM doctors").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "department_id", "specialization"}).
			AddRow(int64(4), "Dr. Ito", int64(3), "ENT"))

	repo := NewPostgresRepository(mock)
	items, err := repo.List(context.Background(), 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].DepartmentID != 3 {
		t.Fatalf("unexpected items %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepositoryCreateUnknownDepartment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO doctors").
		WithArgs("Dr. X", int64(9), "").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	repo := NewPostgresRepository(mock)
	_, err = repo.Create(context.Background(), CreateRequest{Name: "Dr. X", DepartmentID: 9})
	if !errors.Is(err, ErrUnknownDepartment) {
		t.Fatalf("expected ErrUnknownDepartment, got %v", err)
	}
}

func TestPostgresRepositoryCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT count").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	repo := NewPostgresRepository(mock)
	n, err := repo.CountByDepartment(context.Background(), 1)
	if err != nil {
		t.Fatalf("CountByDepartment: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
}
