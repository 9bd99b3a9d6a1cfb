package doctors

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository persists doctors in Postgres.
type PostgresRepository struct {
	db pgxQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(db pgxQuerier) *PostgresRepository {
	if db == nil {
		panic("doctors: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, departmentID int64) ([]*Doctor, error) {
	query := `
		SELECT id, name, department_id, specialization
		FROM doctors
		WHERE ($1::bigint = 0 OR department_id = $1)
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, departmentID)
	if err != nil {
		return nil, fmt.Errorf("doctors: list: %w", err)
	}
	defer rows.Close()

	var out []*Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.DepartmentID, &d.Specialization); err != nil {
			return nil, fmt.Errorf("doctors: scan: %w", err)
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doctors: list: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Doctor, error) {
	var d Doctor
	err := r.db.QueryRow(ctx, `
		SELECT id, name, department_id, specialization
		FROM doctors
		WHERE id = $1
	`, id).Scan(&d.ID, &d.Name, &d.DepartmentID, &d.Specialization)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("doctors: get: %w", err)
	}
	return &d, nil
}

func (r *PostgresRepository) Create(ctx context.Context, req CreateRequest) (*Doctor, error) {
	d := Doctor{Name: req.Name, DepartmentID: req.DepartmentID, Specialization: req.Specialization}
	err := r.db.QueryRow(ctx, `
		INSERT INTO doctors (name, department_id, specialization)
		VALUES ($1, $2, $3)
		RETURNING id
	`, req.Name, req.DepartmentID, req.Specialization).Scan(&d.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrUnknownDepartment
		}
		return nil, fmt.Errorf("doctors: insert: %w", err)
	}
	return &d, nil
}

func (r *PostgresRepository) CountByDepartment(ctx context.Context, departmentID int64) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM doctors WHERE department_id = $1`, departmentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("doctors: count: %w", err)
	}
	return n, nil
}
