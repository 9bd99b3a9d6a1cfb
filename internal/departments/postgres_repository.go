package departments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const foreignKeyViolation = "23503"

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository persists departments in Postgres.
type PostgresRepository struct {
	db pgxQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(db pgxQuerier) *PostgresRepository {
	if db == nil {
		panic("departments: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Department, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM departments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("departments: list: %w", err)
	}
	defer rows.Close()

	var out []*Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("departments: scan: %w", err)
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("departments: list: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Department, error) {
	var d Department
	err := r.db.QueryRow(ctx, `SELECT id, name FROM departments WHERE id = $1`, id).Scan(&d.ID, &d.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDepartmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("departments: get: %w", err)
	}
	return &d, nil
}

func (r *PostgresRepository) Create(ctx context.Context, name string) (*Department, error) {
	d := Department{Name: name}
	if err := r.db.QueryRow(ctx, `INSERT INTO departments (name) VALUES ($1) RETURNING id`, name).Scan(&d.ID); err != nil {
		return nil, fmt.Errorf("departments: insert: %w", err)
	}
	return &d, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id int64, name string) (*Department, error) {
	var d Department
	err := r.db.QueryRow(ctx, `UPDATE departments SET name = $2 WHERE id = $1 RETURNING id, name`, id, name).Scan(&d.ID, &d.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDepartmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("departments: update: %w", err)
	}
	return &d, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return ErrDepartmentInUse
		}
		return fmt.Errorf("departments: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDepartmentNotFound
	}
	return nil
}
