package timeslots

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const slotColumns = `id, doctor_id, to_char(date, 'YYYY-MM-DD'), to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), status`

// PostgresRepository persists slots in the time_slots table.
type PostgresRepository struct {
	db pgxQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(db pgxQuerier) *PostgresRepository {
	if db == nil {
		panic("timeslots: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListAvailable(ctx context.Context, doctorID int64, date string) ([]*TimeSlot, error) {
	query := `SELECT ` + slotColumns + `
		FROM time_slots
		WHERE doctor_id = $1 AND date = $2::date AND status = 'OPEN'
		ORDER BY start_time`
	return r.query(ctx, "list available", query, doctorID, date)
}

func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]*TimeSlot, error) {
	query := `SELECT ` + slotColumns + `
		FROM time_slots
		WHERE ($1::bigint = 0 OR doctor_id = $1)
		  AND ($2::text = '' OR date = $2::text::date)
		ORDER BY date, start_time, doctor_id`
	return r.query(ctx, "list", query, filter.DoctorID, filter.Date)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*TimeSlot, error) {
	row := r.db.QueryRow(ctx, `SELECT `+slotColumns+` FROM time_slots WHERE id = $1`, id)
	s, err := scanSlot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTimeSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("timeslots: get: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id int64, status Status) (*TimeSlot, error) {
	query := `
		UPDATE time_slots SET status = $2
		WHERE id = $1
		  AND status <> 'CLOSED'
		  AND NOT EXISTS (
			SELECT 1 FROM reservations
			WHERE time_slot_id = $1 AND status <> 'CANCELED'
		  )
		RETURNING ` + slotColumns
	s, err := scanSlot(r.db.QueryRow(ctx, query, id, string(status)))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("timeslots: set status: %w", err)
	}
	// No row updated: either the slot is missing or it is held.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrTimeSlotHasReservation
}

func (r *PostgresRepository) Generate(ctx context.Context, doctorID int64, specs []SlotSpec) (int, error) {
	if len(specs) == 0 {
		return 0, nil
	}
	dates := make([]string, len(specs))
	starts := make([]string, len(specs))
	ends := make([]string, len(specs))
	for i, s := range specs {
		dates[i], starts[i], ends[i] = s.Date, s.StartTime, s.EndTime
	}
	query := `
		INSERT INTO time_slots (doctor_id, date, start_time, end_time, status)
		SELECT $1, d::date, s::time, e::time, 'OPEN'
		FROM unnest($2::text[], $3::text[], $4::text[]) AS t(d, s, e)
		ON CONFLICT (doctor_id, date, start_time) DO NOTHING`
	tag, err := r.db.Exec(ctx, query, doctorID, dates, starts, ends)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return 0, ErrUnknownDoctor
		}
		return 0, fmt.Errorf("timeslots: generate: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresRepository) query(ctx context.Context, op, query string, args ...any) ([]*TimeSlot, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("timeslots: %s: %w", op, err)
	}
	defer rows.Close()

	var out []*TimeSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("timeslots: scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("timeslots: %s: %w", op, err)
	}
	return out, nil
}

func scanSlot(row pgx.Row) (*TimeSlot, error) {
	var (
		s      TimeSlot
		status string
	)
	if err := row.Scan(&s.ID, &s.DoctorID, &s.Date, &s.StartTime, &s.EndTime, &status); err != nil {
		return nil, err
	}
	s.Status = Status(status)
	return &s, nil
}
