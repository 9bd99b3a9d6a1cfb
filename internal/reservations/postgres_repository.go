package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/clinic-reservation/internal/events"
	"github.com/wolfman30/clinic-reservation/internal/timeslots"
)

const uniqueViolation = "23505"

type pgxQuerier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// reservationColumns matches scanReservation.
const reservationColumns = `r.id, r.time_slot_id, r.user_id, u.email, ts.doctor_id, d.department_id,
	to_char(ts.date, 'YYYY-MM-DD'), to_char(ts.start_time, 'HH24:MI'), to_char(ts.end_time, 'HH24:MI'),
	r.status, r.name, r.phone_number, r.created_at, r.updated_at, r.reminded_at`

const reservationJoins = `reservations r
	JOIN app_users u ON u.id = r.user_id
	JOIN time_slots ts ON ts.id = r.time_slot_id
	JOIN doctors d ON d.id = ts.doctor_id`

// PostgresRepository stores reservations in Postgres. Booking locks the slot
// row and writes the outbox event in the same transaction.
type PostgresRepository struct {
	db pgxQuerier
}

// NewPostgresRepository creates a Postgres-backed repository.
func NewPostgresRepository(db pgxQuerier) *PostgresRepository {
	if db == nil {
		panic("reservations: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, params CreateParams) (*Reservation, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("reservations: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	res := &Reservation{
		TimeSlotID:  params.TimeSlotID,
		UserID:      params.UserID,
		UserEmail:   params.UserEmail,
		Status:      StatusConfirmed,
		Name:        params.Name,
		PhoneNumber: params.PhoneNumber,
	}
	var slotStatus string
	err = tx.QueryRow(ctx, `
		SELECT ts.status, ts.doctor_id, d.department_id,
			to_char(ts.date, 'YYYY-MM-DD'), to_char(ts.start_time, 'HH24:MI'), to_char(ts.end_time, 'HH24:MI')
		FROM time_slots ts
		JOIN doctors d ON d.id = ts.doctor_id
		WHERE ts.id = $1
		FOR UPDATE OF ts
	`, params.TimeSlotID).Scan(&slotStatus, &res.DoctorID, &res.DepartmentID, &res.Date, &res.StartTime, &res.EndTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, timeslots.ErrTimeSlotNotFound
		}
		return nil, fmt.Errorf("reservations: lock slot: %w", err)
	}
	if timeslots.Status(slotStatus) != timeslots.StatusOpen {
		return nil, timeslots.ErrTimeSlotAlreadyTaken
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO reservations (time_slot_id, user_id, name, phone_number, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, params.TimeSlotID, params.UserID, params.Name, params.PhoneNumber, string(StatusConfirmed)).
		Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, timeslots.ErrTimeSlotAlreadyTaken
		}
		return nil, fmt.Errorf("reservations: insert: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE time_slots SET status = 'CLOSED' WHERE id = $1`, params.TimeSlotID); err != nil {
		return nil, fmt.Errorf("reservations: close slot: %w", err)
	}

	evt := newEvent(events.TypeReservationConfirmed, res, "", params.Actor, res.CreatedAt)
	if _, err := events.AppendCanonicalEvent(ctx, tx, AggregateID(res.ID), evt); err != nil {
		return nil, fmt.Errorf("reservations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("reservations: commit create: %w", err)
	}
	return res, nil
}

func (r *PostgresRepository) Transition(ctx context.Context, id int64, params TransitionParams) (*Reservation, Status, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("reservations: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	res, err := scanReservation(tx.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM `+reservationJoins+`
		WHERE r.id = $1
		FOR UPDATE OF r
	`, id))
	if err != nil {
		return nil, "", err
	}
	if params.Guard != nil {
		if err := params.Guard(res); err != nil {
			return nil, "", err
		}
	}

	from := res.Status
	err = tx.QueryRow(ctx, `
		UPDATE reservations SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, id, string(params.To)).Scan(&res.UpdatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("reservations: update status: %w", err)
	}
	res.Status = params.To

	if params.To == StatusCanceled {
		// A slot the doctor was marked unavailable on keeps that status.
		if _, err := tx.Exec(ctx, `UPDATE time_slots SET status = 'OPEN' WHERE id = $1 AND status = 'CLOSED'`, res.TimeSlotID); err != nil {
			return nil, "", fmt.Errorf("reservations: release slot: %w", err)
		}
	}

	evt := newEvent(params.EventType, res, from, params.Actor, res.UpdatedAt)
	if _, err := events.AppendCanonicalEvent(ctx, tx, AggregateID(res.ID), evt); err != nil {
		return nil, "", fmt.Errorf("reservations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("reservations: commit transition: %w", err)
	}
	return res, from, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Reservation, error) {
	return scanReservation(r.db.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM `+reservationJoins+`
		WHERE r.id = $1
	`, id))
}

func (r *PostgresRepository) Search(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	where, args := buildWhere(filter)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM `+reservationJoins+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("reservations: count: %w", err)
	}

	query := `SELECT ` + reservationColumns + ` FROM ` + reservationJoins + where +
		` ORDER BY ts.date, ts.start_time, r.id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("reservations: search: %w", err)
	}
	out, err := collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *PostgresRepository) ListDueReminders(ctx context.Context, date string) ([]*Reservation, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM `+reservationJoins+`
		WHERE r.status = 'CONFIRMED' AND ts.date = $1::date AND r.reminded_at IS NULL
		ORDER BY ts.start_time, r.id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("reservations: list due reminders: %w", err)
	}
	return collect(rows)
}

func (r *PostgresRepository) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE reservations SET reminded_at = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		return fmt.Errorf("reservations: mark reminded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReservationNotFound
	}
	return nil
}

func buildWhere(f Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.UserID != 0 {
		add("r.user_id = $%d", f.UserID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		add("r.status = ANY($%d::text[])", statuses)
	}
	if f.Date != "" {
		add("ts.date = $%d::date", f.Date)
	}
	if f.From != "" {
		add("ts.date >= $%d::date", f.From)
	}
	if f.To != "" {
		add("ts.date <= $%d::date", f.To)
	}
	if f.DoctorID != 0 {
		add("ts.doctor_id = $%d", f.DoctorID)
	}
	if f.DepartmentID != 0 {
		add("d.department_id = $%d", f.DepartmentID)
	}
	if f.Name != "" {
		add("r.name ILIKE $%d", "%"+escapeLike(f.Name)+"%")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

func collect(rows pgx.Rows) ([]*Reservation, error) {
	defer rows.Close()

	var out []*Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reservations: iterate rows: %w", err)
	}
	return out, nil
}

func scanReservation(row pgx.Row) (*Reservation, error) {
	var (
		res    Reservation
		status string
	)
	err := row.Scan(
		&res.ID, &res.TimeSlotID, &res.UserID, &res.UserEmail, &res.DoctorID, &res.DepartmentID,
		&res.Date, &res.StartTime, &res.EndTime,
		&status, &res.Name, &res.PhoneNumber, &res.CreatedAt, &res.UpdatedAt, &res.RemindedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("reservations: scan: %w", err)
	}
	res.Status = Status(status)
	return &res, nil
}
