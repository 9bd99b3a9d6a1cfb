package reservations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"

	"github.com/wolfman30/clinic-reservation/internal/events"
	"github.com/wolfman30/clinic-reservation/internal/timeslots"
)

var (
	slotCols        = []string{"status", "doctor_id", "department_id", "date", "start_time", "end_time"}
	reservationCols = []string{"id", "time_slot_id", "user_id", "email", "doctor_id", "department_id", "date", "start_time", "end_time", "status", "name", "phone_number", "created_at", "updated_at", "reminded_at"}
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func sampleParams() CreateParams {
	return CreateParams{UserID: 1, UserEmail: "pat@example.com", TimeSlotID: 5, Name: "Taro", PhoneNumber: "09012345678", Actor: "pat@example.com"}
}

func TestPostgresCreateBooksSlotInTransaction(t *testing.T) {
	mock := newMock(t)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT ts.status").WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows(slotCols).AddRow("OPEN", int64(2), int64(3), "2025-06-09", "09:00", "09:30"))
	mock.ExpectQuery("INSERT INTO reservations").WithArgs(int64(5), int64(1), "Taro", "09012345678", "CONFIRMED").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), now, now))
	mock.ExpectExec("UPDATE time_slots SET status = 'CLOSED'").WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO outbox").WithArgs(pgxmock.AnyArg(), "reservation:11", events.TypeReservationConfirmed, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := NewPostgresRepository(mock)
	res, err := repo.Create(context.Background(), sampleParams())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.ID != 11 || res.DoctorID != 2 || res.DepartmentID != 3 || res.Status != StatusConfirmed || res.StartTime != "09:00" {
		t.Fatalf("unexpected reservation %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCreateRejectsTakenSlot(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT ts.status").WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows(slotCols).AddRow("CLOSED", int64(2), int64(3), "2025-06-09", "09:00", "09:30"))
	mock.ExpectRollback()

	repo := NewPostgresRepository(mock)
	if _, err := repo.Create(context.Background(), sampleParams()); !errors.Is(err, timeslots.ErrTimeSlotAlreadyTaken) {
		t.Fatalf("expected ErrTimeSlotAlreadyTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCreateMissingSlot(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT ts.status").WithArgs(int64(5)).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	repo := NewPostgresRepository(mock)
	if _, err := repo.Create(context.Background(), sampleParams()); !errors.Is(err, timeslots.ErrTimeSlotNotFound) {
		t.Fatalf("expected ErrTimeSlotNotFound, got %v", err)
	}
}

func TestPostgresCreateUniqueViolationIsConflict(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT ts.status").WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows(slotCols).AddRow("OPEN", int64(2), int64(3), "2025-06-09", "09:00", "09:30"))
	mock.ExpectQuery("INSERT INTO reservations").WithArgs(int64(5), int64(1), "Taro", "09012345678", "CONFIRMED").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	repo := NewPostgresRepository(mock)
	if _, err := repo.Create(context.Background(), sampleParams()); !errors.Is(err, timeslots.ErrTimeSlotAlreadyTaken) {
		t.Fatalf("expected ErrTimeSlotAlreadyTaken, got %v", err)
	}
}

func reservationRow(status string) *pgxmock.Rows {
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(reservationCols).AddRow(
		int64(11), int64(5), int64(1), "pat@example.com", int64(2), int64(3),
		"2025-06-09", "09:00", "09:30", status, "Taro", "09012345678", created, created, (*time.Time)(nil),
	)
}

func TestPostgresCancelReleasesSlot(t *testing.T) {
	mock := newMock(t)
	updated := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE OF r").WithArgs(int64(11)).WillReturnRows(reservationRow("CONFIRMED"))
	mock.ExpectQuery("UPDATE reservations SET status").WithArgs(int64(11), "CANCELED").
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(updated))
	mock.ExpectExec("UPDATE time_slots SET status = 'OPEN'").WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO outbox").WithArgs(pgxmock.AnyArg(), "reservation:11", events.TypeReservationCanceled, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := NewPostgresRepository(mock)
	res, from, err := repo.Transition(context.Background(), 11, TransitionParams{
		To:        StatusCanceled,
		Actor:     "pat@example.com",
		EventType: events.TypeReservationCanceled,
	})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if from != StatusConfirmed || res.Status != StatusCanceled || !res.UpdatedAt.Equal(updated) {
		t.Fatalf("unexpected result %+v from %s", res, from)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresTransitionGuardAborts(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE OF r").WithArgs(int64(11)).WillReturnRows(reservationRow("CANCELED"))
	mock.ExpectRollback()

	repo := NewPostgresRepository(mock)
	_, _, err := repo.Transition(context.Background(), 11, TransitionParams{
		To: StatusCanceled,
		Guard: func(cur *Reservation) error {
			if cur.Status == StatusCanceled {
				return ErrAlreadyCanceled
			}
			return nil
		},
	})
	if !errors.Is(err, ErrAlreadyCanceled) {
		t.Fatalf("expected ErrAlreadyCanceled, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresTransitionMissing(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE OF r").WithArgs(int64(404)).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	repo := NewPostgresRepository(mock)
	if _, _, err := repo.Transition(context.Background(), 404, TransitionParams{To: StatusCanceled}); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestPostgresSearchBuildsFilters(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT count\(\*\)`).WithArgs([]string{"CONFIRMED"}, int64(2), "%Yamada%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("ORDER BY ts.date, ts.start_time, r.id LIMIT").WithArgs([]string{"CONFIRMED"}, int64(2), "%Yamada%", 10).
		WillReturnRows(reservationRow("CONFIRMED"))

	repo := NewPostgresRepository(mock)
	out, total, err := repo.Search(context.Background(), Filter{
		Statuses: []Status{StatusConfirmed},
		DoctorID: 2,
		Name:     "Yamada",
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 1 || len(out) != 1 || out[0].UserEmail != "pat@example.com" {
		t.Fatalf("unexpected search result %d %+v", total, out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBuildWhereEscapesLike(t *testing.T) {
	where, args := buildWhere(Filter{Name: "50%_off", From: "2025-06-01", To: "2025-06-30"})
	want := " WHERE ts.date >= $1::date AND ts.date <= $2::date AND r.name ILIKE $3"
	if where != want {
		t.Fatalf("where = %q, want %q", where, want)
	}
	if args[2] != `%50\%\_off%` {
		t.Fatalf("unexpected pattern %v", args[2])
	}

	if where, args := buildWhere(Filter{}); where != "" || args != nil {
		t.Fatalf("expected empty where, got %q %v", where, args)
	}
}

func TestPostgresMarkRemindedMissing(t *testing.T) {
	mock := newMock(t)
	at := time.Date(2025, 6, 8, 18, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE reservations SET reminded_at").WithArgs(int64(9), at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPostgresRepository(mock)
	if err := repo.MarkReminded(context.Background(), 9, at); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}
