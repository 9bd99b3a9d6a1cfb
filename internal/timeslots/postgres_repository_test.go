package timeslots

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

var slotRowColumns = []string{"id", "doctor_id", "date", "start_time", "end_time", "status"}

func TestPostgresListAvailable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("FROM time_slots").
		WithArgs(int64(1), "2025-06-09").
		WillReturnRows(pgxmock.NewRows(slotRowColumns).
			AddRow(int64(10), int64(1), "2025-06-09", "09:00", "09:30", "OPEN"))

	repo := NewPostgresRepository(mock)
	slots, err := repo.ListAvailable(context.Background(), 1, "2025-06-09")
	if err != nil {
		t.Fatalf("ListAvailable: %v", err)
	}
	if len(slots) != 1 || slots[0].Status != StatusOpen || slots[0].StartTime != "09:00" {
		t.Fatalf("unexpected slots %+v", slots)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresSetStatusHeld(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("UPDATE time_slots SET status").
		WithArgs(int64(10), "DOCTOR_UNAVAILABLE").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("FROM time_slots WHERE id").
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows(slotRowColumns).
			AddRow(int64(10), int64(1), "2025-06-09", "09:00", "09:30", "CLOSED"))

	repo := NewPostgresRepository(mock)
	_, err = repo.SetStatus(context.Background(), 10, StatusDoctorUnavailable)
	if !errors.Is(err, ErrTimeSlotHasReservation) {
		t.Fatalf("expected ErrTimeSlotHasReservation, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresSetStatusMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("UPDATE time_slots SET status").
		WithArgs(int64(11), "OPEN").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("FROM time_slots WHERE id").
		WithArgs(int64(11)).
		WillReturnError(pgx.ErrNoRows)

	repo := NewPostgresRepository(mock)
	if _, err := repo.SetStatus(context.Background(), 11, StatusOpen); !errors.Is(err, ErrTimeSlotNotFound) {
		t.Fatalf("expected ErrTimeSlotNotFound, got %v", err)
	}
}

func TestPostgresGenerate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	specs := []SlotSpec{
		{Date: "2025-06-09", StartTime: "09:00", EndTime: "09:30"},
		{Date: "2025-06-09", StartTime: "09:30", EndTime: "10:00"},
	}
	mock.ExpectExec("INSERT INTO time_slots").
		WithArgs(int64(1), []string{"2025-06-09", "2025-06-09"}, []string{"09:00", "09:30"}, []string{"09:30", "10:00"}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewPostgresRepository(mock)
	n, err := repo.Generate(context.Background(), 1, specs)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 created, got %d", n)
	}
}
