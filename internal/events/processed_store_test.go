package events

import (
	"context"
	"testing"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

func TestProcessedStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewProcessedStore(mock)

	mock.ExpectQuery("SELECT 1 FROM processed_events").WithArgs("notify", "evt").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(1))
	processed, err := store.AlreadyProcessed(context.Background(), "notify", "evt")
	if err != nil || !processed {
		t.Fatalf("expected existing row, got processed=%v err=%v", processed, err)
	}

	mock.ExpectQuery("SELECT 1 FROM processed_events").WithArgs("notify", "evt-miss").WillReturnError(pgx.ErrNoRows)
	processed, err = store.AlreadyProcessed(context.Background(), "notify", "evt-miss")
	if err != nil || processed {
		t.Fatalf("expected missing row, got processed=%v err=%v", processed, err)
	}

	mock.ExpectExec("INSERT INTO processed_events").WithArgs("notify", "evt-new").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	ok, err := store.MarkProcessed(context.Background(), "notify", "evt-new")
	if err != nil || !ok {
		t.Fatalf("expected mark processed success, got %v %v", ok, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMemoryProcessed(t *testing.T) {
	m := NewMemoryProcessed()
	ctx := context.Background()

	if seen, _ := m.AlreadyProcessed(ctx, "notify", "a"); seen {
		t.Fatalf("expected unseen")
	}
	if ok, _ := m.MarkProcessed(ctx, "notify", "a"); !ok {
		t.Fatalf("expected first mark to succeed")
	}
	if ok, _ := m.MarkProcessed(ctx, "notify", "a"); ok {
		t.Fatalf("expected second mark to report duplicate")
	}
	if seen, _ := m.AlreadyProcessed(ctx, "audit", "a"); seen {
		t.Fatalf("expected consumers to be tracked separately")
	}
}
