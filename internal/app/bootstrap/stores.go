package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/clinic-reservation/internal/auth"
	"github.com/wolfman30/clinic-reservation/internal/departments"
	"github.com/wolfman30/clinic-reservation/internal/doctors"
	"github.com/wolfman30/clinic-reservation/internal/events"
	"github.com/wolfman30/clinic-reservation/internal/reservations"
	"github.com/wolfman30/clinic-reservation/internal/timeslots"
)

// Stores groups the repositories behind the API and the worker.
type Stores struct {
	Users        auth.Repository
	Departments  departments.Repository
	Doctors      doctors.Repository
	TimeSlots    timeslots.Repository
	Reservations reservations.Repository
	Outbox       events.Store
	Processed    events.ProcessedTracker

	// Memory is set for the in-process stores, whose outbox must be drained
	// by the API itself.
	Memory bool
}

// NewMemoryStores builds in-memory stores that keep slots, reservations and
// the outbox consistent without a database.
func NewMemoryStores() *Stores {
	docs := doctors.NewInMemoryRepository()
	slots := timeslots.NewInMemoryRepository()
	outbox := events.NewMemoryOutbox()
	return &Stores{
		Users:        auth.NewInMemoryRepository(),
		Departments:  departments.NewInMemoryRepository(),
		Doctors:      docs,
		TimeSlots:    slots,
		Reservations: reservations.NewInMemoryRepository(slots, docs, outbox),
		Outbox:       outbox,
		Processed:    events.NewMemoryProcessed(),
		Memory:       true,
	}
}

// NewPostgresStores builds the Postgres-backed stores on pool.
func NewPostgresStores(pool *pgxpool.Pool) *Stores {
	return &Stores{
		Users:        auth.NewPostgresRepository(pool),
		Departments:  departments.NewPostgresRepository(pool),
		Doctors:      doctors.NewPostgresRepository(pool),
		TimeSlots:    timeslots.NewPostgresRepository(pool),
		Reservations: reservations.NewPostgresRepository(pool),
		Outbox:       events.NewOutboxStore(pool),
		Processed:    events.NewProcessedStore(pool),
	}
}
