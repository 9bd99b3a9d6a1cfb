package reservations

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-reservation/internal/audit"
	"github.com/wolfman30/clinic-reservation/internal/auth"
	"github.com/wolfman30/clinic-reservation/internal/doctors"
	"github.com/wolfman30/clinic-reservation/internal/events"
	"github.com/wolfman30/clinic-reservation/internal/live"
	"github.com/wolfman30/clinic-reservation/internal/observability/metrics"
	"github.com/wolfman30/clinic-reservation/internal/timeslots"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

const slotDate = "2025-06-09"

var (
	patient = auth.Principal{UserID: 1, Email: "pat@example.com", Role: auth.RoleUser}
	other   = auth.Principal{UserID: 2, Email: "sam@example.com", Role: auth.RoleUser}
	admin   = auth.Principal{UserID: 9, Email: "admin@example.com", Role: auth.RoleAdmin}
)

type recordingCache struct {
	mu   sync.Mutex
	keys []string
}

func (c *recordingCache) Invalidate(ctx context.Context, doctorID int64, date string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, timeslots.CacheKey(doctorID, date))
}

type fixture struct {
	slots   *timeslots.InMemoryRepository
	repo    *InMemoryRepository
	outbox  *events.MemoryOutbox
	history *audit.MemoryStore
	hub     *live.Hub
	cache   *recordingCache
	reg     *prometheus.Registry
	service *Service
	slotIDs []int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	docs := doctors.NewInMemoryRepository()
	doc, err := docs.Create(ctx, doctors.CreateRequest{Name: "Dr. Sato", DepartmentID: 3, Specialization: "Internal medicine"})
	require.NoError(t, err)

	slots := timeslots.NewInMemoryRepository()
	_, err = slots.Generate(ctx, doc.ID, []timeslots.SlotSpec{
		{Date: slotDate, StartTime: "09:00", EndTime: "09:30"},
		{Date: slotDate, StartTime: "09:30", EndTime: "10:00"},
		{Date: "2025-06-10", StartTime: "09:00", EndTime: "09:30"},
	})
	require.NoError(t, err)
	all, err := slots.List(ctx, timeslots.Filter{})
	require.NoError(t, err)

	f := &fixture{
		slots:   slots,
		outbox:  events.NewMemoryOutbox(),
		history: audit.NewMemoryStore(),
		hub:     live.NewHub(8, logging.New("error")),
		cache:   &recordingCache{},
		reg:     prometheus.NewRegistry(),
	}
	for _, s := range all {
		f.slotIDs = append(f.slotIDs, s.ID)
	}
	f.repo = NewInMemoryRepository(slots, docs, f.outbox)
	f.service = NewService(f.repo, logging.New("error"),
		WithSlotCache(f.cache),
		WithPublisher(f.hub),
		WithHistory(f.history),
		WithMetrics(metrics.NewReservationMetrics(f.reg)),
	)
	return f
}

func (f *fixture) book(t *testing.T, p auth.Principal, slotID int64, name string) *Reservation {
	t.Helper()
	res, err := f.service.Create(context.Background(), p, CreateRequest{TimeSlotID: slotID, Name: name, PhoneNumber: "090-1234-5678"})
	require.NoError(t, err)
	return res
}

func (f *fixture) slotStatus(t *testing.T, id int64) timeslots.Status {
	t.Helper()
	slot, err := f.slots.GetByID(context.Background(), id)
	require.NoError(t, err)
	return slot.Status
}

func TestCreateClosesSlotAndEmitsEvent(t *testing.T) {
	f := newFixture(t)
	sub := f.hub.Subscribe()

	res := f.book(t, patient, f.slotIDs[0], "Taro Yamada")
	assert.Equal(t, StatusConfirmed, res.Status)
	assert.Equal(t, int64(3), res.DepartmentID)
	assert.Equal(t, slotDate, res.Date)
	assert.Equal(t, "09:00", res.StartTime)
	assert.Equal(t, "09012345678", res.PhoneNumber)
	assert.Equal(t, timeslots.StatusClosed, f.slotStatus(t, f.slotIDs[0]))

	pending, err := f.outbox.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, events.TypeReservationConfirmed, pending[0].Type)
	assert.Equal(t, AggregateID(res.ID), pending[0].AggregateID)

	msg := <-sub.C()
	assert.Equal(t, events.TypeReservationConfirmed, msg.Type)
	assert.Equal(t, res.ID, msg.ReservationID)
	assert.Equal(t, []string{timeslots.CacheKey(res.DoctorID, slotDate)}, f.cache.keys)
}

func TestCreateConflictCountsMetric(t *testing.T) {
	f := newFixture(t)
	f.book(t, patient, f.slotIDs[0], "Taro")

	_, err := f.service.Create(context.Background(), other, CreateRequest{TimeSlotID: f.slotIDs[0], Name: "Sam", PhoneNumber: "09011112222"})
	assert.ErrorIs(t, err, timeslots.ErrTimeSlotAlreadyTaken)

	conflicts, err := metrics.CounterValue(f.reg, metrics.BookingConflictsMetric)
	require.NoError(t, err)
	assert.Equal(t, float64(1), conflicts)

	_, err = f.service.Create(context.Background(), other, CreateRequest{TimeSlotID: 999, Name: "Sam", PhoneNumber: "09011112222"})
	assert.ErrorIs(t, err, timeslots.ErrTimeSlotNotFound)
}

func TestConcurrentBookingsHaveOneWinner(t *testing.T) {
	f := newFixture(t)

	const attempts = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := auth.Principal{UserID: int64(100 + i), Email: "u@example.com", Role: auth.RoleUser}
			_, err := f.service.Create(context.Background(), p, CreateRequest{TimeSlotID: f.slotIDs[1], Name: "Racer", PhoneNumber: "09012345678"})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	conflicts, err := metrics.CounterValue(f.reg, metrics.BookingConflictsMetric)
	require.NoError(t, err)
	assert.Equal(t, float64(attempts-1), conflicts)
}

func TestCancelRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.book(t, patient, f.slotIDs[0], "Taro")

	_, err := f.service.Cancel(ctx, other, res.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	canceled, err := f.service.Cancel(ctx, patient, res.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status)
	assert.Equal(t, timeslots.StatusOpen, f.slotStatus(t, f.slotIDs[0]))

	_, err = f.service.Cancel(ctx, patient, res.ID)
	assert.ErrorIs(t, err, ErrAlreadyCanceled)

	_, err = f.service.Cancel(ctx, patient, 404)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	// The released slot can be booked again.
	again := f.book(t, other, f.slotIDs[0], "Sam")
	assert.NotEqual(t, res.ID, again.ID)

	// Admins may cancel anyone's reservation.
	_, err = f.service.Cancel(ctx, admin, again.ID)
	require.NoError(t, err)
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.book(t, patient, f.slotIDs[0], "Taro")

	updated, err := f.service.UpdateStatus(ctx, admin, res.ID, "pending")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, updated.Status)
	assert.Equal(t, timeslots.StatusClosed, f.slotStatus(t, f.slotIDs[0]))

	_, err = f.service.UpdateStatus(ctx, admin, res.ID, "PENDING")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.service.UpdateStatus(ctx, admin, res.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, timeslots.StatusOpen, f.slotStatus(t, f.slotIDs[0]))

	_, err = f.service.UpdateStatus(ctx, admin, res.ID, "CONFIRMED")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.service.UpdateStatus(ctx, admin, res.ID, "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	pending, err := f.outbox.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	evt, err := events.DecodeReservationEvent(pending[2])
	require.NoError(t, err)
	assert.Equal(t, "PENDING", evt.FromStatus)
	assert.Equal(t, "CANCELED", evt.Status)
	assert.Equal(t, "admin@example.com", evt.Actor)
}

func TestGetAndListMine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.book(t, patient, f.slotIDs[1], "Taro")
	canceled := f.book(t, patient, f.slotIDs[0], "Taro")
	theirs := f.book(t, other, f.slotIDs[2], "Sam")
	_, err := f.service.Cancel(ctx, patient, canceled.ID)
	require.NoError(t, err)

	_, err = f.service.Get(ctx, patient, theirs.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	got, err := f.service.Get(ctx, admin, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sam", got.Name)

	list, err := f.service.ListMine(ctx, patient, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	list, err = f.service.ListMine(ctx, patient, "ALL")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, canceled.ID, list[0].ID, "09:00 sorts before 09:30")

	list, err = f.service.ListMine(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.service.ListMine(ctx, patient, "bogus")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSearchFiltersAndPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, patient, f.slotIDs[0], "Taro Yamada")
	f.book(t, other, f.slotIDs[1], "Hanako Suzuki")
	f.book(t, other, f.slotIDs[2], "Jiro Yamada")

	result, err := f.service.Search(ctx, Filter{Name: "yamada"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, DefaultLimit, result.Limit)

	result, err = f.service.Search(ctx, Filter{Date: slotDate, Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	require.Len(t, result.Reservations, 1)
	assert.Equal(t, "Hanako Suzuki", result.Reservations[0].Name)

	result, err = f.service.Search(ctx, Filter{Limit: 5000, DepartmentID: 3, From: "2025-06-10", To: "2025-06-30"})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, result.Limit)
	assert.Equal(t, 1, result.Count)

	result, err = f.service.Search(ctx, Filter{Statuses: []Status{StatusPending}})
	require.NoError(t, err)
	assert.Empty(t, result.Reservations)
	assert.NotNil(t, result.Reservations)

	_, err = f.service.Search(ctx, Filter{From: "2025-07-01", To: "2025-06-01"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
	_, err = f.service.Search(ctx, Filter{Date: "06/09/2025"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestHistoryFromDeliveredEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.book(t, patient, f.slotIDs[0], "Taro")
	_, err := f.service.Cancel(ctx, patient, res.ID)
	require.NoError(t, err)

	deliverer := events.NewDeliverer(f.outbox, audit.EventHandler(f.history), logging.New("error"))
	assert.Equal(t, 2, deliverer.Drain(ctx))

	entries, err := f.service.History(ctx, res.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, events.TypeReservationConfirmed, entries[0].EventType)
	assert.Equal(t, "CONFIRMED", entries[1].FromStatus)
	assert.Equal(t, "CANCELED", entries[1].ToStatus)
	assert.Equal(t, "pat@example.com", entries[1].Actor)

	_, err = f.service.History(ctx, 404)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestMemoryReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.book(t, patient, f.slotIDs[0], "Taro")

	due, err := f.repo.ListDueReminders(ctx, slotDate)
	require.NoError(t, err)
	require.Len(t, due, 1)

	require.NoError(t, f.repo.MarkReminded(ctx, res.ID, due[0].CreatedAt))
	due, err = f.repo.ListDueReminders(ctx, slotDate)
	require.NoError(t, err)
	assert.Empty(t, due)

	assert.ErrorIs(t, f.repo.MarkReminded(ctx, 404, time.Now()), ErrReservationNotFound)
}

func TestMemoryCancelRollsBackWhenEventFails(t *testing.T) {
	f := newFixture(t)
	res := f.book(t, patient, f.slotIDs[0], "Taro Yamada")
	pending := f.outbox.Pending()

	_, _, err := f.repo.Transition(context.Background(), res.ID, TransitionParams{To: StatusCanceled, Actor: patient.Email})
	require.Error(t, err)

	assert.Equal(t, timeslots.StatusClosed, f.slotStatus(t, f.slotIDs[0]))
	got, err := f.repo.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Equal(t, pending, f.outbox.Pending())
}
