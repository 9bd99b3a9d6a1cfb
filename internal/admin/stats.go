// Package admin serves the clinic dashboard figures.
package admin

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/clinic-reservation/internal/observability/metrics"
	"github.com/wolfman30/clinic-reservation/internal/reservations"
	"github.com/wolfman30/clinic-reservation/internal/timeslots"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// UpcomingDays is the window counted by Stats.UpcomingConfirmed, today included.
const UpcomingDays = 7

// Stats is the body of GET /admin/stats.
type Stats struct {
	Date              string           `json:"date"`
	ByStatus          map[string]int64 `json:"byStatus"`
	ConfirmedToday    int64            `json:"confirmedToday"`
	OpenSlotsToday    int64            `json:"openSlotsToday"`
	UpcomingConfirmed int64            `json:"upcomingConfirmed"`
	BookingConflicts  float64          `json:"bookingConflicts"`
}

// StatsService aggregates reservation figures over database/sql.
type StatsService struct {
	db       *sql.DB
	gatherer prometheus.Gatherer
	loc      *time.Location
	now      func() time.Time
	logger   *logging.Logger
}

func NewStatsService(db *sql.DB, gatherer prometheus.Gatherer, loc *time.Location, logger *logging.Logger) *StatsService {
	if db == nil {
		panic("admin: sql db required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsService{db: db, gatherer: gatherer, loc: loc, now: time.Now, logger: logger}
}

// Stats computes the dashboard for today in the clinic timezone.
func (s *StatsService) Stats(ctx context.Context) (*Stats, error) {
	today := s.now().In(s.loc)
	date := today.Format(timeslots.DateLayout)
	until := today.AddDate(0, 0, UpcomingDays-1).Format(timeslots.DateLayout)
	confirmed := pq.Array([]string{string(reservations.StatusConfirmed)})

	out := &Stats{
		Date: date,
		ByStatus: map[string]int64{
			string(reservations.StatusConfirmed): 0,
			string(reservations.StatusPending):   0,
			string(reservations.StatusCanceled):  0,
		},
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM reservations GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("admin: count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("admin: scan status count: %w", err)
		}
		out.ByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("admin: count by status: %w", err)
	}

	query := `
		SELECT COUNT(*)
		FROM reservations r
		JOIN time_slots ts ON ts.id = r.time_slot_id
		WHERE r.status = ANY($1) AND ts.date BETWEEN $2::date AND $3::date`
	if err := s.db.QueryRowContext(ctx, query, confirmed, date, date).Scan(&out.ConfirmedToday); err != nil {
		return nil, fmt.Errorf("admin: confirmed today: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, query, confirmed, date, until).Scan(&out.UpcomingConfirmed); err != nil {
		return nil, fmt.Errorf("admin: upcoming confirmed: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM time_slots WHERE status = $1 AND date = $2::date`,
		string(timeslots.StatusOpen), date,
	).Scan(&out.OpenSlotsToday); err != nil {
		return nil, fmt.Errorf("admin: open slots today: %w", err)
	}

	conflicts, err := metrics.CounterValue(s.gatherer, metrics.BookingConflictsMetric)
	if err != nil {
		s.logger.Warn("failed to read conflict counter", "error", err)
	}
	out.BookingConflicts = conflicts
	return out, nil
}
