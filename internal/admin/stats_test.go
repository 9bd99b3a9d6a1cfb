package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-reservation/internal/http/respond"
	"github.com/wolfman30/clinic-reservation/internal/observability/metrics"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

func newStatsService(t *testing.T) (*StatsService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.NewReservationMetrics(reg)
	m.ObserveConflict()
	m.ObserveConflict()

	svc := NewStatsService(db, reg, time.FixedZone("JST", 9*60*60), logging.New("error"))
	svc.now = func() time.Time { return time.Date(2025, 6, 9, 1, 0, 0, 0, time.UTC) }
	return svc, mock
}

func expectStats(mock sqlmock.Sqlmock) {
	confirmed := pq.Array([]string{"CONFIRMED"})
	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\) FROM reservations GROUP BY status").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("CONFIRMED", int64(12)).
			AddRow("CANCELED", int64(3)))
	mock.ExpectQuery("(?s)SELECT COUNT\\(\\*\\).*FROM reservations r.*").
		WithArgs(confirmed, "2025-06-09", "2025-06-09").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(4)))
	mock.ExpectQuery("(?s)SELECT COUNT\\(\\*\\).*FROM reservations r.*").
		WithArgs(confirmed, "2025-06-09", "2025-06-15").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(9)))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM time_slots").
		WithArgs("OPEN", "2025-06-09").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(20)))
}

func TestStatsService(t *testing.T) {
	svc, mock := newStatsService(t)
	expectStats(mock)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-06-09", stats.Date)
	assert.Equal(t, map[string]int64{"CONFIRMED": 12, "PENDING": 0, "CANCELED": 3}, stats.ByStatus)
	assert.Equal(t, int64(4), stats.ConfirmedToday)
	assert.Equal(t, int64(9), stats.UpcomingConfirmed)
	assert.Equal(t, int64(20), stats.OpenSlotsToday)
	assert.Equal(t, float64(2), stats.BookingConflicts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsServiceQueryError(t *testing.T) {
	svc, mock := newStatsService(t)
	mock.ExpectQuery("SELECT status").WillReturnError(errors.New("connection reset"))

	_, err := svc.Stats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count by status")
}

func TestHandlerStats(t *testing.T) {
	svc, mock := newStatsService(t)
	expectStats(mock)

	rec := httptest.NewRecorder()
	NewHandler(svc, logging.New("error")).Stats(rec, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(12), body.ByStatus["CONFIRMED"])
}

func TestHandlerStatsWithoutDatabase(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(nil, logging.New("error")).Stats(rec, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body respond.ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, respond.CodeUnavailable, body.Error)
}
