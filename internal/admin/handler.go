package admin

import (
	"net/http"

	"github.com/wolfman30/clinic-reservation/internal/http/respond"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

type Handler struct {
	stats  *StatsService
	logger *logging.Logger
}

// NewHandler creates the stats handler. A nil service answers 503, which is
// the case when the API runs without a database.
func NewHandler(stats *StatsService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{stats: stats, logger: logger}
}

// Stats handles GET /admin/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		respond.Error(w, http.StatusServiceUnavailable, respond.CodeUnavailable, "stats require a database")
		return
	}
	out, err := h.stats.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to compute stats", "error", err)
		respond.Internal(w)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}
