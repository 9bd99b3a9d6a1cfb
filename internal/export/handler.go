package export

import (
	"errors"
	"net/http"

	"github.com/wolfman30/clinic-reservation/internal/http/respond"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

type Handler struct {
	exporter *Exporter
	logger   *logging.Logger
}

func NewHandler(exporter *Exporter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{exporter: exporter, logger: logger}
}

// Export handles POST /admin/reservations/export?from=&to=.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.exporter.Export(r.Context(), q.Get("from"), q.Get("to"))
	switch {
	case err == nil:
		respond.JSON(w, http.StatusOK, result)
	case errors.Is(err, ErrNotConfigured):
		respond.Error(w, http.StatusServiceUnavailable, respond.CodeUnavailable, "export bucket is not configured")
	case errors.Is(err, ErrInvalidRange):
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
	default:
		h.logger.Error("reservation export failed", "error", err)
		respond.Internal(w)
	}
}
