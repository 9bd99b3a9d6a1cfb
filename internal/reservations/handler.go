package reservations

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-reservation/internal/auth"
	"github.com/wolfman30/clinic-reservation/internal/http/respond"
	"github.com/wolfman30/clinic-reservation/internal/timeslots"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// Handler serves the reservation endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new reservation handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Create handles POST /reservations
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "invalid request body")
		return
	}

	res, err := h.service.Create(r.Context(), p, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, res)
}

// ListMine handles GET /reservations?status=
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	out, err := h.service.ListMine(r.Context(), p, r.URL.Query().Get("status"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

// Get handles GET /reservations/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	res, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// Cancel handles PATCH /reservations/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	res, err := h.service.Cancel(r.Context(), p, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, StatusResponse{ReservationID: res.ID, Status: res.Status})
}

// Search handles GET /admin/reservations
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	result, err := h.service.Search(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

// UpdateStatus handles PATCH /admin/reservations/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req StatusUpdateRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "invalid request body")
		return
	}
	res, err := h.service.UpdateStatus(r.Context(), p, id, req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// History handles GET /admin/reservations/{id}/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.History(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, entries)
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "authentication required")
	}
	return p, ok
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "invalid reservation id")
		return 0, false
	}
	return id, true
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		Date: q.Get("date"),
		From: q.Get("from"),
		To:   q.Get("to"),
		Name: q.Get("name"),
	}

	if raw := q.Get("status"); raw != "" && !strings.EqualFold(raw, "ALL") {
		for _, part := range strings.Split(raw, ",") {
			st, err := ParseStatus(part)
			if err != nil {
				return Filter{}, err
			}
			f.Statuses = append(f.Statuses, st)
		}
	}

	ints := []struct {
		key string
		dst *int64
	}{
		{"doctorId", &f.DoctorID},
		{"departmentId", &f.DepartmentID},
	}
	for _, it := range ints {
		if raw := q.Get(it.key); raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || v <= 0 {
				return Filter{}, fmt.Errorf("%w: %s must be a positive integer", ErrInvalidFilter, it.key)
			}
			*it.dst = v
		}
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return Filter{}, fmt.Errorf("%w: limit must be a non-negative integer", ErrInvalidFilter)
		}
		f.Limit = v
	}
	if raw := q.Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return Filter{}, fmt.Errorf("%w: offset must be a non-negative integer", ErrInvalidFilter)
		}
		f.Offset = v
	}
	return f, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrReservationNotFound):
		respond.Error(w, http.StatusNotFound, "RESERVATION_NOT_FOUND", err.Error())
	case errors.Is(err, timeslots.ErrTimeSlotNotFound):
		respond.Error(w, http.StatusNotFound, "TIME_SLOT_NOT_FOUND", err.Error())
	case errors.Is(err, timeslots.ErrTimeSlotAlreadyTaken):
		respond.Error(w, http.StatusConflict, "TIME_SLOT_ALREADY_TAKEN", err.Error())
	case errors.Is(err, ErrAlreadyCanceled):
		respond.Error(w, http.StatusConflict, "RESERVATION_ALREADY_CANCELED", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		respond.Error(w, http.StatusConflict, "INVALID_STATUS_TRANSITION", err.Error())
	case errors.Is(err, ErrForbidden):
		respond.Error(w, http.StatusForbidden, respond.CodeForbidden, err.Error())
	case errors.Is(err, ErrHistoryUnavailable):
		respond.Error(w, http.StatusServiceUnavailable, respond.CodeUnavailable, err.Error())
	case errors.Is(err, ErrTimeSlotRequired),
		errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrInvalidPhone),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidFilter):
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
	default:
		h.logger.Error("reservation request failed", "error", err)
		respond.Internal(w)
	}
}
