package timeslots

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-reservation/internal/http/respond"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// Handler handles HTTP requests for time slots
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new time slot handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Available handles GET /timeslots?doctorId=&date=
func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	doctorID, err := strconv.ParseInt(q.Get("doctorId"), 10, 64)
	if err != nil || doctorID <= 0 {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "doctorId is required")
		return
	}
	date := q.Get("date")
	if date == "" {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "date is required")
		return
	}

	slots, err := h.service.FindAvailable(r.Context(), doctorID, date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, slots)
}

// List handles GET /admin/timeslots?doctorId=&date=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter Filter
	if raw := q.Get("doctorId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "doctorId must be a positive integer")
			return
		}
		filter.DoctorID = id
	}
	filter.Date = q.Get("date")

	slots, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if slots == nil {
		slots = []*TimeSlot{}
	}
	respond.JSON(w, http.StatusOK, slots)
}

// Close handles PUT /admin/timeslots/{id}/close
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	slot, err := h.service.Close(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, StatusResponse{TimeSlotID: slot.ID, Status: slot.Status})
}

// Open handles PUT /admin/timeslots/{id}/open
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	slot, err := h.service.Open(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, StatusResponse{TimeSlotID: slot.ID, Status: slot.Status})
}

// Generate handles POST /admin/timeslots/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "invalid request body")
		return
	}
	created, err := h.service.Generate(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, GenerateResponse{Created: created})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTimeSlotNotFound):
		respond.Error(w, http.StatusNotFound, "TIME_SLOT_NOT_FOUND", err.Error())
	case errors.Is(err, ErrTimeSlotHasReservation):
		respond.Error(w, http.StatusConflict, "TIME_SLOT_HAS_RESERVATION", err.Error())
	case errors.Is(err, ErrUnknownDoctor):
		respond.Error(w, http.StatusNotFound, "DOCTOR_NOT_FOUND", err.Error())
	case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidRange), errors.Is(err, ErrInvalidWindow),
		errors.Is(err, ErrDoctorRequired), errors.Is(err, ErrInvalidWeekdays):
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
	default:
		h.logger.Error("time slot request failed", "error", err)
		respond.Internal(w)
	}
}
