package doctors

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-reservation/internal/http/respond"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// Handler handles HTTP requests for doctors
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new doctors handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// List handles GET /doctors with an optional departmentId filter.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var departmentID int64
	if raw := r.URL.Query().Get("departmentId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "departmentId must be a positive integer")
			return
		}
		departmentID = id
	}
	h.list(w, r, departmentID)
}

// ListByDepartment handles GET /doctors/{departmentId}.
func (h *Handler) ListByDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r, "departmentId")
	if !ok {
		return
	}
	h.list(w, r, id)
}

// Get handles GET /doctors/id/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePathID(w, r, "id")
	if !ok {
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

// Create handles POST /doctors.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "invalid request body")
		return
	}
	d, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, d)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, departmentID int64) {
	items, err := h.service.List(r.Context(), departmentID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if items == nil {
		items = []*Doctor{}
	}
	respond.JSON(w, http.StatusOK, items)
}

func parsePathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDoctorNotFound):
		respond.Error(w, http.StatusNotFound, "DOCTOR_NOT_FOUND", err.Error())
	case errors.Is(err, ErrUnknownDepartment):
		respond.Error(w, http.StatusNotFound, "DEPARTMENT_NOT_FOUND", err.Error())
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidSpecialization), errors.Is(err, ErrDepartmentRequired):
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
	default:
		h.logger.Error("doctor request failed", "error", err)
		respond.Internal(w)
	}
}
