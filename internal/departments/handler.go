package departments

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-reservation/internal/http/respond"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// Handler handles HTTP requests for departments
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new departments handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// List handles GET /departments
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if items == nil {
		items = []*Department{}
	}
	respond.JSON(w, http.StatusOK, items)
}

// Get handles GET /departments/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
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

// Create handles POST /departments
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

// Update handles PUT /departments/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "invalid request body")
		return
	}
	d, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

// Delete handles DELETE /departments/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	respond.NoContent(w)
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
	case errors.Is(err, ErrDepartmentNotFound):
		respond.Error(w, http.StatusNotFound, "DEPARTMENT_NOT_FOUND", err.Error())
	case errors.Is(err, ErrDepartmentInUse):
		respond.Error(w, http.StatusConflict, "DEPARTMENT_IN_USE", err.Error())
	case errors.Is(err, ErrInvalidName):
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
	default:
		h.logger.Error("department request failed", "error", err)
		respond.Internal(w)
	}
}
