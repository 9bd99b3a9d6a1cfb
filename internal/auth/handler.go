package auth

import (
	"errors"
	"net/http"

	"github.com/wolfman30/clinic-reservation/internal/http/respond"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// Handler serves the /auth endpoints.
type Handler struct {
	service      *Service
	logger       *logging.Logger
	cookieName   string
	cookieSecure bool
}

// CookieOptions controls the session cookie written on login.
type CookieOptions struct {
	Name   string
	Secure bool
}

// NewHandler creates a new auth handler.
func NewHandler(service *Service, cookie CookieOptions, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if cookie.Name == "" {
		cookie.Name = "token"
	}
	return &Handler{
		service:      service,
		logger:       logger,
		cookieName:   cookie.Name,
		cookieSecure: cookie.Secure,
	}
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "invalid request body")
		return
	}

	if _, err := h.service.Register(r.Context(), req); err != nil {
		h.writeError(w, err)
		return
	}
	respond.NoContent(w)
}

// Login handles POST /auth/login and sets the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "invalid request body")
		return
	}

	result, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.service.Tokens().TTL().Seconds()),
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	respond.NoContent(w)
}

// Logout handles POST /auth/logout by expiring the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	respond.NoContent(w)
}

type meResponse struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "authentication required")
		return
	}
	respond.JSON(w, http.StatusOK, meResponse{Username: principal.Email, Role: principal.Role})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword):
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
	case errors.Is(err, ErrEmailAlreadyRegistered):
		respond.Error(w, http.StatusConflict, "EMAIL_ALREADY_REGISTERED", err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, respond.CodeInvalidCredentials, "invalid username or password")
	default:
		h.logger.Error("auth request failed", "error", err)
		respond.Internal(w)
	}
}
