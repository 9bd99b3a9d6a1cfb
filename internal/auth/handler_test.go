package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-reservation/internal/http/respond"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	svc, _ := newTestService(t)
	return NewHandler(svc, CookieOptions{Name: "token"}, logging.New("error"))
}

func TestHandlerRegisterAndLogin(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/register",
		strings.NewReader(`{"email":"pat@example.com","password":"password123"}`)))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"username":"pat@example.com","password":"password123"}`)))
	require.Equal(t, http.StatusNoContent, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "token", c.Name)
	assert.NotEmpty(t, c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)
}

func TestHandlerRegisterDuplicate(t *testing.T) {
	h := newTestHandler(t)
	body := `{"email":"pat@example.com","password":"password123"}`

	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(body)))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(body)))
	require.Equal(t, http.StatusConflict, rec.Code)

	var errBody respond.ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errBody))
	assert.Equal(t, "EMAIL_ALREADY_REGISTERED", errBody.Error)
}

func TestHandlerLoginBadCredentials(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"username":"ghost@example.com","password":"password123"}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var errBody respond.ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errBody))
	assert.Equal(t, respond.CodeInvalidCredentials, errBody.Error)
	assert.Empty(t, rec.Result().Cookies())
}

func TestHandlerBadJSON(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerLogoutClearsCookie(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestHandlerMe(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req = req.WithContext(WithPrincipal(context.Background(), Principal{UserID: 1, Email: "pat@example.com", Role: RoleUser}))
	rec = httptest.NewRecorder()
	h.Me(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "pat@example.com", body["username"])
	assert.Equal(t, "USER", body["role"])
}
