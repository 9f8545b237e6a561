package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shishobooks/circulation/pkg/binder"
	"github.com/shishobooks/circulation/pkg/errcodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEcho(t *testing.T, svc *Service) *echo.Echo {
	t.Helper()
	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	mw := NewMiddleware(svc)
	RegisterRoutesWithGroup(e.Group("/auth"), svc, mw)

	protected := e.Group("/books", mw.Authenticate)
	protected.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e
}

func doRequest(e *echo.Echo, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", CookieName)
	return nil
}

func TestHandlers_SetupLoginFlow(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	e := newTestEcho(t, svc)

	rr := doRequest(e, http.MethodGet, "/auth/status", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"needs_setup":true}`, rr.Body.String())

	rr = doRequest(e, http.MethodGet, "/books", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(e, http.MethodPost, "/auth/setup", `{"pin":"12"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doRequest(e, http.MethodPost, "/auth/setup", `{"pin":"1234"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cookie := sessionCookie(t, rr)
	assert.True(t, cookie.HttpOnly)

	rr = doRequest(e, http.MethodGet, "/books", "", cookie)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(e, http.MethodPost, "/auth/setup", `{"pin":"5555"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doRequest(e, http.MethodPost, "/auth/login", `{"pin":"0000"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(e, http.MethodPost, "/auth/login", `{"pin":"1234"}`)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHandlers_BearerToken(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	e := newTestEcho(t, svc)

	require.NoError(t, svc.SetupPIN(t.Context(), "1234"))
	token, err := svc.Login(t.Context(), "1234")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandlers_ChangePIN(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	e := newTestEcho(t, svc)

	rr := doRequest(e, http.MethodPost, "/auth/setup", `{"pin":"1234"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	oldCookie := sessionCookie(t, rr)

	rr = doRequest(e, http.MethodPost, "/auth/pin", `{"current_pin":"1234","new_pin":"9876"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(e, http.MethodPost, "/auth/pin", `{"current_pin":"1234","new_pin":"9876"}`, oldCookie)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	newCookie := sessionCookie(t, rr)

	rr = doRequest(e, http.MethodGet, "/books", "", oldCookie)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(e, http.MethodGet, "/books", "", newCookie)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(e, http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}
