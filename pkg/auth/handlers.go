package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "circulation_session"
	// CookieMaxAge is how long the cookie is valid.
	CookieMaxAge = TokenExpiry
)

type handler struct {
	authService *Service
}

// status returns whether the PIN still needs to be set up.
func (h *handler) status(c echo.Context) error {
	ctx := c.Request().Context()

	needsSetup, err := h.authService.NeedsSetup(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, StatusResponse{
		NeedsSetup: needsSetup,
	}))
}

// setup stores the first PIN and starts a session.
func (h *handler) setup(c echo.Context) error {
	ctx := c.Request().Context()

	params := PINPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if err := h.authService.SetupPIN(ctx, params.PIN); err != nil {
		return errors.WithStack(err)
	}

	token, err := h.authService.Login(ctx, params.PIN)
	if err != nil {
		return errors.WithStack(err)
	}

	return h.startSession(c, token)
}

func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()

	params := PINPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	token, err := h.authService.Login(ctx, params.PIN)
	if err != nil {
		return errors.WithStack(err)
	}

	return h.startSession(c, token)
}

func (h *handler) logout(c echo.Context) error {
	// Clear cookie by setting MaxAge to -1
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecure(c),
		SameSite: http.SameSiteLaxMode,
	})

	return errors.WithStack(c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"}))
}

// changePIN replaces the PIN. Existing sessions end, so a fresh cookie is
// issued for the caller.
func (h *handler) changePIN(c echo.Context) error {
	ctx := c.Request().Context()

	params := ChangePINPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if err := h.authService.ChangePIN(ctx, params.CurrentPIN, params.NewPIN); err != nil {
		return errors.WithStack(err)
	}

	token, err := h.authService.Login(ctx, params.NewPIN)
	if err != nil {
		return errors.WithStack(err)
	}

	return h.startSession(c, token)
}

func (h *handler) startSession(c echo.Context, token string) error {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   isSecure(c),
		SameSite: http.SameSiteLaxMode,
	})

	return errors.WithStack(c.JSON(http.StatusOK, SessionResponse{
		ExpiresAt: time.Now().Add(TokenExpiry).UTC().Format(time.RFC3339),
	}))
}

func isSecure(c echo.Context) bool {
	return c.Request().TLS != nil || c.Request().Header.Get("X-Forwarded-Proto") == "https"
}
