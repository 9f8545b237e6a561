package errcodes

import (
	"context"
	"fmt"
	"net/http"

	"github.com/iancoleman/strcase"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/errutils"
)

// ErrorResponse is the body of every error the API returns.
type ErrorResponse struct {
	Error ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

type HandlerOption func(*Handler)

// WithUnavailable makes errors matched by fn render as 503s, so clients can
// retry when the store is temporarily locked.
func WithUnavailable(fn func(error) bool) HandlerOption {
	return func(h *Handler) {
		h.unavailable = fn
	}
}

type Handler struct {
	unavailable func(error) bool
}

func NewHandler(opts ...HandlerOption) *Handler {
	h := &Handler{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle is an echo.HTTPErrorHandler. *Error values render with their own
// status and code, echo errors keep theirs, and anything else is a logged 500.
func (h *Handler) Handle(err error, c echo.Context) {
	log := logger.FromEchoContext(c)

	if errutils.IsIgnorableErr(err) || errors.Is(err, context.Canceled) {
		log.Err(err).Warn("client went away")
		return
	}
	if c.Response().Committed {
		log.Err(err).Warn("error after response was written")
		return
	}

	resp := h.payload(err)
	switch resp.Error.StatusCode {
	case http.StatusInternalServerError:
		log.Err(err).Error("server error")
	case http.StatusServiceUnavailable:
		log.Err(err).Warn("store busy")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(resp.Error.StatusCode)
	} else {
		err = c.JSON(resp.Error.StatusCode, resp)
	}
	if err != nil {
		log.Err(errors.WithStack(err)).Error("error handler json error")
	}
}

func (h *Handler) payload(err error) ErrorResponse {
	var e *Error
	if errors.As(err, &e) {
		return ErrorResponse{ErrorPayload{e.Code, e.Message, e.HTTPCode}}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = fmt.Sprint(he.Message)
		}
		return ErrorResponse{ErrorPayload{strcase.ToSnake(msg), msg, he.Code}}
	}

	if h.unavailable != nil && h.unavailable(err) {
		return ErrorResponse{ErrorPayload{
			"store_busy",
			"The database is busy. Try again shortly.",
			http.StatusServiceUnavailable,
		}}
	}

	return ErrorResponse{ErrorPayload{
		"internal_server_error",
		"Internal Server Error",
		http.StatusInternalServerError,
	}}
}
