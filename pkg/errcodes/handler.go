package errcodes

import (
	"fmt"
	"net/http"

	"github.com/iancoleman/strcase"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/errutils"
)

type errorPayload struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Handle is the echo error handler. Every error is rendered as
// {"error":{"code","message","status_code"}}; anything that isn't an *Error or
// an *echo.HTTPError becomes a 500.
func (h *Handler) Handle(err error, c echo.Context) {
	log := logger.FromEchoContext(c)

	if errutils.IsIgnorableErr(err) {
		log.Err(err).Warn("broken pipe")
		return
	}

	payload := toPayload(err)

	switch {
	case payload.StatusCode >= http.StatusInternalServerError:
		log.Err(err).Error("server error")
	case payload.StatusCode == http.StatusUnauthorized, payload.StatusCode == http.StatusTooManyRequests:
		log.Err(err).Info("request rejected")
	}

	if c.Response().Committed {
		return
	}

	if err := c.JSON(payload.StatusCode, errorResponse{payload}); err != nil {
		log.Err(errors.WithStack(err)).Error("error handler json error")
	}
}

func toPayload(err error) errorPayload {
	var e *Error
	if errors.As(err, &e) {
		return errorPayload{Code: e.Code, Message: e.Message, StatusCode: e.HTTPCode}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
		msg := fmt.Sprint(he.Message)
		return errorPayload{Code: strcase.ToSnake(msg), Message: msg, StatusCode: he.Code}
	}

	return errorPayload{
		Code:       "internal_server_error",
		Message:    "Internal Server Error",
		StatusCode: http.StatusInternalServerError,
	}
}
