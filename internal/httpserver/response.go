package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type ErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
	Stack      string   `json:"stack,omitempty"`
	Success    bool     `json:"success"`
}

func respond(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Response{StatusCode: status, Data: data, Message: message, Success: true})
}

var kindStatus = []struct {
	kind   error
	status int
}{
	{service.ErrUnauthorized, http.StatusUnauthorized},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrInvalidCoupon, http.StatusNotFound},
	{service.ErrValidation, http.StatusBadRequest},
	{service.ErrInsufficientStock, http.StatusBadRequest},
	{service.ErrBelowMinimum, http.StatusBadRequest},
	{service.ErrInvalidSignature, http.StatusBadRequest},
	{service.ErrAlreadyDelivered, http.StatusBadRequest},
	{service.ErrPaymentProvider, http.StatusInternalServerError},
}

// StatusOf maps err to the status code and the message shown to the client.
// Anything unrecognised is an internal error and its text is not exposed.
func StatusOf(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, msg
	}

	var se *service.Error
	for _, ks := range kindStatus {
		if errors.Is(err, ks.kind) {
			if errors.As(err, &se) {
				return ks.status, se.Msg
			}
			return ks.status, ks.kind.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// NewErrorHandler renders every error as an ErrorResponse. The error chain is
// included as stack unless production is set.
func NewErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := StatusOf(err)
		body := ErrorResponse{StatusCode: status, Message: msg, Errors: []string{}}
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Internal != nil {
			body.Errors = append(body.Errors, he.Internal.Error())
		}
		if !production {
			body.Stack = err.Error()
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logging.FromContext(c.Request().Context()).Error("error_response_failed", "error", werr)
		}
	}
}

// failed logs err under event at a level matching its status and hands it
// back for the error handler.
func failed(l *slog.Logger, event string, err error) error {
	status, msg := StatusOf(err)
	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "reason", msg, "error", err)
	} else {
		l.Warn(event, "status", status, "reason", msg, "error", err)
	}
	return err
}

func badRequest(l *slog.Logger, event, reason string, err error) error {
	l.Warn(event, "status", http.StatusBadRequest, "reason", reason, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, reason).SetInternal(err)
}
