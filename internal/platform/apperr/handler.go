package apperr

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type errorBody struct {
	Error *Error `json:"error"`
}

// HTTPErrorHandler translates errors into the structured response body
// at the request boundary. Expected failures (*apperr.Error) keep their
// status and code; echo HTTP errors are mapped onto the taxonomy; any
// other error becomes an opaque internal error so store failures never
// leak detail to the caller.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		ae := From(err)
		if ae == nil {
			if he, ok := err.(*echo.HTTPError); ok {
				ae = fromHTTPError(he)
			} else {
				logger.Error().Err(err).
					Str("path", c.Request().URL.Path).
					Msg("unhandled error")
				ae = Internal("internal server error")
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(ae.Status)
			return
		}
		_ = c.JSON(ae.Status, errorBody{Error: ae})
	}
}

func fromHTTPError(he *echo.HTTPError) *Error {
	msg, _ := he.Message.(string)
	if msg == "" {
		msg = http.StatusText(he.Code)
	}
	switch he.Code {
	case http.StatusBadRequest:
		return Validation("%s", msg)
	case http.StatusUnauthorized:
		return Unauthorized("%s", msg)
	case http.StatusForbidden:
		return Forbidden("%s", msg)
	case http.StatusNotFound:
		return NotFound("%s", msg)
	case http.StatusConflict:
		return Conflict("%s", msg)
	default:
		return &Error{Code: CodeInternal, Status: he.Code, Message: msg}
	}
}
