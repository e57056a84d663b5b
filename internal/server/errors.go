package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// jsonErrorHandler renders router 404s, middleware rejections and handler
// errors as ErrorResponse. Unexpected errors are logged and hidden.
func jsonErrorHandler(logger *logrus.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		} else {
			logger.WithError(err).WithField("path", c.Path()).Error("unhandled error")
		}

		msg := http.StatusText(code)
		if code == http.StatusInternalServerError {
			msg = "internal server error"
		}
		_ = c.JSON(code, ErrorResponse{Error: msg, Code: code})
	}
}
