package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auction-engine/internal/service"
)

var errBadID = errors.New("invalid id")

// statusFor maps a service failure kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidBid):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": kind, "message": text}.  Storage failure
// details are logged, not returned.
func respondError(c echo.Context, err error) error {
	status := statusFor(err)
	kind := service.Kind(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		if kind == "" {
			kind = "internal_error"
		}
		msg = "internal error"
	}
	return c.JSON(status, echo.Map{"error": kind, "message": msg})
}

func badRequest(c echo.Context, kind, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": kind, "message": msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "authentication required"})
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errBadID
	}
	return id, nil
}
