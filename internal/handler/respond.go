package handler // handler defines http handlers

import (
	"context"  // per-request deadlines
	"errors"   // sentinel matching
	"net/http" // HTTP status codes
	"time"     // timeout durations

	"github.com/labstack/echo/v4" // Echo context and JSON responses

	"github.com/iliyamo/tutoring-marketplace/internal/service" // service error sentinels
)

// requestTimeout bounds every store round trip started by a handler.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// fail maps a service error to its HTTP status. Unexpected errors are
// logged and reported as a bare "server error".
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusBadRequest, echo.Map{"msg": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusUnauthorized, echo.Map{"msg": service.ErrForbidden.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"msg": err.Error()})
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"msg": "server error"})
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"msg": "invalid body"})
}
