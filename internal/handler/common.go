package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"slot-swap-api/internal/swap"
)

// identity extracts the verified email placed in the context by the
// JWT middleware. An empty result means the middleware did not run or
// the token carried no email claim.
func identity(c echo.Context) string {
	if v := c.Get("email"); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeSwapErr maps the engine's typed errors onto HTTP responses.
// Storage failures deliberately collapse into a generic message so
// backend internals never reach the client.
func writeSwapErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, swap.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, swap.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, swap.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, swap.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	case errors.Is(err, swap.ErrNotAllowed):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "not allowed"})
	case errors.Is(err, swap.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "request already processed"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage failure"})
	}
}
