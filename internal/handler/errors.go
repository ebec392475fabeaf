package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-reservation/internal/engine"
)

// writeEngineError maps an *engine.Error to the HTTP status and JSON body
// the external interface promises for each failure kind.
func writeEngineError(c echo.Context, err error) error {
	engErr, ok := err.(*engine.Error)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	switch engErr.Kind {
	case engine.KindShowNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": engErr.Message})
	case engine.KindHoldNotFound, engine.KindHoldExpired:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": engErr.Message})
	case engine.KindShowAlreadyExists:
		return c.JSON(http.StatusConflict, echo.Map{"error": engErr.Message})
	case engine.KindInvalidSeatIDs:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": engErr.Message})
	case engine.KindSeatsUnavailable:
		return c.JSON(http.StatusConflict, echo.Map{
			"error":             engErr.Message,
			"unavailable_seats": engErr.UnavailableSeatIDs,
		})
	case engine.KindHoldInvalidated:
		return c.JSON(http.StatusConflict, echo.Map{"error": engErr.Message})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
