package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-reservation/internal/engine"
)

// HoldHandler exposes the hold-creation, confirmation and release endpoints.
type HoldHandler struct {
	engine *engine.Engine
}

// NewHoldHandler constructs a HoldHandler bound to eng.
func NewHoldHandler(eng *engine.Engine) *HoldHandler {
	return &HoldHandler{engine: eng}
}

// holdDurationSeconds accepts either a JSON number or a digit-only JSON
// string for hold_duration_seconds, matching clients that round-trip the
// value through form fields or query-style templating. Booleans and
// non-digit strings are rejected rather than silently coerced to zero.
type holdDurationSeconds int

func (d *holdDurationSeconds) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*d = 0
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*d = 0
			return nil
		}
		for _, r := range s {
			if r < '0' || r > '9' {
				return fmt.Errorf("hold_duration_seconds: not a digit-only string: %q", s)
			}
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*d = holdDurationSeconds(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("hold_duration_seconds: must be an integer or digit-only string")
	}
	*d = holdDurationSeconds(n)
	return nil
}

type holdSeatsRequest struct {
	SeatIDs             []string            `json:"seat_ids"`
	HoldDurationSeconds holdDurationSeconds `json:"hold_duration_seconds"`
}

type holdIDRequest struct {
	HoldID string `json:"hold_id"`
}

// Create handles POST /shows/:show_id/hold.
func (h *HoldHandler) Create(c echo.Context) error {
	showID := c.Param("show_id")
	if showID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}

	var req holdSeatsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(req.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}

	clean, dupIdx, emptyIdx := normalizeSeatIDs(req.SeatIDs)
	if emptyIdx != -1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids must not contain empty values"})
	}
	if dupIdx != -1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duplicate seats in request"})
	}

	result, err := h.engine.HoldSeats(c.Request().Context(), showID, clean, int(req.HoldDurationSeconds))
	if err != nil {
		return writeEngineError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"hold_id":    result.HoldID,
		"seat_ids":   result.SeatIDs,
		"expires_at": result.ExpiresAt.Format(rfc3339Nano),
	})
}

// Confirm handles POST /shows/:show_id/book.
func (h *HoldHandler) Confirm(c echo.Context) error {
	showID := c.Param("show_id")
	if showID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}

	var req holdIDRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.HoldID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hold_id is required"})
	}

	result, err := h.engine.BookHold(c.Request().Context(), showID, req.HoldID)
	if err != nil {
		return writeEngineError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"booking_id": result.BookingID,
		"seat_ids":   result.SeatIDs,
		"booked_at":  result.BookedAt.Format(rfc3339Nano),
	})
}

// Release handles POST /shows/:show_id/release-hold.
func (h *HoldHandler) Release(c echo.Context) error {
	showID := c.Param("show_id")
	if showID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}

	var req holdIDRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.HoldID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hold_id is required"})
	}

	released, err := h.engine.ReleaseHold(c.Request().Context(), showID, req.HoldID)
	if err != nil {
		return writeEngineError(c, err)
	}
	if !released {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "hold not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "hold released"})
}
