package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-reservation/internal/engine"
	"github.com/iliyamo/cinema-seat-reservation/internal/model"
)

// ShowHandler exposes the show-lifecycle and seat-status endpoints.
type ShowHandler struct {
	engine *engine.Engine
}

// NewShowHandler constructs a ShowHandler bound to eng.
func NewShowHandler(eng *engine.Engine) *ShowHandler {
	return &ShowHandler{engine: eng}
}

type initializeShowRequest struct {
	SeatIDs []string `json:"seat_ids"`
}

// Initialize handles POST /shows/:show_id/initialize.
func (h *ShowHandler) Initialize(c echo.Context) error {
	showID := c.Param("show_id")
	if showID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}

	var req initializeShowRequest
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

	if err := h.engine.InitializeShow(c.Request().Context(), showID, clean); err != nil {
		return writeEngineError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "show initialized",
		"show_id":    showID,
		"seat_count": len(clean),
	})
}

// SeatStatus handles GET /shows/:show_id/seats.
func (h *ShowHandler) SeatStatus(c echo.Context) error {
	showID := c.Param("show_id")
	if showID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}

	summary, err := h.engine.GetSeatStatus(c.Request().Context(), showID)
	if err != nil {
		return writeEngineError(c, err)
	}

	seats := make([]echo.Map, 0, len(summary.Seats))
	for _, seat := range summary.Seats {
		detail := echo.Map{
			"seat_id": seat.SeatID,
			"status":  strings.ToLower(string(seat.Status)),
		}
		if seat.Status == model.SeatHeld && seat.HoldExpiresAt != nil {
			detail["hold_expires_at"] = seat.HoldExpiresAt.Format(rfc3339Nano)
		}
		seats = append(seats, detail)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_seats":     summary.TotalSeats,
		"available_seats": summary.AvailableSeats,
		"held_seats":      summary.HeldSeats,
		"booked_seats":    summary.BookedSeats,
		"seats":           seats,
	})
}

const rfc3339Nano = "2006-01-02T15:04:05.999999999Z07:00"
