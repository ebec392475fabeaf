package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthStore is the minimal dependency the readiness handler needs: a way
// to verify the database connection and count how many shows exist.
type HealthStore interface {
	Ping(ctx context.Context) error
	CountShows(ctx context.Context) (int, error)
}

// Health reports process liveness only; it never touches the database.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// HealthHandler exposes the readiness check, which does touch the database.
type HealthHandler struct {
	store HealthStore
}

// NewHealthHandler constructs a HealthHandler bound to store.
func NewHealthHandler(store HealthStore) *HealthHandler {
	return &HealthHandler{store: store}
}

// Ready reports database connectivity and the current show count, mirroring
// the reference implementation's /health endpoint.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.store.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
	}
	count, err := h.store.CountShows(ctx)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":   "healthy",
		"database": "connected",
		"shows":    count,
	})
}
