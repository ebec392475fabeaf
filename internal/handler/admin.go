package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-reservation/internal/engine"
	"github.com/iliyamo/cinema-seat-reservation/internal/utils"
)

// AdminHandler exposes operator-only endpoints: issuing an admin token and
// the destructive full-state reset.
type AdminHandler struct {
	engine       *engine.Engine
	passwordHash string
	jwtSecret    string
	tokenTTLMin  int
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(eng *engine.Engine, passwordHash, jwtSecret string, tokenTTLMin int) *AdminHandler {
	return &AdminHandler{
		engine:       eng,
		passwordHash: passwordHash,
		jwtSecret:    jwtSecret,
		tokenTTLMin:  tokenTTLMin,
	}
}

type adminLoginRequest struct {
	Password string `json:"password"`
}

// Login handles POST /admin/login. The admin password is a single shared
// secret, not a per-user account — there is exactly one operator role in
// this service.
func (h *AdminHandler) Login(c echo.Context) error {
	var req adminLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Password == "" || !utils.VerifyPassword(h.passwordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := utils.NewAdminToken(h.jwtSecret, h.tokenTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token":      token.Token,
		"expires_at": token.Exp.Format(rfc3339Nano),
	})
}

// Reset handles POST /reset. It is gated behind AdminAuth middleware.
func (h *AdminHandler) Reset(c echo.Context) error {
	summary, err := h.engine.ResetAll(c.Request().Context())
	if err != nil {
		return writeEngineError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":          "reset complete",
		"holds_cleared":    summary.HoldsCleared,
		"bookings_cleared": summary.BookingsCleared,
		"seats_reset":      summary.SeatsReset,
	})
}
