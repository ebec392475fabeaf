package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-reservation/internal/utils"
)

// AdminAuth guards the destructive reset endpoint behind a bearer token
// issued by POST /admin/login. It is the one place in this service where
// a caller's identity matters: every customer-facing route is anonymous by
// design, but resetting all shows, holds and bookings is an operational
// action that must not be reachable by an arbitrary client.
func AdminAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := utils.ParseAdminToken(secret, raw)
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok || claims["scope"] != "admin" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token scope"})
			}

			return next(c)
		}
	}
}
