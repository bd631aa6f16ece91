package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Middleware admits requests carrying either a valid X-Admin-Secret
// header or a Bearer JWT previously issued by IssueToken.
func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if secret := c.Request().Header.Get("X-Admin-Secret"); secret != "" {
			if err := VerifyAdminSecret(secret); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid admin secret")
			}
			return next(c)
		}

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing credentials")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
		}

		sub, err := ParseToken(parts[1])
		if err != nil || sub != "admin" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}
		return next(c)
	}
}
