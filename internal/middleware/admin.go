package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminOnly lets through only viewers listed in adminIDs. It must run after the auth middleware.
func AdminOnly(adminIDs ...string) echo.MiddlewareFunc {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			viewer := ViewerID(c)
			if viewer == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}
			if _, ok := admins[viewer]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "Admin access required")
			}
			return next(c)
		}
	}
}
