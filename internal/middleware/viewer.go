package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const viewerKey = "viewerID"

// ViewerHeader carries the viewer id when authentication is disabled.
const ViewerHeader = "X-Viewer-ID"

// ViewerID returns the authenticated viewer id, or "" for anonymous requests.
func ViewerID(c echo.Context) string {
	id, _ := c.Get(viewerKey).(string)
	return id
}

func setViewer(c echo.Context, id string) {
	c.Set(viewerKey, id)
}

// HeaderViewerMiddleware trusts the X-Viewer-ID header. Only for local use without auth.
func HeaderViewerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			setViewer(c, strings.TrimSpace(c.Request().Header.Get(ViewerHeader)))
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
	}

	// Expecting "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
	}
	return parts[1], nil
}
