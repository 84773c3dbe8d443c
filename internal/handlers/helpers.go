package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-midea/storysync/internal/middleware"
	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/repositories"
)

// noRelations is what the gateway passes to CanView. Friendships live outside this
// service, so FRIENDS and CLOSE_FRIENDS content is visible to its author only.
var noRelations = models.Relations{}

// httpError maps the repository error taxonomy onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func requireViewer(c echo.Context) (string, error) {
	viewer := middleware.ViewerID(c)
	if viewer == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return viewer, nil
}

func ok(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

// applied answers a write whose local side succeeded. A remote failure is reported as
// 202 with synced=false; any other error is mapped as usual.
func applied(c echo.Context, data interface{}, err error) error {
	if err == nil {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "synced": true, "data": data})
	}
	if errors.Is(err, models.ErrUnavailable) {
		return c.JSON(http.StatusAccepted, echo.Map{"success": true, "synced": false, "data": data})
	}
	return httpError(err)
}

func bindPage(c echo.Context) (repositories.PageRequest, error) {
	var req repositories.PageRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "Invalid pagination parameters")
	}
	return req, nil
}

func forceParam(c echo.Context) bool {
	force, _ := strconv.ParseBool(c.QueryParam("force"))
	return force
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return c.Validate(req)
}
