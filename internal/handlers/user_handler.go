package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-midea/storysync/internal/middleware"
	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/repositories"
)

const deviceHeader = "X-Device-ID"

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository repositories.UserRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo}
}

// RegisterUserRoutes registers user-related routes. admin guards account moderation.
func (h *UserHandler) RegisterUserRoutes(g *echo.Group, admin echo.MiddlewareFunc) {
	g.GET("/users", h.GetUsers)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/by-username/:username", h.GetUserByUsername)
	g.GET("/users/:id", h.GetUser)
	g.POST("/users", h.CreateUser)
	g.POST("/users/me/login", h.RecordLogin)
	g.POST("/users/:id/suspend", h.SuspendUser, admin)
	g.DELETE("/users/:id/suspend", h.UnsuspendUser, admin)
}

func (h *UserHandler) GetUsers(c echo.Context) error {
	req, err := bindPage(c)
	if err != nil {
		return err
	}
	page, err := h.userRepository.FetchPage(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusOK, page)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.userRepository.FetchByID(c.Request().Context(), c.Param("id"), forceParam(c))
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"user": userView(c, user)})
}

func (h *UserHandler) GetUserByUsername(c echo.Context) error {
	user, err := h.userRepository.FetchByUsername(c.Request().Context(), c.Param("username"), forceParam(c))
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"user": userView(c, user)})
}

// userView returns the full record to the user themselves and the compact profile to everyone else.
func userView(c echo.Context, user models.User) interface{} {
	if middleware.ViewerID(c) == user.ID {
		return user
	}
	return user.ToCompact()
}

// SearchUsers finds users whose username starts with the "q" query parameter
func (h *UserHandler) SearchUsers(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	users, err := h.userRepository.SearchByUsernamePrefix(c.Request().Context(), c.QueryParam("q"), limit)
	if err != nil {
		return httpError(err)
	}
	compact := make([]models.UserCompact, len(users))
	for i, u := range users {
		compact[i] = u.ToCompact()
	}
	return ok(c, http.StatusOK, echo.Map{"users": compact})
}

// CreateUser registers the viewer's own account. A body id other than the viewer's is
// rejected, and an existing account is never replaced.
func (h *UserHandler) CreateUser(c echo.Context) error {
	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}
	var req models.CreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.ID != "" && req.ID != viewer {
		return echo.NewHTTPError(http.StatusForbidden, "Cannot create an account for another user")
	}

	ctx := c.Request().Context()
	if _, err := h.userRepository.FetchByID(ctx, viewer, true); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "User already registered")
	} else if !errors.Is(err, models.ErrNotFound) {
		return httpError(err)
	}

	user := models.NewUser(models.Profile{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		AvatarURL:   req.AvatarURL,
		Bio:         req.Bio,
	}, time.Now())
	user.ID = viewer
	user.Metadata.IsPrivate = req.IsPrivate

	created, err := h.userRepository.Push(ctx, user)
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusCreated, echo.Map{"user": created})
}

func (h *UserHandler) RecordLogin(c echo.Context) error {
	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}
	user, err := h.userRepository.RecordLogin(c.Request().Context(), viewer, c.Request().Header.Get(deviceHeader), c.RealIP())
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"user": user})
}

func (h *UserHandler) SuspendUser(c echo.Context) error {
	var req models.SuspendUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.userRepository.Suspend(c.Request().Context(), c.Param("id"), req.Reason, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"user": user})
}

func (h *UserHandler) UnsuspendUser(c echo.Context) error {
	user, err := h.userRepository.Unsuspend(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"user": user})
}
