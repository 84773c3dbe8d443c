package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-midea/storysync/internal/cache"
	"github.com/anonto42/nano-midea/storysync/internal/repositories"
)

// CacheHandler exposes local cache administration
type CacheHandler struct {
	store           *cache.Store
	storyRepository repositories.StoryRepository
	userRepository  repositories.UserRepository
}

// NewCacheHandler creates a new CacheHandler
func NewCacheHandler(store *cache.Store, storyRepo repositories.StoryRepository, userRepo repositories.UserRepository) *CacheHandler {
	return &CacheHandler{store: store, storyRepository: storyRepo, userRepository: userRepo}
}

// RegisterCacheRoutes registers cache routes. Every one of them requires admin.
func (h *CacheHandler) RegisterCacheRoutes(g *echo.Group, admin echo.MiddlewareFunc) {
	cacheGroup := g.Group("/cache", admin)
	cacheGroup.GET("", h.Stats)
	cacheGroup.DELETE("", h.Clear)
	cacheGroup.POST("/purge-expired", h.PurgeExpired)
	cacheGroup.POST("/trim", h.Trim)
}

// Stats reports the row count of every cached entity
func (h *CacheHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	counts := echo.Map{}
	for name, count := range map[string]func() (int64, error){
		"stories":   func() (int64, error) { return h.store.Stories.Count(ctx) },
		"posts":     func() (int64, error) { return h.store.Posts.Count(ctx) },
		"users":     func() (int64, error) { return h.store.Users.Count(ctx) },
		"reactions": func() (int64, error) { return h.store.Reactions.Count(ctx) },
	} {
		n, err := count()
		if err != nil {
			return httpError(err)
		}
		counts[name] = n
	}
	return ok(c, http.StatusOK, counts)
}

// Clear empties the local cache. The remote store is untouched.
func (h *CacheHandler) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	for _, clearTable := range []func() error{
		func() error { return h.store.Stories.Clear(ctx) },
		func() error { return h.store.Posts.Clear(ctx) },
		func() error { return h.store.Users.Clear(ctx) },
		func() error { return h.store.Reactions.Clear(ctx) },
	} {
		if err := clearTable(); err != nil {
			return httpError(err)
		}
	}
	return ok(c, http.StatusOK, echo.Map{"cleared": true})
}

// PurgeExpired deletes expired stories remotely and sweeps them locally
func (h *CacheHandler) PurgeExpired(c echo.Context) error {
	n, err := h.storyRepository.PurgeExpired(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"purged": n})
}

func (h *CacheHandler) Trim(c echo.Context) error {
	n, err := h.userRepository.Trim(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"evicted": n})
}
