package router

import (
	"log"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/anonto42/nano-midea/storysync/internal/cache"
	"github.com/anonto42/nano-midea/storysync/internal/handlers"
	"github.com/anonto42/nano-midea/storysync/internal/repositories"
)

// Repositories bundles what the routes are served from.
type Repositories struct {
	Stories   repositories.StoryRepository
	Posts     repositories.PostRepository
	Users     repositories.UserRepository
	Reactions repositories.ReactionRepository
	Cache     *cache.Store
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.RequestLogger())
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes. auth resolves the viewer for /api/v1;
// admin guards moderation and cache administration.
func SetupRoutes(e *echo.Echo, repos Repositories, auth, admin echo.MiddlewareFunc) {
	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	api := e.Group("/api/v1")
	api.Use(auth)

	userHandler := handlers.NewUserHandler(repos.Users)
	userHandler.RegisterUserRoutes(api, admin)
	log.Println("User routes configured.")

	storyHandler := handlers.NewStoryHandler(repos.Stories)
	storyHandler.RegisterStoryRoutes(api)
	log.Println("Story routes configured.")

	postHandler := handlers.NewPostHandler(repos.Posts)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	reactionHandler := handlers.NewReactionHandler(repos.Reactions)
	reactionHandler.RegisterReactionRoutes(api)
	log.Println("Reaction routes configured.")

	feedHandler := handlers.NewFeedHandler(repos.Posts, repos.Stories, repos.Reactions)
	feedHandler.RegisterFeedRoutes(api)
	log.Println("Feed routes configured.")

	cacheHandler := handlers.NewCacheHandler(repos.Cache, repos.Stories, repos.Users)
	cacheHandler.RegisterCacheRoutes(api, admin)
	log.Println("Cache routes configured.")

	log.Println("All routes configured.")
}
