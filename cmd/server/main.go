package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-midea/storysync/internal/cache"
	job "github.com/anonto42/nano-midea/storysync/internal/jobs"
	"github.com/anonto42/nano-midea/storysync/internal/middleware"
	"github.com/anonto42/nano-midea/storysync/internal/remote"
	"github.com/anonto42/nano-midea/storysync/internal/repositories"
	"github.com/anonto42/nano-midea/storysync/internal/router"
	"github.com/anonto42/nano-midea/storysync/internal/validators"
	"github.com/anonto42/nano-midea/storysync/pkg/config"
	"github.com/anonto42/nano-midea/storysync/pkg/firebase"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	// Initialize Firebase when auth or the remote store needs it
	ctx := context.Background()
	var firebaseApp *firebase.App
	if cfg.AuthMode == config.AuthFirebase || cfg.RemoteBackend == config.RemoteFirestore {
		firebaseApp, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.RemoteBackend == config.RemoteFirestore)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		defer firebaseApp.Close()
	}

	store := remoteStore(cfg, db, firebaseApp)
	deps := repositories.Dependencies{
		Remote:               store,
		Cache:                cache.New(db.Cache),
		RemoteTimeout:        cfg.RemoteTimeout,
		PageSize:             cfg.PageSize,
		UserCacheLimit:       cfg.UserCacheLimit,
		HydrationConcurrency: cfg.HydrationConcurrency,
	}
	users := repositories.NewUserRepository(deps)
	repos := router.Repositories{
		Stories:   repositories.NewStoryRepository(deps, users),
		Posts:     repositories.NewPostRepository(deps, users),
		Users:     users,
		Reactions: repositories.NewReactionRepository(deps),
		Cache:     deps.Cache,
	}

	// cron jobs
	maintenance, err := job.Schedule(cfg.CacheSweepSchedule, job.NewCacheMaintenanceJob(repos.Stories, repos.Users))
	if err != nil {
		log.Fatalf("Invalid CACHE_SWEEP_SCHEDULE: %v", err)
	}
	if maintenance != nil {
		defer maintenance.Stop()
		log.Printf("Cache maintenance scheduled (%s)", cfg.CacheSweepSchedule)
	}

	// Create Echo instance
	e := echo.New()
	e.Validator = validators.NewValidator()
	router.SetupMiddleware(e)
	if len(cfg.AdminIDs) == 0 {
		log.Println("ADMIN_IDS is empty; moderation and cache routes will reject every caller.")
	}
	router.SetupRoutes(e, repos, authMiddleware(cfg, firebaseApp), middleware.AdminOnly(cfg.AdminIDs...))

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	gracefulShutdown(e)
}

func remoteStore(cfg *config.Config, db *config.DB, app *firebase.App) remote.Store {
	switch cfg.RemoteBackend {
	case config.RemoteMongo:
		log.Printf("Remote store: MongoDB (%s)", cfg.MongoDatabase)
		return remote.NewMongoStore(db.Mongo, cfg.MongoDatabase)
	case config.RemoteFirestore:
		log.Println("Remote store: Firestore")
		return remote.NewFirestoreStore(app.Firestore)
	default:
		log.Println("Remote store: in-memory (data is lost on exit)")
		return remote.NewMemoryStore()
	}
}

func authMiddleware(cfg *config.Config, app *firebase.App) echo.MiddlewareFunc {
	switch cfg.AuthMode {
	case config.AuthFirebase:
		return middleware.FirebaseAuthMiddleware(app.AuthClient)
	case config.AuthNone:
		log.Println("Authentication disabled; trusting the " + middleware.ViewerHeader + " header.")
		return middleware.HeaderViewerMiddleware()
	default:
		return middleware.JWTAuthMiddleware(cfg.JWTSecret)
	}
}

// gracefulShutdown stops the server on SIGINT/SIGTERM; the deferred closers in main release the stores.
func gracefulShutdown(e *echo.Echo) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}
	log.Println("Server shutdown complete.")
}
