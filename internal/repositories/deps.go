package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/storysync/internal/cache"
	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/remote"
	"github.com/anonto42/nano-midea/storysync/internal/validators"
)

// Defaults applied to zero-valued Dependencies fields.
const (
	DefaultRemoteTimeout        = 10 * time.Second
	DefaultPageSize             = 20
	DefaultUserCacheLimit       = 100
	DefaultHydrationConcurrency = 8

	// foreignKeyLimit caps foreign-key scans such as stories by author.
	foreignKeyLimit = 100
)

// Dependencies are the store handles and settings shared by every repository.
// They are created once at startup and closed by the caller at shutdown.
type Dependencies struct {
	Remote               remote.Store
	Cache                *cache.Store
	Clock                func() time.Time
	RemoteTimeout        time.Duration
	PageSize             int
	UserCacheLimit       int
	HydrationConcurrency int
}

var validate = validators.NewValidator()

func (d Dependencies) withDefaults() Dependencies {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.RemoteTimeout <= 0 {
		d.RemoteTimeout = DefaultRemoteTimeout
	}
	if d.PageSize <= 0 {
		d.PageSize = DefaultPageSize
	}
	if d.UserCacheLimit <= 0 {
		d.UserCacheLimit = DefaultUserCacheLimit
	}
	if d.HydrationConcurrency <= 0 {
		d.HydrationConcurrency = DefaultHydrationConcurrency
	}
	return d
}

func (d Dependencies) now() time.Time {
	return models.Timestamp(d.Clock())
}

// remoteCtx bounds one remote call.
func (d Dependencies) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.RemoteTimeout)
}
