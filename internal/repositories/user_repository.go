package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anonto42/nano-midea/storysync/internal/cache"
	"github.com/anonto42/nano-midea/storysync/internal/codec"
	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/remote"
)

// prefixEnd bounds a prefix range query on lowercase usernames.
const prefixEnd = "\uf8ff"

// UserRepository defines the interface for user data operations.
// The user cache is bounded: after every insert or access the least recently
// accessed rows beyond the limit are evicted.
type UserRepository interface {
	Push(ctx context.Context, user models.User) (models.User, error)
	FetchByID(ctx context.Context, id string, force bool) (models.User, error)
	FetchByUsername(ctx context.Context, username string, force bool) (models.User, error)
	SearchByUsernamePrefix(ctx context.Context, prefix string, limit int) ([]models.User, error)
	FetchPage(ctx context.Context, req PageRequest) (Page[models.User], error)
	IncrementStat(ctx context.Context, id string, stat models.UserStat, delta int64) error
	Suspend(ctx context.Context, id, reason string, duration time.Duration) (models.User, error)
	Unsuspend(ctx context.Context, id string) (models.User, error)
	RecordLogin(ctx context.Context, id, deviceID, ip string) (models.User, error)
	Delete(ctx context.Context, id string) error
	ClearCache(ctx context.Context) error
	// Trim enforces the cache bound and reports how many rows were evicted.
	Trim(ctx context.Context) (int64, error)
}

type userRepository struct {
	deps   Dependencies
	remote remote.Collection
	cache  cache.UserCache
}

func NewUserRepository(deps Dependencies) UserRepository {
	deps = deps.withDefaults()
	return &userRepository{
		deps:   deps,
		remote: deps.Remote.Collection(codec.UsersCollection),
		cache:  deps.Cache.Users,
	}
}

// Push writes the user remotely and caches it. The username must not be taken by
// another user; the check is a query made before the write, not a constraint.
func (r *userRepository) Push(ctx context.Context, user models.User) (models.User, error) {
	now := r.deps.now()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Metadata.CreatedAt.IsZero() {
		user.Metadata.CreatedAt = now
	}
	if user.Metadata.UpdatedAt.IsZero() {
		user.Metadata.UpdatedAt = user.Metadata.CreatedAt
	}
	user.Metadata.CreatedAt = models.Timestamp(user.Metadata.CreatedAt)
	user.Metadata.UpdatedAt = models.Timestamp(user.Metadata.UpdatedAt)
	if err := validate.Struct(user); err != nil {
		return models.User{}, err
	}

	taken, err := queryRemote(ctx, r.deps, r.remote, remote.Query{
		Filters: []remote.Filter{remote.Where(codec.FieldUsernameLower, remote.OpEqual, user.NormalizedUsername())},
		Limit:   2,
	}, codec.DecodeUser, "check username")
	if err != nil {
		return models.User{}, err
	}
	for _, other := range taken {
		if other.ID != user.ID {
			return models.User{}, fmt.Errorf("username %q: %w", user.Profile.Username, models.ErrConflict)
		}
	}

	err = remoteCall(ctx, r.deps, "push user", func(ctx context.Context) error {
		return r.remote.Set(ctx, user.ID, codec.EncodeUser(user))
	})
	if err != nil {
		return models.User{}, err
	}
	r.save(ctx, []models.User{user})
	return user, nil
}

func (r *userRepository) FetchByID(ctx context.Context, id string, force bool) (models.User, error) {
	return fetchByID(ctx, r.pointSource(func(ctx context.Context, id string) (models.User, error) {
		return getRemote(ctx, r.deps, r.remote, id, codec.DecodeUser, "fetch user")
	}), id, force)
}

func (r *userRepository) FetchByUsername(ctx context.Context, username string, force bool) (models.User, error) {
	key := models.NormalizeUsername(username)
	if key == "" {
		return models.User{}, models.NewValidationError("username", "must not be blank")
	}
	src := r.pointSource(func(ctx context.Context, key string) (models.User, error) {
		users, err := queryRemote(ctx, r.deps, r.remote, remote.Query{
			Filters: []remote.Filter{remote.Where(codec.FieldUsernameLower, remote.OpEqual, key)},
			Limit:   1,
		}, codec.DecodeUser, "fetch user by username")
		if err != nil {
			return models.User{}, err
		}
		if len(users) == 0 {
			return models.User{}, fmt.Errorf("fetch user by username %q: %w", key, models.ErrNotFound)
		}
		return users[0], nil
	})
	src.fromCache = r.cache.GetByUsername
	src.evict = nil
	return fetchByID(ctx, src, key, force)
}

// SearchByUsernamePrefix queries the remote store by lowercase username range and
// falls back to the cache when the remote store is unreachable.
func (r *userRepository) SearchByUsernamePrefix(ctx context.Context, prefix string, limit int) ([]models.User, error) {
	prefix = models.NormalizeUsername(prefix)
	if prefix == "" {
		return nil, models.NewValidationError("prefix", "must not be blank")
	}
	if limit <= 0 {
		limit = r.deps.PageSize
	}
	return fetchList(ctx, listSource[models.User]{
		entity: "user",
		key:    prefix,
		fromCache: func(ctx context.Context) ([]models.User, error) {
			return r.cache.SearchPrefix(ctx, prefix, limit)
		},
		fromRemote: func(ctx context.Context) ([]models.User, error) {
			return queryRemote(ctx, r.deps, r.remote, remote.Query{
				Filters: []remote.Filter{
					remote.Where(codec.FieldUsernameLower, remote.OpGreaterEqual, prefix),
					remote.Where(codec.FieldUsernameLower, remote.OpLess, prefix+prefixEnd),
				},
				OrderBy: codec.FieldUsernameLower,
				Limit:   limit,
			}, codec.DecodeUser, "search users")
		},
		save: r.save,
	}, true)
}

// FetchPage pages through users, newest accounts first.
func (r *userRepository) FetchPage(ctx context.Context, req PageRequest) (Page[models.User], error) {
	return fetchPage(ctx, pageSource[models.User]{
		entity: "user",
		size:   r.deps.PageSize,
		query: remote.Query{
			OrderBy:    codec.FieldUserCreatedAt,
			Descending: true,
		},
		fromCache: r.cache.Page,
		fromRemote: func(ctx context.Context, q remote.Query) ([]models.User, error) {
			return queryRemote(ctx, r.deps, r.remote, q, codec.DecodeUser, "fetch users")
		},
		save: r.save,
		position: func(u models.User) (string, time.Time) {
			return u.ID, u.Metadata.CreatedAt
		},
	}, req)
}

// IncrementStat changes a counter remotely and locally; the local side is applied even
// when the remote call fails and never goes below zero.
func (r *userRepository) IncrementStat(ctx context.Context, id string, stat models.UserStat, delta int64) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	if !models.IsValidUserStat(string(stat)) {
		return models.NewValidationError("stat", fmt.Sprintf("unknown user stat %q", stat))
	}
	err := remoteCall(ctx, r.deps, "increment user "+string(stat), func(ctx context.Context) error {
		return r.remote.Increment(ctx, id, codec.StatPath(string(stat)), delta)
	})
	logCacheErr("user", "increment", r.cache.IncrementField(ctx, id, string(stat), delta))
	return err
}

// Suspend suspends the account for duration; zero suspends indefinitely.
func (r *userRepository) Suspend(ctx context.Context, id, reason string, duration time.Duration) (models.User, error) {
	if strings.TrimSpace(reason) == "" {
		return models.User{}, models.NewValidationError("reason", "must not be blank")
	}
	if duration < 0 {
		return models.User{}, models.NewValidationError("duration", "must not be negative")
	}
	return r.update(ctx, id, "suspend user", func(u models.User, now time.Time) (models.User, map[string]any, error) {
		u, err := u.Suspend(reason, duration, now)
		if err != nil {
			return u, nil, err
		}
		return u, suspensionFields(u), nil
	})
}

func (r *userRepository) Unsuspend(ctx context.Context, id string) (models.User, error) {
	return r.update(ctx, id, "unsuspend user", func(u models.User, now time.Time) (models.User, map[string]any, error) {
		u = u.Unsuspend(now)
		return u, suspensionFields(u), nil
	})
}

func (r *userRepository) RecordLogin(ctx context.Context, id, deviceID, ip string) (models.User, error) {
	return r.update(ctx, id, "record login", func(u models.User, now time.Time) (models.User, map[string]any, error) {
		u = u.RecordLogin(deviceID, ip, now)
		return u, map[string]any{
			"metadata.lastLoginAt":   u.Metadata.LastLoginAt.UTC(),
			"metadata.lastDeviceId":  u.Metadata.LastDeviceID,
			"metadata.lastIpAddress": u.Metadata.LastIPAddress,
			"metadata.updatedAt":     u.Metadata.UpdatedAt,
		}, nil
	})
}

// Delete removes the user remotely, then from the cache. A remote failure leaves
// the cache untouched unless the user is gone remotely.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	err := remoteCall(ctx, r.deps, "delete user", func(ctx context.Context) error {
		return r.remote.Delete(ctx, id)
	})
	if err != nil && !isNotFound(err) {
		return err
	}
	logCacheErr("user", "delete", r.cache.DeleteByID(ctx, id))
	return err
}

func (r *userRepository) ClearCache(ctx context.Context) error {
	return r.cache.Clear(ctx)
}

func (r *userRepository) Trim(ctx context.Context) (int64, error) {
	n, err := r.cache.TrimToLimit(ctx, r.deps.UserCacheLimit)
	if n > 0 {
		slog.Debug("evicted least recently used users", "count", n)
	}
	return n, err
}

func (r *userRepository) pointSource(fromRemote func(context.Context, string) (models.User, error)) pointSource[models.User] {
	return pointSource[models.User]{
		entity:     "user",
		fromCache:  r.cache.GetByID,
		fromRemote: fromRemote,
		onHit: func(ctx context.Context, u models.User) {
			logCacheErr("user", "touch", r.cache.Touch(ctx, u.ID, r.deps.now()))
			_, err := r.Trim(ctx)
			logCacheErr("user", "trim", err)
		},
		save: r.save,
		evict: func(ctx context.Context, id string) {
			logCacheErr("user", "delete", r.cache.DeleteByID(ctx, id))
		},
	}
}

func (r *userRepository) update(ctx context.Context, id, op string, change func(models.User, time.Time) (models.User, map[string]any, error)) (models.User, error) {
	current, err := r.FetchByID(ctx, id, false)
	if err != nil {
		return models.User{}, err
	}
	updated, fields, err := change(current, r.deps.now())
	if err != nil {
		return models.User{}, err
	}

	err = remoteCall(ctx, r.deps, op, func(ctx context.Context) error {
		return r.remote.Merge(ctx, id, fields)
	})
	if err != nil {
		return models.User{}, err
	}
	r.save(ctx, []models.User{updated})
	return updated, nil
}

// save caches users as just accessed, then trims the cache to its bound.
func (r *userRepository) save(ctx context.Context, users []models.User) {
	logCacheErr("user", "upsert", r.cache.Upsert(ctx, r.deps.now(), users...))
	_, err := r.Trim(ctx)
	logCacheErr("user", "trim", err)
}

func suspensionFields(u models.User) map[string]any {
	var until any
	if u.Metadata.SuspendedUntil != nil {
		until = u.Metadata.SuspendedUntil.UTC()
	}
	return map[string]any{
		"metadata.isSuspended":      u.Metadata.IsSuspended,
		"metadata.suspensionReason": u.Metadata.SuspensionReason,
		"metadata.suspendedUntil":   until,
		"metadata.updatedAt":        u.Metadata.UpdatedAt,
	}
}
