package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/remote"
)

// pointSource wires one entity type into fetchByID.
type pointSource[T any] struct {
	entity     string
	fromCache  func(ctx context.Context, id string) (T, error)
	fromRemote func(ctx context.Context, id string) (T, error)
	// onHit runs after a cache hit, e.g. to refresh recency.
	onHit func(ctx context.Context, item T)
	save  func(ctx context.Context, items []T)
	evict func(ctx context.Context, id string)
}

// fetchByID reads cache-first. On a miss or force it reads the remote store and caches
// the result. A confirmed remote absence evicts the cached row; a transient remote
// failure falls back to the cached row when one exists.
func fetchByID[T any](ctx context.Context, src pointSource[T], id string, force bool) (T, error) {
	var zero T
	if err := requireID("id", id); err != nil {
		return zero, err
	}

	if !force {
		item, err := src.fromCache(ctx, id)
		if err == nil {
			if src.onHit != nil {
				src.onHit(ctx, item)
			}
			return item, nil
		}
		if !isNotFound(err) {
			slog.Warn("cache read failed", "entity", src.entity, "id", id, "error", err)
		}
	}

	item, err := src.fromRemote(ctx, id)
	switch {
	case err == nil:
		src.save(ctx, []T{item})
		return item, nil
	case isNotFound(err):
		if src.evict != nil {
			src.evict(ctx, id)
		}
		return zero, err
	case isTransient(err):
		cached, cerr := src.fromCache(ctx, id)
		if cerr != nil {
			return zero, err
		}
		slog.Warn("remote unavailable, serving cached copy", "entity", src.entity, "id", id, "error", err)
		return cached, nil
	default:
		return zero, err
	}
}

// pageSource wires one entity type into fetchPage.
type pageSource[T any] struct {
	entity     string
	size       int
	query      remote.Query
	fromCache  func(ctx context.Context, limit, offset int) ([]T, error)
	fromRemote func(ctx context.Context, q remote.Query) ([]T, error)
	save       func(ctx context.Context, items []T)
	position   func(T) (string, time.Time)
}

// fetchPage serves page 0 from the cache when it holds a full page. Otherwise it queries
// the remote store after the request cursor, or at the page offset when no cursor is
// given, and caches the result. A transient remote failure falls back to the cached
// rows at the page offset.
func fetchPage[T any](ctx context.Context, src pageSource[T], req PageRequest) (Page[T], error) {
	if req.Page < 0 {
		return Page[T]{}, models.NewValidationError("page", "must not be negative")
	}
	size := req.Size
	if size <= 0 {
		size = src.size
	}
	after, err := decodeCursor(req.Cursor)
	if err != nil {
		return Page[T]{}, err
	}

	if !req.Force && req.Page == 0 {
		items, err := src.fromCache(ctx, size, 0)
		if err != nil {
			slog.Warn("cache page read failed", "entity", src.entity, "error", err)
		} else if len(items) == size {
			return newPage(items, size, src.position), nil
		}
	}

	q := src.query
	q.Limit = size
	if req.Page > 0 {
		if after != nil {
			q.After = after
		} else {
			q.Offset = req.Page * size
		}
	}

	items, err := src.fromRemote(ctx, q)
	if err != nil {
		if !isTransient(err) {
			return Page[T]{}, err
		}
		cached, cerr := src.fromCache(ctx, size, req.Page*size)
		if cerr != nil || len(cached) == 0 {
			return Page[T]{}, err
		}
		slog.Warn("remote unavailable, serving cached page", "entity", src.entity, "page", req.Page, "error", err)
		return newPage(cached, size, src.position), nil
	}

	src.save(ctx, items)
	return newPage(items, size, src.position), nil
}

// listSource wires one foreign-key scan into fetchList.
type listSource[T any] struct {
	entity     string
	key        string
	fromCache  func(ctx context.Context) ([]T, error)
	fromRemote func(ctx context.Context) ([]T, error)
	save       func(ctx context.Context, items []T)
}

// fetchList reads cache-first; an empty cache or force goes to the remote store, and a
// transient remote failure falls back to whatever is cached.
func fetchList[T any](ctx context.Context, src listSource[T], force bool) ([]T, error) {
	var cached []T
	var cerr error
	if !force {
		cached, cerr = src.fromCache(ctx)
		if cerr == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	items, err := src.fromRemote(ctx)
	if err != nil {
		if !isTransient(err) {
			return nil, err
		}
		if force {
			cached, cerr = src.fromCache(ctx)
		}
		if cerr != nil || len(cached) == 0 {
			return nil, err
		}
		slog.Warn("remote unavailable, serving cached list", "entity", src.entity, "key", src.key, "error", err)
		return cached, nil
	}

	src.save(ctx, items)
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// queryRemote runs q under the remote timeout and decodes every snapshot.
func queryRemote[T any](ctx context.Context, d Dependencies, coll remote.Collection, q remote.Query, decode func(string, remote.Document) T, op string) ([]T, error) {
	rctx, cancel := d.remoteCtx(ctx)
	defer cancel()
	snaps, err := coll.Query(rctx, q)
	if err != nil {
		return nil, translate(err, op)
	}
	out := make([]T, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, decode(s.ID, s.Data))
	}
	return out, nil
}

// getRemote reads one document under the remote timeout.
func getRemote[T any](ctx context.Context, d Dependencies, coll remote.Collection, id string, decode func(string, remote.Document) T, op string) (T, error) {
	var zero T
	rctx, cancel := d.remoteCtx(ctx)
	defer cancel()
	doc, err := coll.Get(rctx, id)
	if err != nil {
		return zero, translate(err, op)
	}
	return decode(id, doc), nil
}

// remoteCall runs fn under the remote timeout and translates its error.
func remoteCall(ctx context.Context, d Dependencies, op string, fn func(ctx context.Context) error) error {
	rctx, cancel := d.remoteCtx(ctx)
	defer cancel()
	return translate(fn(rctx), op)
}

// logCacheErr records a cache failure on a path where the remote result stands.
func logCacheErr(entity, action string, err error) {
	if err != nil && !isNotFound(err) {
		slog.Warn("cache write failed", "entity", entity, "action", action, "error", err)
	}
}
