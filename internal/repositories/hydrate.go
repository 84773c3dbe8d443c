package repositories

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/anonto42/nano-midea/storysync/internal/models"
)

// AuthorFetcher resolves a user by id.
type AuthorFetcher interface {
	FetchByID(ctx context.Context, id string, force bool) (models.User, error)
}

// HydrateAuthors joins each item with its author. Distinct authors are fetched
// concurrently, at most concurrency at a time. Items whose author cannot be resolved
// are dropped; the order of the remaining items is kept.
func HydrateAuthors[T any, J any](
	ctx context.Context,
	users AuthorFetcher,
	items []T,
	authorOf func(T) string,
	join func(T, models.UserCompact) J,
	concurrency int,
) []J {
	if concurrency <= 0 {
		concurrency = DefaultHydrationConcurrency
	}

	seen := map[string]bool{}
	var ids []string
	for _, it := range items {
		if id := authorOf(it); id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	var mu sync.Mutex
	authors := make(map[string]models.UserCompact, len(ids))

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for _, id := range ids {
		g.Go(func() error {
			u, err := users.FetchByID(ctx, id, false)
			if err != nil {
				slog.Warn("author unresolved", "author_id", id, "error", err)
				return nil
			}
			mu.Lock()
			authors[id] = u.ToCompact()
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]J, 0, len(items))
	for _, it := range items {
		if a, ok := authors[authorOf(it)]; ok {
			out = append(out, join(it, a))
		}
	}
	if dropped := len(items) - len(out); dropped > 0 {
		slog.Info("dropped items without author", "count", dropped)
	}
	return out
}
