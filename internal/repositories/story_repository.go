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

// StoryCounter names a story counter that can be incremented.
type StoryCounter string

const (
	StoryViews   StoryCounter = "views"
	StoryShares  StoryCounter = "shares"
	StoryReplies StoryCounter = "replies"
)

// StoryRepository defines the interface for story operations
type StoryRepository interface {
	Push(ctx context.Context, story models.Story) (models.Story, error)
	FetchByID(ctx context.Context, id string, force bool) (models.Story, error)
	FetchPage(ctx context.Context, req PageRequest) (Page[models.Story], error)
	FetchByAuthor(ctx context.Context, authorID string, force bool) ([]models.Story, error)
	FetchFeed(ctx context.Context, req PageRequest) (Page[models.StoryWithAuthor], error)
	IncrementCounter(ctx context.Context, id string, counter StoryCounter) error
	EditCaption(ctx context.Context, id, caption string) (models.Story, error)
	Ban(ctx context.Context, id, reason string) (models.Story, error)
	Delete(ctx context.Context, id string) error
	Purge(ctx context.Context, id string) error
	SweepExpired(ctx context.Context) (int64, error)
	PurgeExpired(ctx context.Context) (int64, error)
	ClearCache(ctx context.Context) error
}

type storyRepository struct {
	deps   Dependencies
	remote remote.Collection
	cache  cache.StoryCache
	users  AuthorFetcher
}

// NewStoryRepository builds the story repository. users resolves authors for feeds.
func NewStoryRepository(deps Dependencies, users AuthorFetcher) StoryRepository {
	deps = deps.withDefaults()
	return &storyRepository{
		deps:   deps,
		remote: deps.Remote.Collection(codec.StoriesCollection),
		cache:  deps.Cache.Stories,
		users:  users,
	}
}

// Push writes the story remotely, then caches it and sweeps expired rows.
// A remote failure leaves the cache untouched.
func (r *storyRepository) Push(ctx context.Context, story models.Story) (models.Story, error) {
	now := r.deps.now()
	if story.ID == "" {
		story.ID = uuid.NewString()
	}
	if story.CreatedAt.IsZero() {
		story.CreatedAt = now
	}
	if story.UpdatedAt.IsZero() {
		story.UpdatedAt = story.CreatedAt
	}
	if story.ExpiresAt.IsZero() {
		story.ExpiresAt = story.CreatedAt.Add(models.StoryTTL)
	}
	story.CreatedAt = models.Timestamp(story.CreatedAt)
	story.UpdatedAt = models.Timestamp(story.UpdatedAt)
	story.ExpiresAt = models.Timestamp(story.ExpiresAt)
	if story.Stats.Reactions == nil {
		story.Stats.Reactions = map[models.ReactionType]int64{}
	}
	story.Content.Type = models.ParseContentType(string(story.Content.Type))
	story.Visibility = models.ParseVisibility(string(story.Visibility))
	if err := validate.Struct(story); err != nil {
		return models.Story{}, err
	}

	err := remoteCall(ctx, r.deps, "push story", func(ctx context.Context) error {
		return r.remote.Set(ctx, story.ID, codec.EncodeStory(story))
	})
	if err != nil {
		return models.Story{}, err
	}

	r.save(ctx, []models.Story{story})
	return story, nil
}

func (r *storyRepository) FetchByID(ctx context.Context, id string, force bool) (models.Story, error) {
	return fetchByID(ctx, pointSource[models.Story]{
		entity:    "story",
		fromCache: r.cache.GetByID,
		fromRemote: func(ctx context.Context, id string) (models.Story, error) {
			return getRemote(ctx, r.deps, r.remote, id, codec.DecodeStory, "fetch story")
		},
		save:  r.save,
		evict: r.evict,
	}, id, force)
}

// FetchPage pages through active stories, newest first.
func (r *storyRepository) FetchPage(ctx context.Context, req PageRequest) (Page[models.Story], error) {
	now := r.deps.now()
	return fetchPage(ctx, pageSource[models.Story]{
		entity: "story",
		size:   r.deps.PageSize,
		query: remote.Query{
			Filters: []remote.Filter{
				remote.Where(codec.FieldIsDeleted, remote.OpEqual, false),
				remote.Where(codec.FieldIsBanned, remote.OpEqual, false),
				remote.Where(codec.FieldExpiresAt, remote.OpGreater, now),
			},
			OrderBy:    codec.FieldCreatedAt,
			Descending: true,
		},
		fromCache: func(ctx context.Context, limit, offset int) ([]models.Story, error) {
			return r.cache.Page(ctx, limit, offset, now)
		},
		fromRemote: func(ctx context.Context, q remote.Query) ([]models.Story, error) {
			return queryRemote(ctx, r.deps, r.remote, q, codec.DecodeStory, "fetch stories")
		},
		save:     r.save,
		position: storyPosition,
	}, req)
}

func (r *storyRepository) FetchByAuthor(ctx context.Context, authorID string, force bool) ([]models.Story, error) {
	if err := requireID("author_id", authorID); err != nil {
		return nil, err
	}
	return fetchList(ctx, listSource[models.Story]{
		entity: "story",
		key:    authorID,
		fromCache: func(ctx context.Context) ([]models.Story, error) {
			return r.cache.ByAuthor(ctx, authorID, foreignKeyLimit)
		},
		fromRemote: func(ctx context.Context) ([]models.Story, error) {
			return queryRemote(ctx, r.deps, r.remote, remote.Query{
				Filters:    []remote.Filter{remote.Where(codec.FieldAuthorID, remote.OpEqual, authorID)},
				OrderBy:    codec.FieldCreatedAt,
				Descending: true,
				Limit:      foreignKeyLimit,
			}, codec.DecodeStory, "fetch stories by author")
		},
		save: r.save,
	}, force)
}

// FetchFeed is FetchPage joined with authors; stories without a resolvable author are dropped.
func (r *storyRepository) FetchFeed(ctx context.Context, req PageRequest) (Page[models.StoryWithAuthor], error) {
	page, err := r.FetchPage(ctx, req)
	if err != nil {
		return Page[models.StoryWithAuthor]{}, err
	}
	items := HydrateAuthors(ctx, r.users, page.Items,
		func(s models.Story) string { return s.AuthorID },
		func(s models.Story, a models.UserCompact) models.StoryWithAuthor {
			return models.StoryWithAuthor{Story: s, Author: a}
		},
		r.deps.HydrationConcurrency)
	return Page[models.StoryWithAuthor]{Items: items, Next: page.Next}, nil
}

// IncrementCounter adds one to a counter remotely and locally. The local increment is
// applied even when the remote one fails; the remote error is still returned.
func (r *storyRepository) IncrementCounter(ctx context.Context, id string, counter StoryCounter) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	switch counter {
	case StoryViews, StoryShares, StoryReplies:
	default:
		return models.NewValidationError("counter", fmt.Sprintf("unknown story counter %q", counter))
	}

	err := remoteCall(ctx, r.deps, "increment story "+string(counter), func(ctx context.Context) error {
		return r.remote.Increment(ctx, id, codec.StatPath(string(counter)), 1)
	})
	logCacheErr("story", "increment", r.cache.IncrementField(ctx, id, string(counter), 1))
	return err
}

func (r *storyRepository) EditCaption(ctx context.Context, id, caption string) (models.Story, error) {
	current, err := r.FetchByID(ctx, id, false)
	if err != nil {
		return models.Story{}, err
	}
	updated := current.EditCaption(caption, r.deps.now())

	err = remoteCall(ctx, r.deps, "edit story caption", func(ctx context.Context) error {
		return r.remote.Merge(ctx, id, map[string]any{
			codec.FieldCaption:   updated.Content.Caption,
			codec.FieldIsEdited:  true,
			codec.FieldUpdatedAt: updated.UpdatedAt,
		})
	})
	if err != nil {
		return models.Story{}, err
	}
	logCacheErr("story", "upsert", r.cache.Upsert(ctx, updated))
	return updated, nil
}

// Ban flags the story as banned. A blank reason is rejected before any I/O.
func (r *storyRepository) Ban(ctx context.Context, id, reason string) (models.Story, error) {
	if strings.TrimSpace(reason) == "" {
		return models.Story{}, models.NewValidationError("reason", "must not be blank")
	}
	current, err := r.FetchByID(ctx, id, false)
	if err != nil {
		return models.Story{}, err
	}
	banned, err := current.Ban(reason, r.deps.now())
	if err != nil {
		return models.Story{}, err
	}

	err = remoteCall(ctx, r.deps, "ban story", func(ctx context.Context) error {
		return r.remote.Merge(ctx, id, map[string]any{
			codec.FieldIsBanned:  true,
			codec.FieldBanReason: banned.BanReason,
			codec.FieldUpdatedAt: banned.UpdatedAt,
		})
	})
	if err != nil {
		return models.Story{}, err
	}
	logCacheErr("story", "upsert", r.cache.Upsert(ctx, banned))
	return banned, nil
}

// Delete soft-deletes the story remotely, then removes the cached row.
// A remote failure leaves the cache untouched unless the story is gone remotely.
func (r *storyRepository) Delete(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	err := remoteCall(ctx, r.deps, "delete story", func(ctx context.Context) error {
		return r.remote.Merge(ctx, id, map[string]any{
			codec.FieldIsDeleted: true,
			codec.FieldUpdatedAt: r.deps.now(),
		})
	})
	if err != nil && !isNotFound(err) {
		return err
	}
	logCacheErr("story", "delete", r.cache.DeleteByID(ctx, id))
	return err
}

// Purge hard-deletes the story remotely, then locally. A story already missing
// remotely is still evicted and reported as not found.
func (r *storyRepository) Purge(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	err := remoteCall(ctx, r.deps, "purge story", func(ctx context.Context) error {
		return r.remote.Delete(ctx, id)
	})
	if err != nil && !isNotFound(err) {
		return err
	}
	logCacheErr("story", "delete", r.cache.DeleteByID(ctx, id))
	return err
}

// SweepExpired removes expired stories from the cache.
func (r *storyRepository) SweepExpired(ctx context.Context) (int64, error) {
	return r.cache.SweepExpired(ctx, r.deps.now())
}

// PurgeExpired hard-deletes expired stories remotely in one batch, then sweeps the cache.
func (r *storyRepository) PurgeExpired(ctx context.Context) (int64, error) {
	now := r.deps.now()
	expired, err := queryRemote(ctx, r.deps, r.remote, remote.Query{
		Filters: []remote.Filter{remote.Where(codec.FieldExpiresAt, remote.OpLessEqual, now)},
		OrderBy: codec.FieldExpiresAt,
		Limit:   500,
	}, codec.DecodeStory, "find expired stories")
	if err != nil {
		return 0, err
	}

	if len(expired) > 0 {
		ops := make([]remote.Op, 0, len(expired))
		for _, s := range expired {
			ops = append(ops, remote.Op{Kind: remote.OpDelete, Collection: codec.StoriesCollection, ID: s.ID})
		}
		err = remoteCall(ctx, r.deps, "purge expired stories", func(ctx context.Context) error {
			return r.deps.Remote.Batch(ctx, ops)
		})
		if err != nil {
			return 0, err
		}
	}

	if _, err := r.cache.SweepExpired(ctx, now); err != nil {
		logCacheErr("story", "sweep", err)
	}
	return int64(len(expired)), nil
}

func (r *storyRepository) ClearCache(ctx context.Context) error {
	return r.cache.Clear(ctx)
}

// save caches stories that are still live and sweeps expired rows.
// Stories already expired on arrival are not cached.
func (r *storyRepository) save(ctx context.Context, stories []models.Story) {
	now := r.deps.now()
	live := make([]models.Story, 0, len(stories))
	for _, s := range stories {
		if !s.IsExpired(now) {
			live = append(live, s)
		}
	}
	logCacheErr("story", "upsert", r.cache.Upsert(ctx, live...))

	n, err := r.cache.SweepExpired(ctx, now)
	logCacheErr("story", "sweep", err)
	if n > 0 {
		slog.Debug("swept expired stories", "count", n)
	}
}

func (r *storyRepository) evict(ctx context.Context, id string) {
	logCacheErr("story", "delete", r.cache.DeleteByID(ctx, id))
}

func storyPosition(s models.Story) (string, time.Time) {
	return s.ID, s.CreatedAt
}
