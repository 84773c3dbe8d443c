package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anonto42/nano-midea/storysync/internal/cache"
	"github.com/anonto42/nano-midea/storysync/internal/codec"
	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/remote"
)

// PostCounter names a post counter that can be incremented.
type PostCounter string

const (
	PostViews    PostCounter = "views"
	PostShares   PostCounter = "shares"
	PostComments PostCounter = "comments"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Push(ctx context.Context, post models.Post) (models.Post, error)
	FetchByID(ctx context.Context, id string, force bool) (models.Post, error)
	FetchPage(ctx context.Context, req PageRequest) (Page[models.Post], error)
	FetchByAuthor(ctx context.Context, authorID string, force bool) ([]models.Post, error)
	FetchByHashtag(ctx context.Context, tag string, force bool) ([]models.Post, error)
	FetchFeed(ctx context.Context, req PageRequest) (Page[models.PostWithAuthor], error)
	IncrementCounter(ctx context.Context, id string, counter PostCounter) error
	EditText(ctx context.Context, id, text string) (models.Post, error)
	Archive(ctx context.Context, id string) (models.Post, error)
	Pin(ctx context.Context, id string, pinned bool) (models.Post, error)
	Delete(ctx context.Context, id string) error
	ClearCache(ctx context.Context) error
}

type postRepository struct {
	deps   Dependencies
	remote remote.Collection
	cache  cache.PostCache
	users  AuthorFetcher
}

// NewPostRepository builds the post repository. users resolves authors for feeds.
func NewPostRepository(deps Dependencies, users AuthorFetcher) PostRepository {
	deps = deps.withDefaults()
	return &postRepository{
		deps:   deps,
		remote: deps.Remote.Collection(codec.PostsCollection),
		cache:  deps.Cache.Posts,
		users:  users,
	}
}

func (r *postRepository) Push(ctx context.Context, post models.Post) (models.Post, error) {
	now := r.deps.now()
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}
	post.CreatedAt = models.Timestamp(post.CreatedAt)
	post.UpdatedAt = models.Timestamp(post.UpdatedAt)
	if post.Hashtags == nil {
		post.Hashtags = models.ExtractHashtags(post.Content.Text)
	}
	if post.Mentions == nil {
		post.Mentions = models.ExtractMentions(post.Content.Text)
	}
	post.Status = models.ParsePostStatus(string(post.Status))
	post.Content.Type = models.ParseContentType(string(post.Content.Type))
	post.Visibility = models.ParseVisibility(string(post.Visibility))
	if post.Stats.Reactions == nil {
		post.Stats.Reactions = map[models.ReactionType]int64{}
	}
	if err := validate.Struct(post); err != nil {
		return models.Post{}, err
	}

	err := remoteCall(ctx, r.deps, "push post", func(ctx context.Context) error {
		return r.remote.Set(ctx, post.ID, codec.EncodePost(post))
	})
	if err != nil {
		return models.Post{}, err
	}
	r.save(ctx, []models.Post{post})
	return post, nil
}

func (r *postRepository) FetchByID(ctx context.Context, id string, force bool) (models.Post, error) {
	return fetchByID(ctx, pointSource[models.Post]{
		entity:    "post",
		fromCache: r.cache.GetByID,
		fromRemote: func(ctx context.Context, id string) (models.Post, error) {
			return getRemote(ctx, r.deps, r.remote, id, codec.DecodePost, "fetch post")
		},
		save:  r.save,
		evict: r.evict,
	}, id, force)
}

// FetchPage pages through active posts, newest first.
func (r *postRepository) FetchPage(ctx context.Context, req PageRequest) (Page[models.Post], error) {
	return fetchPage(ctx, pageSource[models.Post]{
		entity: "post",
		size:   r.deps.PageSize,
		query: remote.Query{
			Filters: []remote.Filter{
				remote.Where(codec.FieldStatus, remote.OpEqual, string(models.PostActive)),
				remote.Where(codec.FieldIsBanned, remote.OpEqual, false),
			},
			OrderBy:    codec.FieldCreatedAt,
			Descending: true,
		},
		fromCache: r.cache.Page,
		fromRemote: func(ctx context.Context, q remote.Query) ([]models.Post, error) {
			return queryRemote(ctx, r.deps, r.remote, q, codec.DecodePost, "fetch posts")
		},
		save:     r.save,
		position: postPosition,
	}, req)
}

func (r *postRepository) FetchByAuthor(ctx context.Context, authorID string, force bool) ([]models.Post, error) {
	if err := requireID("author_id", authorID); err != nil {
		return nil, err
	}
	return fetchList(ctx, listSource[models.Post]{
		entity: "post",
		key:    authorID,
		fromCache: func(ctx context.Context) ([]models.Post, error) {
			return r.cache.ByAuthor(ctx, authorID, foreignKeyLimit)
		},
		fromRemote: func(ctx context.Context) ([]models.Post, error) {
			return queryRemote(ctx, r.deps, r.remote, remote.Query{
				Filters:    []remote.Filter{remote.Where(codec.FieldAuthorID, remote.OpEqual, authorID)},
				OrderBy:    codec.FieldCreatedAt,
				Descending: true,
				Limit:      foreignKeyLimit,
			}, codec.DecodePost, "fetch posts by author")
		},
		save: r.save,
	}, force)
}

// FetchByHashtag lists active posts tagged with tag. The leading '#' is optional.
func (r *postRepository) FetchByHashtag(ctx context.Context, tag string, force bool) ([]models.Post, error) {
	tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
	if tag == "" {
		return nil, models.NewValidationError("hashtag", "must not be blank")
	}
	return fetchList(ctx, listSource[models.Post]{
		entity: "post",
		key:    "#" + tag,
		fromCache: func(ctx context.Context) ([]models.Post, error) {
			return r.cache.ByHashtag(ctx, tag, foreignKeyLimit)
		},
		fromRemote: func(ctx context.Context) ([]models.Post, error) {
			return queryRemote(ctx, r.deps, r.remote, remote.Query{
				Filters: []remote.Filter{
					remote.Where(codec.FieldHashtags, remote.OpArrayContains, tag),
					remote.Where(codec.FieldStatus, remote.OpEqual, string(models.PostActive)),
				},
				OrderBy:    codec.FieldCreatedAt,
				Descending: true,
				Limit:      foreignKeyLimit,
			}, codec.DecodePost, "fetch posts by hashtag")
		},
		save: r.save,
	}, force)
}

func (r *postRepository) FetchFeed(ctx context.Context, req PageRequest) (Page[models.PostWithAuthor], error) {
	page, err := r.FetchPage(ctx, req)
	if err != nil {
		return Page[models.PostWithAuthor]{}, err
	}
	items := HydrateAuthors(ctx, r.users, page.Items,
		func(p models.Post) string { return p.AuthorID },
		func(p models.Post, a models.UserCompact) models.PostWithAuthor {
			return models.PostWithAuthor{Post: p, Author: a}
		},
		r.deps.HydrationConcurrency)
	return Page[models.PostWithAuthor]{Items: items, Next: page.Next}, nil
}

// IncrementCounter adds one to a counter remotely and locally; the local side is applied
// even when the remote call fails.
func (r *postRepository) IncrementCounter(ctx context.Context, id string, counter PostCounter) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	switch counter {
	case PostViews, PostShares, PostComments:
	default:
		return models.NewValidationError("counter", fmt.Sprintf("unknown post counter %q", counter))
	}

	err := remoteCall(ctx, r.deps, "increment post "+string(counter), func(ctx context.Context) error {
		return r.remote.Increment(ctx, id, codec.StatPath(string(counter)), 1)
	})
	logCacheErr("post", "increment", r.cache.IncrementField(ctx, id, string(counter), 1))
	return err
}

func (r *postRepository) EditText(ctx context.Context, id, text string) (models.Post, error) {
	if strings.TrimSpace(text) == "" {
		return models.Post{}, models.NewValidationError("text", "must not be blank")
	}
	return r.update(ctx, id, "edit post", func(p models.Post, now time.Time) (models.Post, map[string]any) {
		p = p.EditText(text, now)
		return p, map[string]any{
			codec.FieldText:      p.Content.Text,
			codec.FieldHashtags:  p.Hashtags,
			codec.FieldMentions:  p.Mentions,
			codec.FieldIsEdited:  true,
			codec.FieldUpdatedAt: p.UpdatedAt,
		}
	})
}

func (r *postRepository) Archive(ctx context.Context, id string) (models.Post, error) {
	return r.update(ctx, id, "archive post", func(p models.Post, now time.Time) (models.Post, map[string]any) {
		p = p.Archive(now)
		return p, map[string]any{
			codec.FieldStatus:    string(p.Status),
			codec.FieldUpdatedAt: p.UpdatedAt,
		}
	})
}

func (r *postRepository) Pin(ctx context.Context, id string, pinned bool) (models.Post, error) {
	return r.update(ctx, id, "pin post", func(p models.Post, now time.Time) (models.Post, map[string]any) {
		p = p.Pin(pinned, now)
		return p, map[string]any{
			codec.FieldIsPinned:  p.IsPinned,
			codec.FieldUpdatedAt: p.UpdatedAt,
		}
	})
}

// Delete sets the remote status to DELETED, then removes the cached row.
// A remote failure leaves the cache untouched unless the post is gone remotely.
func (r *postRepository) Delete(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	err := remoteCall(ctx, r.deps, "delete post", func(ctx context.Context) error {
		return r.remote.Merge(ctx, id, map[string]any{
			codec.FieldStatus:    string(models.PostDeleted),
			codec.FieldUpdatedAt: r.deps.now(),
		})
	})
	if err != nil && !isNotFound(err) {
		return err
	}
	logCacheErr("post", "delete", r.cache.DeleteByID(ctx, id))
	return err
}

func (r *postRepository) ClearCache(ctx context.Context) error {
	return r.cache.Clear(ctx)
}

// update applies change to the current post, merges the changed fields remotely and
// mirrors the result into the cache.
func (r *postRepository) update(ctx context.Context, id, op string, change func(models.Post, time.Time) (models.Post, map[string]any)) (models.Post, error) {
	current, err := r.FetchByID(ctx, id, false)
	if err != nil {
		return models.Post{}, err
	}
	updated, fields := change(current, r.deps.now())

	err = remoteCall(ctx, r.deps, op, func(ctx context.Context) error {
		return r.remote.Merge(ctx, id, fields)
	})
	if err != nil {
		return models.Post{}, err
	}
	logCacheErr("post", "upsert", r.cache.Upsert(ctx, updated))
	return updated, nil
}

func (r *postRepository) save(ctx context.Context, posts []models.Post) {
	logCacheErr("post", "upsert", r.cache.Upsert(ctx, posts...))
}

func (r *postRepository) evict(ctx context.Context, id string) {
	logCacheErr("post", "delete", r.cache.DeleteByID(ctx, id))
}

func postPosition(p models.Post) (string, time.Time) {
	return p.ID, p.CreatedAt
}
