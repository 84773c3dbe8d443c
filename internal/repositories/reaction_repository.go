package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anonto42/nano-midea/storysync/internal/cache"
	"github.com/anonto42/nano-midea/storysync/internal/codec"
	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/remote"
)

// ReactionRepository defines the interface for reaction operations.
// Aggregate counts live on the parent story or post under stats.reactions; one
// activity record per (entity, user) holds the user's current reaction.
type ReactionRepository interface {
	// React toggles t for the user: adds it, removes it when it is already the
	// user's reaction, or switches from another type.
	React(ctx context.Context, entityType models.EntityType, entityID, userID string, t models.ReactionType) (models.ReactionChange, error)
	// UserReaction returns the user's current reaction, or "" when there is none.
	UserReaction(ctx context.Context, entityType models.EntityType, entityID, userID string) (models.ReactionType, error)
	FetchReactors(ctx context.Context, entityType models.EntityType, entityID string, force bool) ([]models.ReactionActivity, error)
}

type reactionRepository struct {
	deps     Dependencies
	remote   remote.Collection
	activity cache.ReactionCache
	stories  cache.StoryCache
	posts    cache.PostCache
}

func NewReactionRepository(deps Dependencies) ReactionRepository {
	deps = deps.withDefaults()
	return &reactionRepository{
		deps:     deps,
		remote:   deps.Remote.Collection(codec.ReactionsCollection),
		activity: deps.Cache.Reactions,
		stories:  deps.Cache.Stories,
		posts:    deps.Cache.Posts,
	}
}

// React updates the activity record and the parent's aggregate in one remote
// transaction, then mirrors both locally. When the remote store fails the transition
// is computed from the cached activity and applied locally, and the error is returned.
func (r *reactionRepository) React(ctx context.Context, entityType models.EntityType, entityID, userID string, t models.ReactionType) (models.ReactionChange, error) {
	if err := requireID("entity_id", entityID); err != nil {
		return models.ReactionChange{}, err
	}
	if err := requireID("user_id", userID); err != nil {
		return models.ReactionChange{}, err
	}
	if !models.IsValidReactionType(string(t)) {
		return models.ReactionChange{}, models.NewValidationError("type", fmt.Sprintf("unknown reaction %q", t))
	}

	now := r.deps.now()
	parent := parentCollection(entityType)
	activity := models.ReactionActivity{
		ID:         models.ReactionActivityID(entityType, entityID, userID),
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Type:       t,
		CreatedAt:  now,
	}

	var change models.ReactionChange
	err := remoteCall(ctx, r.deps, "react", func(ctx context.Context) error {
		return r.deps.Remote.RunTransaction(ctx, func(ctx context.Context, tx remote.Tx) error {
			if _, err := tx.Get(parent, entityID); err != nil {
				return err
			}
			var prev models.ReactionType
			doc, err := tx.Get(codec.ReactionsCollection, activity.ID)
			switch {
			case err == nil:
				prev = codec.DecodeReaction(activity.ID, doc).Type
			case !remote.IsNotFound(err):
				return err
			}

			change = models.ResolveReaction(prev, t)
			return applyRemote(tx, parent, entityID, activity, change)
		})
	})
	if err != nil {
		if !isTransient(err) {
			return models.ReactionChange{}, err
		}
		local := models.ResolveReaction(r.cachedReaction(ctx, activity.ID), t)
		r.applyLocal(ctx, activity, local)
		return local, err
	}

	r.applyLocal(ctx, activity, change)
	return change, nil
}

func (r *reactionRepository) UserReaction(ctx context.Context, entityType models.EntityType, entityID, userID string) (models.ReactionType, error) {
	if err := requireID("entity_id", entityID); err != nil {
		return "", err
	}
	if err := requireID("user_id", userID); err != nil {
		return "", err
	}
	id := models.ReactionActivityID(entityType, entityID, userID)
	if a, err := r.activity.Get(ctx, id); err == nil {
		return a.Type, nil
	}

	a, err := getRemote(ctx, r.deps, r.remote, id, codec.DecodeReaction, "fetch reaction")
	switch {
	case err == nil:
		logCacheErr("reaction", "upsert", r.activity.Upsert(ctx, a))
		return a.Type, nil
	case isNotFound(err):
		return "", nil
	default:
		return "", err
	}
}

// FetchReactors lists who reacted to an entity, most recent first.
func (r *reactionRepository) FetchReactors(ctx context.Context, entityType models.EntityType, entityID string, force bool) ([]models.ReactionActivity, error) {
	if err := requireID("entity_id", entityID); err != nil {
		return nil, err
	}
	return fetchList(ctx, listSource[models.ReactionActivity]{
		entity: "reaction",
		key:    entityID,
		fromCache: func(ctx context.Context) ([]models.ReactionActivity, error) {
			return r.activity.ByEntity(ctx, entityType, entityID)
		},
		fromRemote: func(ctx context.Context) ([]models.ReactionActivity, error) {
			return queryRemote(ctx, r.deps, r.remote, remote.Query{
				Filters: []remote.Filter{
					remote.Where(codec.FieldEntityType, remote.OpEqual, string(entityType)),
					remote.Where(codec.FieldEntityID, remote.OpEqual, entityID),
				},
				OrderBy:    codec.FieldCreatedAt,
				Descending: true,
				Limit:      foreignKeyLimit,
			}, codec.DecodeReaction, "fetch reactors")
		},
		save: func(ctx context.Context, items []models.ReactionActivity) {
			logCacheErr("reaction", "upsert", r.activity.Upsert(ctx, items...))
		},
	}, force)
}

func applyRemote(tx remote.Tx, parent, entityID string, activity models.ReactionActivity, change models.ReactionChange) error {
	if change.Current != "" {
		if err := tx.Set(codec.ReactionsCollection, activity.ID, codec.EncodeReaction(activity)); err != nil {
			return err
		}
	} else if err := tx.Delete(codec.ReactionsCollection, activity.ID); err != nil {
		return err
	}
	if change.Previous != "" {
		if err := tx.Increment(parent, entityID, codec.ReactionPath(string(change.Previous)), -1); err != nil {
			return err
		}
	}
	if change.Current != "" {
		return tx.Increment(parent, entityID, codec.ReactionPath(string(change.Current)), 1)
	}
	return nil
}

func (r *reactionRepository) cachedReaction(ctx context.Context, id string) models.ReactionType {
	a, err := r.activity.Get(ctx, id)
	if err != nil {
		logCacheErr("reaction", "read", err)
		return ""
	}
	return a.Type
}

// applyLocal mirrors a transition into the activity table and the cached parent.
// A parent that is not cached is skipped.
func (r *reactionRepository) applyLocal(ctx context.Context, activity models.ReactionActivity, change models.ReactionChange) {
	if change.Current != "" {
		logCacheErr("reaction", "upsert", r.activity.Upsert(ctx, activity))
	} else {
		logCacheErr("reaction", "delete", r.activity.DeleteByID(ctx, activity.ID))
	}

	incr := r.stories.IncrementReaction
	if activity.EntityType == models.EntityPost {
		incr = r.posts.IncrementReaction
	}
	if change.Previous != "" {
		logCacheErr("reaction", "decrement", incr(ctx, activity.EntityID, change.Previous, -1))
	}
	if change.Current != "" {
		logCacheErr("reaction", "increment", incr(ctx, activity.EntityID, change.Current, 1))
	}
	slog.Debug("reaction applied", "entity", activity.EntityID, "user", activity.UserID, "outcome", change.Outcome)
}

func parentCollection(t models.EntityType) string {
	if t == models.EntityPost {
		return codec.PostsCollection
	}
	return codec.StoriesCollection
}
