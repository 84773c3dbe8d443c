package cache

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/anonto42/nano-midea/storysync/internal/models"
)

// StoryCache is the local table of stories.
type StoryCache interface {
	Upsert(ctx context.Context, stories ...models.Story) error
	GetByID(ctx context.Context, id string) (models.Story, error)
	// Page returns active stories at now, newest first.
	Page(ctx context.Context, limit, offset int, now time.Time) ([]models.Story, error)
	ByAuthor(ctx context.Context, authorID string, limit int) ([]models.Story, error)
	IncrementField(ctx context.Context, id, field string, delta int64) error
	IncrementReaction(ctx context.Context, id string, t models.ReactionType, delta int64) error
	DeleteByID(ctx context.Context, id string) error
	// SweepExpired deletes every story whose expiry is at or before now.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

var storyCounters = map[string]string{
	"views":   "views",
	"shares":  "shares",
	"replies": "replies",
}

type storyCache struct {
	table[storyRow]
}

func NewStoryCache(db *gorm.DB) StoryCache {
	return &storyCache{table[storyRow]{db: db}}
}

func (c *storyCache) Upsert(ctx context.Context, stories ...models.Story) error {
	rows := make([]storyRow, 0, len(stories))
	for _, s := range stories {
		rows = append(rows, toStoryRow(s))
	}
	return c.upsert(ctx, rows)
}

func (c *storyCache) GetByID(ctx context.Context, id string) (models.Story, error) {
	row, err := c.get(ctx, id)
	if err != nil {
		return models.Story{}, err
	}
	return row.model(), nil
}

func (c *storyCache) Page(ctx context.Context, limit, offset int, now time.Time) ([]models.Story, error) {
	rows, err := c.find(c.db.WithContext(ctx).
		Where("is_deleted = ? AND is_banned = ? AND expires_at > ?", false, false, now.UTC()).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset))
	if err != nil {
		return nil, err
	}
	return mapRows(rows, storyRow.model), nil
}

func (c *storyCache) ByAuthor(ctx context.Context, authorID string, limit int) ([]models.Story, error) {
	rows, err := c.find(c.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit))
	if err != nil {
		return nil, err
	}
	return mapRows(rows, storyRow.model), nil
}

func (c *storyCache) IncrementField(ctx context.Context, id, field string, delta int64) error {
	return c.increment(ctx, storyCounters, id, field, delta)
}

func (c *storyCache) IncrementReaction(ctx context.Context, id string, t models.ReactionType, delta int64) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row storyRow
		if err := tx.Where("id = ?", id).Take(&row).Error; err != nil {
			return notFound(err, id)
		}
		s := row.model().WithReaction(t, delta)
		return tx.Model(&storyRow{}).Where("id = ?", id).
			UpdateColumn("reactions", datatypes.NewJSONType(reactionsToColumn(s.Stats.Reactions))).Error
	})
}

func (c *storyCache) DeleteByID(ctx context.Context, id string) error {
	return c.deleteByID(ctx, id)
}

func (c *storyCache) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res := c.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&storyRow{})
	return res.RowsAffected, res.Error
}

func (c *storyCache) Clear(ctx context.Context) error {
	return c.clear(ctx)
}

func (c *storyCache) Count(ctx context.Context) (int64, error) {
	return c.count(ctx)
}
