package cache

import (
	"context"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/anonto42/nano-midea/storysync/internal/models"
)

// PostCache is the local table of posts.
type PostCache interface {
	Upsert(ctx context.Context, posts ...models.Post) error
	GetByID(ctx context.Context, id string) (models.Post, error)
	// Page returns active, unbanned posts, newest first.
	Page(ctx context.Context, limit, offset int) ([]models.Post, error)
	ByAuthor(ctx context.Context, authorID string, limit int) ([]models.Post, error)
	ByHashtag(ctx context.Context, tag string, limit int) ([]models.Post, error)
	IncrementField(ctx context.Context, id, field string, delta int64) error
	IncrementReaction(ctx context.Context, id string, t models.ReactionType, delta int64) error
	DeleteByID(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

var postCounters = map[string]string{
	"views":    "views",
	"shares":   "shares",
	"comments": "comments",
}

type postCache struct {
	table[postRow]
}

func NewPostCache(db *gorm.DB) PostCache {
	return &postCache{table[postRow]{db: db}}
}

func (c *postCache) Upsert(ctx context.Context, posts ...models.Post) error {
	rows := make([]postRow, 0, len(posts))
	for _, p := range posts {
		rows = append(rows, toPostRow(p))
	}
	return c.upsert(ctx, rows)
}

func (c *postCache) GetByID(ctx context.Context, id string) (models.Post, error) {
	row, err := c.get(ctx, id)
	if err != nil {
		return models.Post{}, err
	}
	return row.model(), nil
}

func (c *postCache) Page(ctx context.Context, limit, offset int) ([]models.Post, error) {
	rows, err := c.find(c.db.WithContext(ctx).
		Where("status = ? AND is_banned = ?", string(models.PostActive), false).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset))
	if err != nil {
		return nil, err
	}
	return mapRows(rows, postRow.model), nil
}

func (c *postCache) ByAuthor(ctx context.Context, authorID string, limit int) ([]models.Post, error) {
	rows, err := c.find(c.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit))
	if err != nil {
		return nil, err
	}
	return mapRows(rows, postRow.model), nil
}

// ByHashtag matches the quoted tag inside the JSON-encoded hashtag list.
func (c *postCache) ByHashtag(ctx context.Context, tag string, limit int) ([]models.Post, error) {
	rows, err := c.find(c.db.WithContext(ctx).
		Where("status = ? AND is_banned = ?", string(models.PostActive), false).
		Where(`CAST(hashtags AS TEXT) LIKE ? ESCAPE '\'`, `%"`+escapeLike(strings.ToLower(tag))+`"%`).
		Order("created_at DESC").Order("id DESC").
		Limit(limit))
	if err != nil {
		return nil, err
	}
	return mapRows(rows, postRow.model), nil
}

func (c *postCache) IncrementField(ctx context.Context, id, field string, delta int64) error {
	return c.increment(ctx, postCounters, id, field, delta)
}

func (c *postCache) IncrementReaction(ctx context.Context, id string, t models.ReactionType, delta int64) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row postRow
		if err := tx.Where("id = ?", id).Take(&row).Error; err != nil {
			return notFound(err, id)
		}
		p := row.model().WithReaction(t, delta)
		return tx.Model(&postRow{}).Where("id = ?", id).
			UpdateColumn("reactions", datatypes.NewJSONType(reactionsToColumn(p.Stats.Reactions))).Error
	})
}

func (c *postCache) DeleteByID(ctx context.Context, id string) error {
	return c.deleteByID(ctx, id)
}

func (c *postCache) Clear(ctx context.Context) error {
	return c.clear(ctx)
}

func (c *postCache) Count(ctx context.Context) (int64, error) {
	return c.count(ctx)
}
