package cache

import (
	"context"

	"gorm.io/gorm"

	"github.com/anonto42/nano-midea/storysync/internal/models"
)

// ReactionCache is the local table of per-user reaction activities.
type ReactionCache interface {
	Upsert(ctx context.Context, activities ...models.ReactionActivity) error
	Get(ctx context.Context, id string) (models.ReactionActivity, error)
	ByEntity(ctx context.Context, entityType models.EntityType, entityID string) ([]models.ReactionActivity, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByEntity(ctx context.Context, entityType models.EntityType, entityID string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

type reactionCache struct {
	table[reactionRow]
}

func NewReactionCache(db *gorm.DB) ReactionCache {
	return &reactionCache{table[reactionRow]{db: db}}
}

func (c *reactionCache) Upsert(ctx context.Context, activities ...models.ReactionActivity) error {
	rows := make([]reactionRow, 0, len(activities))
	for _, a := range activities {
		rows = append(rows, toReactionRow(a))
	}
	return c.upsert(ctx, rows)
}

func (c *reactionCache) Get(ctx context.Context, id string) (models.ReactionActivity, error) {
	row, err := c.get(ctx, id)
	if err != nil {
		return models.ReactionActivity{}, err
	}
	return row.model(), nil
}

func (c *reactionCache) ByEntity(ctx context.Context, entityType models.EntityType, entityID string) ([]models.ReactionActivity, error) {
	rows, err := c.find(c.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", string(entityType), entityID).
		Order("created_at DESC").Order("id ASC"))
	if err != nil {
		return nil, err
	}
	return mapRows(rows, reactionRow.model), nil
}

func (c *reactionCache) DeleteByID(ctx context.Context, id string) error {
	return c.deleteByID(ctx, id)
}

func (c *reactionCache) DeleteByEntity(ctx context.Context, entityType models.EntityType, entityID string) error {
	return c.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", string(entityType), entityID).
		Delete(&reactionRow{}).Error
}

func (c *reactionCache) Clear(ctx context.Context) error {
	return c.clear(ctx)
}

func (c *reactionCache) Count(ctx context.Context) (int64, error) {
	return c.count(ctx)
}
