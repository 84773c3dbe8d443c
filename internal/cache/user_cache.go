package cache

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/anonto42/nano-midea/storysync/internal/models"
)

// UserCache is the local table of users. Rows carry a last-access stamp used for LRU eviction.
type UserCache interface {
	// Upsert stores users stamped as accessed at accessedAt.
	Upsert(ctx context.Context, accessedAt time.Time, users ...models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	SearchPrefix(ctx context.Context, prefix string, limit int) ([]models.User, error)
	Page(ctx context.Context, limit, offset int) ([]models.User, error)
	Touch(ctx context.Context, id string, accessedAt time.Time) error
	// TrimToLimit evicts the least recently accessed rows until at most limit remain.
	TrimToLimit(ctx context.Context, limit int) (int64, error)
	IncrementField(ctx context.Context, id, field string, delta int64) error
	DeleteByID(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

var userCounters = func() map[string]string {
	m := make(map[string]string, len(models.UserStatList))
	for _, s := range models.UserStatList {
		m[string(s)] = string(s)
	}
	return m
}()

type userCache struct {
	table[userRow]
}

func NewUserCache(db *gorm.DB) UserCache {
	return &userCache{table[userRow]{db: db}}
}

func (c *userCache) Upsert(ctx context.Context, accessedAt time.Time, users ...models.User) error {
	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, toUserRow(u, accessedAt))
	}
	return c.upsert(ctx, rows)
}

func (c *userCache) GetByID(ctx context.Context, id string) (models.User, error) {
	row, err := c.get(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	return row.model(), nil
}

func (c *userCache) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var row userRow
	lower := models.NormalizeUsername(username)
	if err := c.db.WithContext(ctx).Where("username_lower = ?", lower).Take(&row).Error; err != nil {
		return models.User{}, notFound(err, lower)
	}
	return row.model(), nil
}

func (c *userCache) SearchPrefix(ctx context.Context, prefix string, limit int) ([]models.User, error) {
	rows, err := c.find(c.db.WithContext(ctx).
		Where(`username_lower LIKE ? ESCAPE '\'`, escapeLike(models.NormalizeUsername(prefix))+"%").
		Order("username_lower ASC").Order("id ASC").
		Limit(limit))
	if err != nil {
		return nil, err
	}
	return mapRows(rows, userRow.model), nil
}

func (c *userCache) Page(ctx context.Context, limit, offset int) ([]models.User, error) {
	rows, err := c.find(c.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset))
	if err != nil {
		return nil, err
	}
	return mapRows(rows, userRow.model), nil
}

func (c *userCache) Touch(ctx context.Context, id string, accessedAt time.Time) error {
	res := c.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).
		UpdateColumn("last_accessed_at", accessedAt.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, id)
	}
	return nil
}

func (c *userCache) TrimToLimit(ctx context.Context, limit int) (int64, error) {
	var evicted int64
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&userRow{}).Count(&n).Error; err != nil {
			return err
		}
		excess := n - int64(limit)
		if excess <= 0 {
			return nil
		}

		var ids []string
		if err := tx.Model(&userRow{}).
			Order("last_accessed_at ASC").Order("id ASC").
			Limit(int(excess)).Pluck("id", &ids).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&userRow{})
		evicted = res.RowsAffected
		return res.Error
	})
	return evicted, err
}

func (c *userCache) IncrementField(ctx context.Context, id, field string, delta int64) error {
	return c.increment(ctx, userCounters, id, field, delta)
}

func (c *userCache) DeleteByID(ctx context.Context, id string) error {
	return c.deleteByID(ctx, id)
}

func (c *userCache) Clear(ctx context.Context) error {
	return c.clear(ctx)
}

func (c *userCache) Count(ctx context.Context) (int64, error) {
	return c.count(ctx)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
