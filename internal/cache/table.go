package cache

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anonto42/nano-midea/storysync/internal/models"
)

// table holds the operations every entity table shares.
type table[R any] struct {
	db *gorm.DB
}

func (t table[R]) upsert(ctx context.Context, rows []R) error {
	if len(rows) == 0 {
		return nil
	}
	return t.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
}

func (t table[R]) get(ctx context.Context, id string) (R, error) {
	var row R
	err := t.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	return row, notFound(err, id)
}

func (t table[R]) find(q *gorm.DB) ([]R, error) {
	var rows []R
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (t table[R]) deleteByID(ctx context.Context, id string) error {
	var row R
	return t.db.WithContext(ctx).Where("id = ?", id).Delete(&row).Error
}

func (t table[R]) clear(ctx context.Context) error {
	var row R
	return t.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&row).Error
}

func (t table[R]) count(ctx context.Context) (int64, error) {
	var row R
	var n int64
	err := t.db.WithContext(ctx).Model(&row).Count(&n).Error
	return n, err
}

// increment adds delta to a whitelisted counter column without going below zero.
func (t table[R]) increment(ctx context.Context, columns map[string]string, id, field string, delta int64) error {
	column, ok := columns[field]
	if !ok {
		return models.NewValidationError("field", fmt.Sprintf("unknown counter %q", field))
	}
	var row R
	res := t.db.WithContext(ctx).Model(&row).Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s + ? < 0 THEN 0 ELSE %[1]s + ? END", column), delta, delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cache miss for %q: %w", id, models.ErrNotFound)
	}
	return nil
}

func mapRows[R any, M any](rows []R, conv func(R) M) []M {
	out := make([]M, 0, len(rows))
	for _, r := range rows {
		out = append(out, conv(r))
	}
	return out
}

func notFound(err error, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("cache miss for %q: %w", id, models.ErrNotFound)
	}
	return err
}
