package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMongoFilterWithCursor(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	q := Query{
		Filters:    []Filter{Where("isDeleted", OpEqual, false), Where("expiresAt", OpGreater, at)},
		OrderBy:    "createdAt",
		Descending: true,
		After:      &Cursor{ID: "s1", Value: at},
	}

	got := mongoFilter(q)
	clauses := got["$and"].(bson.A)
	assert.Len(t, clauses, 3)
	assert.Equal(t, bson.M{"isDeleted": false}, clauses[0])
	assert.Equal(t, bson.M{"expiresAt": bson.M{"$gt": at}}, clauses[1])
	assert.Equal(t, bson.M{"$or": bson.A{
		bson.M{"createdAt": bson.M{"$lt": at}},
		bson.M{"createdAt": at, "_id": bson.M{"$lt": "s1"}},
	}}, clauses[2])

	assert.Equal(t, bson.M{}, mongoFilter(Query{}))
}

func TestFromBSONNormalizesValues(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := bson.M{
		"_id":       "x",
		"createdAt": primitive.NewDateTimeFromTime(at),
		"count":     int32(4),
		"tags":      bson.A{"a", "b"},
		"stats":     bson.D{{Key: "views", Value: int32(2)}},
	}

	doc := fromBSON(raw)
	_, hasID := doc["_id"]
	assert.False(t, hasID)
	assert.Equal(t, at, doc["createdAt"])
	assert.Equal(t, int64(4), doc["count"])
	assert.Equal(t, []any{"a", "b"}, doc["tags"])
	assert.Equal(t, map[string]any{"views": int64(2)}, doc["stats"])
}
