package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/nano-midea/storysync/internal/models"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.FixedZone("X", 3600))
	c, err := decodeCursor(encodeCursor("story-1", at))
	require.NoError(t, err)
	assert.Equal(t, "story-1", c.ID)
	assert.True(t, at.Truncate(time.Millisecond).Equal(c.Value.(time.Time)))

	c, err = decodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCursorMalformed(t *testing.T) {
	for _, token := range []string{"!!!", "bm90LWpzb24", "e30"} {
		_, err := decodeCursor(token)
		assert.ErrorIs(t, err, models.ErrInvalidInput, token)
	}
}

func TestNewPageSetsNextOnlyWhenFull(t *testing.T) {
	pos := func(s models.Story) (string, time.Time) { return s.ID, s.CreatedAt }
	items := []models.Story{{ID: "a", CreatedAt: t0}, {ID: "b", CreatedAt: t0}}

	assert.NotEmpty(t, newPage(items, 2, pos).Next)
	assert.Empty(t, newPage(items, 3, pos).Next)

	empty := newPage[models.Story](nil, 3, pos)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Next)
}
