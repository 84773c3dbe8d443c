package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/nano-midea/storysync/internal/models"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	s := New(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func story(id, author string, createdAt time.Time) models.Story {
	s := models.NewStory(author, models.StoryContent{Caption: "caption " + id, MediaURLs: []string{"https://cdn.example.com/" + id}}, createdAt)
	s.ID = id
	return s
}

func TestStoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestStore(t).Stories

	s := story("s1", "u1", t0).WithReaction(models.ReactionLove, 3)
	s.Visibility = models.VisibilityCustom
	s.AllowedViewers = []string{"u2", "u3"}
	require.NoError(t, c.Upsert(ctx, s))

	got, err := c.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, s, got)

	s = s.EditCaption("edited", t0.Add(time.Minute))
	require.NoError(t, c.Upsert(ctx, s))
	got, err = c.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content.Caption)
	assert.True(t, got.IsEdited)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStoryCacheMiss(t *testing.T) {
	_, err := newTestStore(t).Stories.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStoryCachePageFiltersInactive(t *testing.T) {
	ctx := context.Background()
	c := newTestStore(t).Stories

	active := story("a", "u1", t0)
	newer := story("b", "u1", t0.Add(time.Minute))
	banned, err := story("c", "u1", t0).Ban("spam", t0)
	require.NoError(t, err)
	deleted := story("d", "u1", t0).SoftDelete(t0)
	expired := story("e", "u1", t0.Add(-25*time.Hour))
	require.NoError(t, c.Upsert(ctx, active, newer, banned, deleted, expired))

	page, err := c.Page(ctx, 10, 0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].ID)
	assert.Equal(t, "a", page[1].ID)

	page, err = c.Page(ctx, 10, 1, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].ID)

	byAuthor, err := c.ByAuthor(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, byAuthor, 5)
}

func TestStoryCacheSweepExpired(t *testing.T) {
	ctx := context.Background()
	c := newTestStore(t).Stories
	require.NoError(t, c.Upsert(ctx, story("old", "u1", t0), story("new", "u1", t0.Add(2*time.Hour))))

	n, err := c.SweepExpired(ctx, t0.Add(models.StoryTTL))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "a story expiring exactly now is swept")

	_, err = c.GetByID(ctx, "old")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = c.GetByID(ctx, "new")
	assert.NoError(t, err)
}

func TestStoryCacheCounters(t *testing.T) {
	ctx := context.Background()
	c := newTestStore(t).Stories
	require.NoError(t, c.Upsert(ctx, story("s1", "u1", t0)))

	require.NoError(t, c.IncrementField(ctx, "s1", "views", 1))
	require.NoError(t, c.IncrementField(ctx, "s1", "views", 1))
	require.NoError(t, c.IncrementField(ctx, "s1", "shares", -5))
	require.NoError(t, c.IncrementReaction(ctx, "s1", models.ReactionHaha, 1))
	require.NoError(t, c.IncrementReaction(ctx, "s1", models.ReactionSad, -1))

	got, err := c.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Stats.Views)
	assert.Zero(t, got.Stats.Shares)
	assert.Equal(t, map[models.ReactionType]int64{models.ReactionHaha: 1}, got.Stats.Reactions)

	err = c.IncrementField(ctx, "s1", "likes", 1)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	err = c.IncrementField(ctx, "missing", "views", 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
	err = c.IncrementReaction(ctx, "missing", models.ReactionLike, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStoryCacheClear(t *testing.T) {
	ctx := context.Background()
	c := newTestStore(t).Stories
	require.NoError(t, c.Upsert(ctx, story("a", "u1", t0), story("b", "u2", t0)))
	require.NoError(t, c.Clear(ctx))

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostCache(t *testing.T) {
	ctx := context.Background()
	c := newTestStore(t).Posts

	p1 := models.NewPost("u1", models.PostContent{Text: "learning #golang today"}, t0)
	p1.ID = "p1"
	p2 := models.NewPost("u2", models.PostContent{Text: "#go_lang is not #golang2"}, t0.Add(time.Minute))
	p2.ID = "p2"
	p3 := models.NewPost("u1", models.PostContent{Text: "old #golang"}, t0).Archive(t0)
	p3.ID = "p3"
	require.NoError(t, c.Upsert(ctx, p1, p2, p3))

	got, err := c.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p1, got)

	page, err := c.Page(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "p2", page[0].ID)

	tagged, err := c.ByHashtag(ctx, "golang", 10)
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "p1", tagged[0].ID)

	byAuthor, err := c.ByAuthor(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	require.NoError(t, c.IncrementField(ctx, "p1", "comments", 2))
	require.NoError(t, c.IncrementReaction(ctx, "p1", models.ReactionLike, 1))
	got, err = c.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Stats.Comments)
	assert.Equal(t, int64(1), got.Stats.Reactions[models.ReactionLike])

	require.NoError(t, c.DeleteByID(ctx, "p1"))
	_, err = c.GetByID(ctx, "p1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func user(id, username string, createdAt time.Time) models.User {
	u := models.NewUser(models.Profile{Username: username}, createdAt)
	u.ID = id
	return u
}

func TestUserCacheLookups(t *testing.T) {
	ctx := context.Background()
	c := newTestStore(t).Users

	alice := user("u1", "Alice", t0)
	until := t0.Add(time.Hour)
	alice.Metadata.SuspendedUntil = &until
	require.NoError(t, c.Upsert(ctx, t0, alice, user("u2", "alicia", t0), user("u3", "bob", t0), user("u4", "al_x", t0)))

	got, err := c.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	got, err = c.GetByUsername(ctx, "  ALICE ")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	found, err := c.SearchPrefix(ctx, "ali", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "u1", found[0].ID)
	assert.Equal(t, "u2", found[1].ID)

	found, err = c.SearchPrefix(ctx, "al_", 10)
	require.NoError(t, err)
	require.Len(t, found, 1, "underscore is matched literally")
	assert.Equal(t, "u4", found[0].ID)

	require.NoError(t, c.IncrementField(ctx, "u3", "followers", 3))
	require.NoError(t, c.IncrementField(ctx, "u3", "followers", -10))
	got, err = c.GetByID(ctx, "u3")
	require.NoError(t, err)
	assert.Zero(t, got.Stats.Followers)
}

func TestUserCacheTrimEvictsLeastRecentlyAccessed(t *testing.T) {
	ctx := context.Background()
	c := newTestStore(t).Users

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Upsert(ctx, t0.Add(time.Duration(i)*time.Minute), user(fmt.Sprintf("u%d", i), fmt.Sprintf("user%d", i), t0)))
	}
	require.NoError(t, c.Touch(ctx, "u0", t0.Add(time.Hour)))

	evicted, err := c.TrimToLimit(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), evicted)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	for _, id := range []string{"u1", "u2"} {
		_, err := c.GetByID(ctx, id)
		assert.ErrorIs(t, err, models.ErrNotFound, id)
	}
	for _, id := range []string{"u0", "u3", "u4"} {
		_, err := c.GetByID(ctx, id)
		assert.NoError(t, err, id)
	}

	evicted, err = c.TrimToLimit(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, evicted)

	assert.ErrorIs(t, c.Touch(ctx, "u1", t0), models.ErrNotFound)
}

func TestReactionCache(t *testing.T) {
	ctx := context.Background()
	c := newTestStore(t).Reactions

	a := models.ReactionActivity{
		ID:         models.ReactionActivityID(models.EntityStory, "s1", "u2"),
		EntityType: models.EntityStory,
		EntityID:   "s1",
		UserID:     "u2",
		Type:       models.ReactionLove,
		CreatedAt:  t0,
	}
	b := a
	b.ID = models.ReactionActivityID(models.EntityPost, "s1", "u3")
	b.EntityType = models.EntityPost
	b.UserID = "u3"
	require.NoError(t, c.Upsert(ctx, a, b))

	got, err := c.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	list, err := c.ByEntity(ctx, models.EntityStory, "s1")
	require.NoError(t, err)
	assert.Equal(t, []models.ReactionActivity{a}, list)

	require.NoError(t, c.DeleteByEntity(ctx, models.EntityPost, "s1"))
	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, c.DeleteByID(ctx, a.ID))
	_, err = c.Get(ctx, a.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "")
	assert.Error(t, err)
}
