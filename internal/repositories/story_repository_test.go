package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/nano-midea/storysync/internal/codec"
	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/remote"
)

func TestStoryPushWritesRemoteThenCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s, err := f.stories.Push(ctx, models.Story{AuthorID: "u1", Content: models.StoryContent{Caption: "hi"}})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, t0, s.CreatedAt)
	assert.Equal(t, t0.Add(24*time.Hour), s.ExpiresAt)

	assert.Equal(t, s, f.remoteStory(t, s.ID))
	cached, err := f.cache.Stories.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, cached)
}

func TestStoryPushValidatesBeforeIO(t *testing.T) {
	f := newFixture(t)
	_, err := f.stories.Push(context.Background(), models.Story{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Zero(t, f.remote.Calls())
}

func TestStoryPushRemoteFailureLeavesCacheUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.SetUnavailable(true)

	_, err := f.stories.Push(ctx, models.NewStory("u1", models.StoryContent{}, t0))
	assert.ErrorIs(t, err, models.ErrUnavailable)

	n, err := f.cache.Stories.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStoryExpiryLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pushed := f.pushStory(t, "s1", "A")

	f.clock.Advance(time.Hour)
	calls := f.remote.Calls()
	got, err := f.stories.FetchByID(ctx, "s1", false)
	require.NoError(t, err)
	assert.True(t, got.IsActive(f.clock.Now()))
	assert.Equal(t, pushed, got)
	assert.Equal(t, calls, f.remote.Calls(), "served from cache")

	f.clock.Advance(24 * time.Hour)
	got, err = f.stories.FetchByID(ctx, "s1", false)
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID, "stale row is still returned")
	assert.False(t, got.IsActive(f.clock.Now()))

	purged, err := f.stories.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	_, err = f.cache.Stories.GetByID(ctx, "s1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.stories.FetchByID(ctx, "s1", false)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStoryWriteSweepsExpiredRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pushStory(t, "old", "A")

	f.clock.Advance(25 * time.Hour)
	f.pushStory(t, "new", "A")

	_, err := f.cache.Stories.GetByID(ctx, "old")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.cache.Stories.GetByID(ctx, "new")
	assert.NoError(t, err)
}

func TestStoryFetchExpiredFromRemoteIsNotCached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	old := models.NewStory("A", models.StoryContent{}, t0.Add(-48*time.Hour))
	old.ID = "old"
	f.seedStory(t, old)

	got, err := f.stories.FetchByID(ctx, "old", false)
	require.NoError(t, err)
	assert.True(t, got.IsExpired(f.clock.Now()))

	n, err := f.cache.Stories.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStoryFetchFallsBackToCacheWhenRemoteDown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pushed := f.pushStory(t, "s1", "A")
	f.remote.SetUnavailable(true)

	for i := 0; i < 3; i++ {
		got, err := f.stories.FetchByID(ctx, "s1", true)
		require.NoError(t, err)
		assert.Equal(t, pushed, got)
	}

	_, err := f.stories.FetchByID(ctx, "unknown", true)
	assert.ErrorIs(t, err, models.ErrUnavailable)
}

func TestStoryIncrementCounter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pushStory(t, "s1", "A")

	require.NoError(t, f.stories.IncrementCounter(ctx, "s1", StoryViews))
	require.NoError(t, f.stories.IncrementCounter(ctx, "s1", StoryViews))
	cached, err := f.cache.Stories.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), cached.Stats.Views)
	assert.Equal(t, cached.Stats.Views, f.remoteStory(t, "s1").Stats.Views)

	f.remote.SetUnavailable(true)
	err = f.stories.IncrementCounter(ctx, "s1", StoryViews)
	assert.ErrorIs(t, err, models.ErrUnavailable)
	cached, err = f.cache.Stories.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cached.Stats.Views, "local side applies despite remote failure")

	assert.ErrorIs(t, f.stories.IncrementCounter(ctx, "s1", "likes"), models.ErrInvalidInput)
}

func TestStoryPaginationVisitsEveryItemOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	const total = 45
	for i := 0; i < total; i++ {
		// pairs share a timestamp so ordering falls back to the id
		s := models.NewStory("A", models.StoryContent{}, t0.Add(-time.Duration(i/2)*time.Minute))
		s.ID = fmt.Sprintf("s%02d", i)
		f.seedStory(t, s)
	}

	var seen []models.Story
	req := PageRequest{Size: 10}
	for {
		page, err := f.stories.FetchPage(ctx, req)
		require.NoError(t, err)
		if len(page.Items) == 0 {
			break
		}
		seen = append(seen, page.Items...)
		req = PageRequest{Page: req.Page + 1, Size: 10, Cursor: page.Next}
		require.Less(t, req.Page, 10)
	}

	require.Len(t, seen, total)
	ids := map[string]bool{}
	for i, s := range seen {
		assert.False(t, ids[s.ID], "duplicate %s", s.ID)
		ids[s.ID] = true
		if i > 0 {
			prev := seen[i-1]
			assert.False(t, s.CreatedAt.After(prev.CreatedAt), "not descending at %d", i)
			if s.CreatedAt.Equal(prev.CreatedAt) {
				assert.Less(t, s.ID, prev.ID)
			}
		}
	}
}

// millisStore stores times at millisecond precision, as BSON DateTime does.
type millisStore struct {
	*remote.MemoryStore
}

func (s millisStore) Collection(name string) remote.Collection {
	return millisCollection{s.MemoryStore.Collection(name)}
}

type millisCollection struct {
	remote.Collection
}

func (c millisCollection) Set(ctx context.Context, id string, doc remote.Document) error {
	return c.Collection.Set(ctx, id, truncateTimes(doc))
}

func truncateTimes(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		switch v := v.(type) {
		case time.Time:
			out[k] = v.Truncate(time.Millisecond)
		case map[string]any:
			out[k] = truncateTimes(v)
		default:
			out[k] = v
		}
	}
	return out
}

func TestStoryPagesDoNotRepeatAtMillisecondPrecision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(d *Dependencies) {
		d.Remote = millisStore{remote.NewMemoryStore()}
	})
	for i := 0; i < 12; i++ {
		at := t0.Add(-time.Duration(i)*time.Millisecond - 456789*time.Nanosecond)
		_, err := f.stories.Push(ctx, models.Story{
			ID:        fmt.Sprintf("s%02d", i),
			AuthorID:  "A",
			CreatedAt: at,
		})
		require.NoError(t, err)
	}

	first, err := f.stories.FetchPage(ctx, PageRequest{})
	require.NoError(t, err)
	require.Len(t, first.Items, 10)
	for _, s := range first.Items {
		assert.Zero(t, s.CreatedAt.Nanosecond()%int(time.Millisecond), s.ID)
	}

	second, err := f.stories.FetchPage(ctx, PageRequest{Page: 1, Cursor: first.Next})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)

	seen := map[string]bool{}
	for _, s := range append(first.Items, second.Items...) {
		assert.False(t, seen[s.ID], "duplicate %s", s.ID)
		seen[s.ID] = true
	}
	assert.Len(t, seen, 12)
	assert.Equal(t, []string{"s10", "s11"}, []string{second.Items[0].ID, second.Items[1].ID})
}

func TestStoryFirstPageServedFromFullCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 12; i++ {
		s := models.NewStory("A", models.StoryContent{}, t0.Add(-time.Duration(i)*time.Minute))
		s.ID = fmt.Sprintf("s%02d", i)
		f.seedStory(t, s)
	}

	first, err := f.stories.FetchPage(ctx, PageRequest{})
	require.NoError(t, err)
	require.Len(t, first.Items, 10)
	assert.NotEmpty(t, first.Next)

	calls := f.remote.Calls()
	again, err := f.stories.FetchPage(ctx, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, first.Items, again.Items)
	assert.Equal(t, calls, f.remote.Calls())

	_, err = f.stories.FetchPage(ctx, PageRequest{Force: true})
	require.NoError(t, err)
	assert.Equal(t, calls+1, f.remote.Calls())

	second, err := f.stories.FetchPage(ctx, PageRequest{Page: 1, Cursor: first.Next})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Empty(t, second.Next)
}

func TestStoryPageFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 10; i++ {
		f.pushStory(t, fmt.Sprintf("s%02d", i), "A")
	}
	f.remote.SetUnavailable(true)

	page, err := f.stories.FetchPage(ctx, PageRequest{Force: true})
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)

	_, err = f.stories.FetchPage(ctx, PageRequest{Page: 1})
	assert.ErrorIs(t, err, models.ErrUnavailable)
}

func TestStoryPageRejectsBadRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.stories.FetchPage(ctx, PageRequest{Page: -1})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = f.stories.FetchPage(ctx, PageRequest{Page: 1, Cursor: "%%%"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestStoryDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pushStory(t, "s1", "A")

	f.remote.SetUnavailable(true)
	assert.ErrorIs(t, f.stories.Delete(ctx, "s1"), models.ErrUnavailable)
	_, err := f.cache.Stories.GetByID(ctx, "s1")
	require.NoError(t, err, "remote failure keeps the cached row")

	f.remote.SetUnavailable(false)
	require.NoError(t, f.stories.Delete(ctx, "s1"))
	_, err = f.cache.Stories.GetByID(ctx, "s1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.True(t, f.remoteStory(t, "s1").IsDeleted)

	assert.ErrorIs(t, f.stories.Delete(ctx, "missing"), models.ErrNotFound)
}

func TestStoryPurge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pushStory(t, "s1", "A")

	require.NoError(t, f.stories.Purge(ctx, "s1"))
	_, err := f.stories.FetchByID(ctx, "s1", false)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStoryRemovalEvictsWhenRemoteIsGone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pushStory(t, "s1", "A")
	f.pushStory(t, "s2", "A")
	stories := f.remote.Collection(codec.StoriesCollection)
	require.NoError(t, stories.Delete(ctx, "s1"))
	require.NoError(t, stories.Delete(ctx, "s2"))

	assert.ErrorIs(t, f.stories.Purge(ctx, "s1"), models.ErrNotFound)
	_, err := f.cache.Stories.GetByID(ctx, "s1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.ErrorIs(t, f.stories.Delete(ctx, "s2"), models.ErrNotFound)
	_, err = f.cache.Stories.GetByID(ctx, "s2")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStoryEditAndBan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pushStory(t, "s1", "A")
	f.clock.Advance(time.Minute)

	edited, err := f.stories.EditCaption(ctx, "s1", "new caption")
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)
	assert.Equal(t, "new caption", f.remoteStory(t, "s1").Content.Caption)

	calls := f.remote.Calls()
	_, err = f.stories.Ban(ctx, "s1", "  ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, calls, f.remote.Calls())

	banned, err := f.stories.Ban(ctx, "s1", "spam")
	require.NoError(t, err)
	assert.False(t, banned.CanView("other", models.Relations{}, f.clock.Now()))
	assert.True(t, banned.CanView("A", models.Relations{}, f.clock.Now()))

	remoteCopy := f.remoteStory(t, "s1")
	assert.True(t, remoteCopy.IsBanned)
	assert.Equal(t, "spam", remoteCopy.BanReason)

	page, err := f.stories.FetchPage(ctx, PageRequest{Force: true})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestStoryFetchByAuthor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		s := models.NewStory("A", models.StoryContent{}, t0.Add(-time.Duration(i)*time.Minute))
		s.ID = fmt.Sprintf("a%d", i)
		f.seedStory(t, s)
	}
	other := models.NewStory("B", models.StoryContent{}, t0)
	other.ID = "b0"
	f.seedStory(t, other)

	list, err := f.stories.FetchByAuthor(ctx, "A", false)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a0", list[0].ID)

	f.remote.SetUnavailable(true)
	cached, err := f.stories.FetchByAuthor(ctx, "A", true)
	require.NoError(t, err)
	assert.Len(t, cached, 3)
}

func TestStoryFeedDropsUnresolvedAuthors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pushUser(t, "A", "alice")
	f.pushStory(t, "s1", "A")
	f.pushStory(t, "s2", "ghost")

	feed, err := f.stories.FetchFeed(ctx, PageRequest{Force: true})
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "s1", feed.Items[0].ID)
	assert.Equal(t, "alice", feed.Items[0].Author.Username)
}

func TestStoryClearCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pushStory(t, "s1", "A")
	require.NoError(t, f.stories.ClearCache(ctx))

	n, err := f.cache.Stories.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := f.stories.FetchByID(ctx, "s1", false)
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
}
