package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anonto42/nano-midea/storysync/internal/cache"
	"github.com/anonto42/nano-midea/storysync/internal/codec"
	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/remote"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	remote    *remote.MemoryStore
	cache     *cache.Store
	clock     *fakeClock
	users     UserRepository
	stories   StoryRepository
	posts     PostRepository
	reactions ReactionRepository
}

func newFixture(t *testing.T, tweak ...func(*Dependencies)) *fixture {
	t.Helper()
	db, err := cache.Open(cache.DriverSQLite, ":memory:")
	require.NoError(t, err)
	store := cache.New(db)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		remote: remote.NewMemoryStore(),
		cache:  store,
		clock:  &fakeClock{now: t0},
	}
	deps := Dependencies{
		Remote:        f.remote,
		Cache:         store,
		Clock:         f.clock.Now,
		RemoteTimeout: time.Second,
		PageSize:      10,
	}
	for _, fn := range tweak {
		fn(&deps)
	}
	f.users = NewUserRepository(deps)
	f.stories = NewStoryRepository(deps, f.users)
	f.posts = NewPostRepository(deps, f.users)
	f.reactions = NewReactionRepository(deps)
	return f
}

func (f *fixture) pushUser(t *testing.T, id, username string) models.User {
	t.Helper()
	u, err := f.users.Push(context.Background(), models.User{ID: id, Profile: models.Profile{Username: username}})
	require.NoError(t, err)
	return u
}

func (f *fixture) pushStory(t *testing.T, id, author string) models.Story {
	t.Helper()
	s := models.NewStory(author, models.StoryContent{Caption: "story " + id}, f.clock.Now())
	s.ID = id
	out, err := f.stories.Push(context.Background(), s)
	require.NoError(t, err)
	return out
}

// seedStory writes a story straight into the remote store, bypassing the cache.
func (f *fixture) seedStory(t *testing.T, s models.Story) {
	t.Helper()
	require.NoError(t, f.remote.Collection(codec.StoriesCollection).Set(context.Background(), s.ID, codec.EncodeStory(s)))
}

func (f *fixture) remoteStory(t *testing.T, id string) models.Story {
	t.Helper()
	doc, err := f.remote.Collection(codec.StoriesCollection).Get(context.Background(), id)
	require.NoError(t, err)
	return codec.DecodeStory(id, doc)
}

func (f *fixture) remotePost(t *testing.T, id string) models.Post {
	t.Helper()
	doc, err := f.remote.Collection(codec.PostsCollection).Get(context.Background(), id)
	require.NoError(t, err)
	return codec.DecodePost(id, doc)
}

func (f *fixture) remoteUser(t *testing.T, id string) models.User {
	t.Helper()
	doc, err := f.remote.Collection(codec.UsersCollection).Get(context.Background(), id)
	require.NoError(t, err)
	return codec.DecodeUser(id, doc)
}
