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
)

func TestUserPushRejectsTakenUsername(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.pushUser(t, "u1", "alice")

	_, err := f.users.Push(ctx, models.User{Profile: models.Profile{Username: "ALICE"}})
	assert.ErrorIs(t, err, models.ErrConflict)

	alice.Profile.DisplayName = "Alice A."
	_, err = f.users.Push(ctx, alice)
	assert.NoError(t, err, "re-pushing the same user is not a conflict")

	_, err = f.users.Push(ctx, models.User{Profile: models.Profile{Username: "al"}})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestUserCacheStaysWithinLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(d *Dependencies) { d.UserCacheLimit = 3 })

	for i := 0; i < 3; i++ {
		f.pushUser(t, fmt.Sprintf("u%d", i), fmt.Sprintf("user%d", i))
		f.clock.Advance(time.Minute)
	}
	_, err := f.users.FetchByID(ctx, "u0", false)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	f.pushUser(t, "u3", "user3")

	n, err := f.cache.Users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	_, err = f.cache.Users.GetByID(ctx, "u1")
	assert.ErrorIs(t, err, models.ErrNotFound, "least recently accessed row is evicted")
	for _, id := range []string{"u0", "u2", "u3"} {
		_, err := f.cache.Users.GetByID(ctx, id)
		assert.NoError(t, err, id)
	}

	for i := 4; i < 10; i++ {
		f.clock.Advance(time.Minute)
		f.pushUser(t, fmt.Sprintf("u%d", i), fmt.Sprintf("user%d", i))
		n, err := f.cache.Users.Count(ctx)
		require.NoError(t, err)
		assert.LessOrEqual(t, n, int64(3))
	}

	// an evicted user is read back from the remote store
	got, err := f.users.FetchByID(ctx, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, "user1", got.Profile.Username)
}

func TestUserFetchByUsername(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pushUser(t, "u1", "Alice")
	require.NoError(t, f.users.ClearCache(ctx))

	got, err := f.users.FetchByUsername(ctx, " alice ", false)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	calls := f.remote.Calls()
	_, err = f.users.FetchByUsername(ctx, "ALICE", false)
	require.NoError(t, err)
	assert.Equal(t, calls, f.remote.Calls())

	_, err = f.users.FetchByUsername(ctx, "nobody", false)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserSearchByUsernamePrefix(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pushUser(t, "u1", "alice")
	f.pushUser(t, "u2", "Alicia")
	f.pushUser(t, "u3", "bob")

	found, err := f.users.SearchByUsernamePrefix(ctx, "Ali", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "u1", found[0].ID)
	assert.Equal(t, "u2", found[1].ID)

	f.remote.SetUnavailable(true)
	found, err = f.users.SearchByUsernamePrefix(ctx, "ali", 10)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	_, err = f.users.SearchByUsernamePrefix(ctx, "zed", 10)
	assert.ErrorIs(t, err, models.ErrUnavailable)
}

func TestUserSuspension(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pushUser(t, "u1", "alice")

	_, err := f.users.Suspend(ctx, "u1", "", time.Hour)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	u, err := f.users.Suspend(ctx, "u1", "abuse", time.Hour)
	require.NoError(t, err)
	now := f.clock.Now()
	assert.True(t, u.IsSuspendedAt(now))
	assert.False(t, u.IsSuspendedAt(now.Add(2*time.Hour)))

	remoteCopy := f.remoteUser(t, "u1")
	assert.True(t, remoteCopy.Metadata.IsSuspended)
	assert.Equal(t, "abuse", remoteCopy.Metadata.SuspensionReason)
	require.NotNil(t, remoteCopy.Metadata.SuspendedUntil)

	u, err = f.users.Unsuspend(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.IsActiveAt(now))
	assert.Nil(t, f.remoteUser(t, "u1").Metadata.SuspendedUntil)
}

func TestUserRecordLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pushUser(t, "u1", "alice")
	f.clock.Advance(time.Hour)

	u, err := f.users.RecordLogin(ctx, "u1", "pixel", "10.0.0.7")
	require.NoError(t, err)
	require.NotNil(t, u.Metadata.LastLoginAt)
	assert.Equal(t, f.clock.Now(), *u.Metadata.LastLoginAt)

	remoteCopy := f.remoteUser(t, "u1")
	assert.Equal(t, "pixel", remoteCopy.Metadata.LastDeviceID)
	assert.Equal(t, u.Metadata.LastLoginAt, remoteCopy.Metadata.LastLoginAt)
}

func TestUserIncrementStat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pushUser(t, "u1", "alice")

	require.NoError(t, f.users.IncrementStat(ctx, "u1", models.StatFollowers, 3))
	assert.Equal(t, int64(3), f.remoteUser(t, "u1").Stats.Followers)

	require.NoError(t, f.users.IncrementStat(ctx, "u1", models.StatFollowers, -5))
	cached, err := f.cache.Users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, cached.Stats.Followers)
	assert.Zero(t, f.remoteUser(t, "u1").Stats.Followers)

	assert.ErrorIs(t, f.users.IncrementStat(ctx, "u1", "karma", 1), models.ErrInvalidInput)
}

func TestUserDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pushUser(t, "u1", "alice")

	f.remote.SetUnavailable(true)
	assert.ErrorIs(t, f.users.Delete(ctx, "u1"), models.ErrUnavailable)
	_, err := f.cache.Users.GetByID(ctx, "u1")
	require.NoError(t, err)

	f.remote.SetUnavailable(false)
	require.NoError(t, f.users.Delete(ctx, "u1"))
	_, err = f.users.FetchByID(ctx, "u1", false)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserDeleteEvictsWhenRemoteIsGone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pushUser(t, "u1", "alice")
	require.NoError(t, f.remote.Collection(codec.UsersCollection).Delete(ctx, "u1"))

	assert.ErrorIs(t, f.users.Delete(ctx, "u1"), models.ErrNotFound)
	_, err := f.cache.Users.GetByID(ctx, "u1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserFetchPage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 12; i++ {
		f.pushUser(t, fmt.Sprintf("u%02d", i), fmt.Sprintf("user%02d", i))
		f.clock.Advance(time.Second)
	}
	require.NoError(t, f.users.ClearCache(ctx))

	first, err := f.users.FetchPage(ctx, PageRequest{})
	require.NoError(t, err)
	require.Len(t, first.Items, 10)
	assert.Equal(t, "u11", first.Items[0].ID)

	second, err := f.users.FetchPage(ctx, PageRequest{Page: 1, Cursor: first.Next})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, "u00", second.Items[1].ID)
}
