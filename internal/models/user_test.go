package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSuspend(t *testing.T) {
	u := NewUser(Profile{Username: "Alice"}, t0)

	t.Run("blank reason", func(t *testing.T) {
		_, err := u.Suspend("", time.Hour, t0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("timed", func(t *testing.T) {
		s, err := u.Suspend("spam", time.Hour, t0)
		require.NoError(t, err)
		assert.False(t, u.Metadata.IsSuspended)
		assert.True(t, s.IsSuspendedAt(t0.Add(30*time.Minute)))
		assert.False(t, s.IsSuspendedAt(t0.Add(2*time.Hour)))
		assert.True(t, s.IsActiveAt(t0.Add(2*time.Hour)))
	})

	t.Run("indefinite", func(t *testing.T) {
		s, err := u.Suspend("spam", 0, t0)
		require.NoError(t, err)
		assert.Nil(t, s.Metadata.SuspendedUntil)
		assert.True(t, s.IsSuspendedAt(t0.Add(1000*time.Hour)))
		assert.False(t, s.Unsuspend(t0).IsSuspendedAt(t0))
	})
}

func TestUserStatsNeverNegative(t *testing.T) {
	u := NewUser(Profile{Username: "bob"}, t0)
	u = u.WithStat(StatFollowers, 2).WithStat(StatFollowers, -5)
	assert.Equal(t, int64(0), u.Stats.Followers)
	assert.Equal(t, int64(3), u.WithStat(StatPosts, 3).Stats.Posts)
}

func TestUserRecordLogin(t *testing.T) {
	u := NewUser(Profile{Username: "bob"}, t0)
	later := t0.Add(time.Hour)
	logged := u.RecordLogin("device-1", "10.0.0.1", later)

	require.NotNil(t, logged.Metadata.LastLoginAt)
	assert.Equal(t, later, *logged.Metadata.LastLoginAt)
	assert.Equal(t, "device-1", logged.Metadata.LastDeviceID)
	assert.Nil(t, u.Metadata.LastLoginAt)
	assert.Equal(t, "bob", logged.ToCompact().Username)
	assert.Equal(t, "bob", NewUser(Profile{Username: "  BoB "}, t0).NormalizedUsername())
}

func TestEnumFallbacks(t *testing.T) {
	assert.Equal(t, ContentText, ParseContentType("HOLOGRAM"))
	assert.Equal(t, ContentVideo, ParseContentType("video"))
	assert.Equal(t, VisibilityPublic, ParseVisibility("SECRET"))
	assert.Equal(t, VisibilityCloseFriends, ParseVisibility("close_friends"))
	assert.Equal(t, PostActive, ParsePostStatus(""))
	assert.Equal(t, PostArchived, ParsePostStatus("ARCHIVED"))
	assert.Equal(t, ReactionLike, ParseReactionType("CLAP"))
	assert.Equal(t, ReactionSad, ParseReactionType("sad"))
	assert.Equal(t, EntityPost, ParseEntityType("post"))
	assert.Equal(t, EntityStory, ParseEntityType("page"))
}

func TestResolveReaction(t *testing.T) {
	assert.Equal(t, ReactionChange{Outcome: ReactionAdded, Current: ReactionLike}, ResolveReaction("", ReactionLike))
	assert.Equal(t, ReactionChange{Outcome: ReactionRemoved, Previous: ReactionLike}, ResolveReaction(ReactionLike, ReactionLike))
	assert.Equal(t, ReactionChange{Outcome: ReactionSwitched, Previous: ReactionLike, Current: ReactionWow}, ResolveReaction(ReactionLike, ReactionWow))
	assert.Equal(t, "POST_p1_u1", ReactionActivityID(EntityPost, "p1", "u1"))
}
