package codec

import (
	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/remote"
)

// EncodeUser maps a user to its remote document. usernameLower is derived for
// uniqueness checks and prefix search.
func EncodeUser(u models.User) remote.Document {
	p, m := u.Profile, u.Metadata
	return remote.Document{
		FieldUsernameLower: u.NormalizedUsername(),
		"profile": map[string]any{
			"username":    p.Username,
			"displayName": p.DisplayName,
			"email":       p.Email,
			"avatarUrl":   p.AvatarURL,
			"coverUrl":    p.CoverURL,
			"bio":         p.Bio,
			"gender":      p.Gender,
			"location":    p.Location,
			"birthDate":   timeOrNil(p.BirthDate),
		},
		"stats": map[string]any{
			string(models.StatPosts):     u.Stats.Posts,
			string(models.StatFollowers): u.Stats.Followers,
			string(models.StatFollowing): u.Stats.Following,
			string(models.StatStories):   u.Stats.Stories,
			string(models.StatLikes):     u.Stats.Likes,
			string(models.StatComments):  u.Stats.Comments,
		},
		"metadata": map[string]any{
			"createdAt":        m.CreatedAt.UTC(),
			"updatedAt":        m.UpdatedAt.UTC(),
			"lastLoginAt":      timeOrNil(m.LastLoginAt),
			"lastLogoutAt":     timeOrNil(m.LastLogoutAt),
			"isVerified":       m.IsVerified,
			"isEmailVerified":  m.IsEmailVerified,
			"isSuspended":      m.IsSuspended,
			"suspensionReason": m.SuspensionReason,
			"suspendedUntil":   timeOrNil(m.SuspendedUntil),
			"isBanned":         m.IsBanned,
			"isPrivate":        m.IsPrivate,
			"lastDeviceId":     m.LastDeviceID,
			"lastIpAddress":    m.LastIPAddress,
		},
	}
}

// DecodeUser maps a remote document to a user. Negative counters decode as zero.
func DecodeUser(id string, d remote.Document) models.User {
	p := object(d, "profile")
	s := object(d, "stats")
	m := object(d, "metadata")

	nonNegative := func(key string) int64 {
		if n := integer(s, key); n > 0 {
			return n
		}
		return 0
	}

	u := models.User{
		ID: id,
		Profile: models.Profile{
			Username:    str(p, "username"),
			DisplayName: str(p, "displayName"),
			Email:       str(p, "email"),
			AvatarURL:   str(p, "avatarUrl"),
			CoverURL:    str(p, "coverUrl"),
			Bio:         str(p, "bio"),
			Gender:      str(p, "gender"),
			Location:    str(p, "location"),
			BirthDate:   optionalTime(p, "birthDate"),
		},
		Stats: models.UserStats{
			Posts:     nonNegative(string(models.StatPosts)),
			Followers: nonNegative(string(models.StatFollowers)),
			Following: nonNegative(string(models.StatFollowing)),
			Stories:   nonNegative(string(models.StatStories)),
			Likes:     nonNegative(string(models.StatLikes)),
			Comments:  nonNegative(string(models.StatComments)),
		},
		Metadata: models.UserMetadata{
			CreatedAt:        timestamp(m, "createdAt"),
			UpdatedAt:        timestamp(m, "updatedAt"),
			LastLoginAt:      optionalTime(m, "lastLoginAt"),
			LastLogoutAt:     optionalTime(m, "lastLogoutAt"),
			IsVerified:       boolean(m, "isVerified"),
			IsEmailVerified:  boolean(m, "isEmailVerified"),
			IsSuspended:      boolean(m, "isSuspended"),
			SuspensionReason: str(m, "suspensionReason"),
			SuspendedUntil:   optionalTime(m, "suspendedUntil"),
			IsBanned:         boolean(m, "isBanned"),
			IsPrivate:        boolean(m, "isPrivate"),
			LastDeviceID:     str(m, "lastDeviceId"),
			LastIPAddress:    str(m, "lastIpAddress"),
		},
	}
	return u
}
