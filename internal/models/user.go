package models

import (
	"strings"
	"time"
)

// User is the aggregate root owning a profile, counters and account metadata.
type User struct {
	ID       string       `json:"id"`
	Profile  Profile      `json:"profile"`
	Stats    UserStats    `json:"stats"`
	Metadata UserMetadata `json:"metadata"`
}

// Profile holds the public identity of a user.
type Profile struct {
	Username    string     `json:"username" validate:"required,min=3,max=30"`
	DisplayName string     `json:"display_name" validate:"max=50"`
	Email       string     `json:"email" validate:"omitempty,email"`
	AvatarURL   string     `json:"avatar_url,omitempty" validate:"omitempty,url"`
	CoverURL    string     `json:"cover_url,omitempty" validate:"omitempty,url"`
	Bio         string     `json:"bio,omitempty" validate:"max=500"`
	Gender      string     `json:"gender,omitempty"`
	Location    string     `json:"location,omitempty"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
}

// UserStats holds the non-negative counters of a user.
type UserStats struct {
	Posts     int64 `json:"posts"`
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
	Stories   int64 `json:"stories"`
	Likes     int64 `json:"likes"`
	Comments  int64 `json:"comments"`
}

// UserMetadata holds account lifecycle and audit fields.
type UserMetadata struct {
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	LastLogoutAt     *time.Time `json:"last_logout_at,omitempty"`
	IsVerified       bool       `json:"is_verified"`
	IsEmailVerified  bool       `json:"is_email_verified"`
	IsSuspended      bool       `json:"is_suspended"`
	SuspensionReason string     `json:"suspension_reason,omitempty"`
	SuspendedUntil   *time.Time `json:"suspended_until,omitempty"`
	IsBanned         bool       `json:"is_banned"`
	IsPrivate        bool       `json:"is_private"`
	LastDeviceID     string     `json:"-"`
	LastIPAddress    string     `json:"-"`
}

// UserStat names a counter of UserStats.
type UserStat string

const (
	StatPosts     UserStat = "posts"
	StatFollowers UserStat = "followers"
	StatFollowing UserStat = "following"
	StatStories   UserStat = "stories"
	StatLikes     UserStat = "likes"
	StatComments  UserStat = "comments"
)

// UserStatList lists every user counter.
var UserStatList = []UserStat{StatPosts, StatFollowers, StatFollowing, StatStories, StatLikes, StatComments}

// IsValidUserStat reports whether s names a user counter.
func IsValidUserStat(s string) bool {
	for _, st := range UserStatList {
		if string(st) == s {
			return true
		}
	}
	return false
}

// NewUser builds a user created at now.
func NewUser(profile Profile, now time.Time) User {
	now = Timestamp(now)
	return User{
		Profile:  profile,
		Metadata: UserMetadata{CreatedAt: now, UpdatedAt: now},
	}
}

// NormalizeUsername lowercases and trims a username for uniqueness checks and prefix search.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizedUsername returns the user's normalized username.
func (u User) NormalizedUsername() string {
	return NormalizeUsername(u.Profile.Username)
}

// IsSuspendedAt reports whether a suspension applies at now. A lapsed suspension no longer applies.
func (u User) IsSuspendedAt(now time.Time) bool {
	if !u.Metadata.IsSuspended {
		return false
	}
	return u.Metadata.SuspendedUntil == nil || now.Before(*u.Metadata.SuspendedUntil)
}

// IsActiveAt reports whether the account may act at now.
func (u User) IsActiveAt(now time.Time) bool {
	return !u.Metadata.IsBanned && !u.IsSuspendedAt(now)
}

func (u User) clone() User {
	out := u
	out.Profile.BirthDate = cloneTime(u.Profile.BirthDate)
	out.Metadata.LastLoginAt = cloneTime(u.Metadata.LastLoginAt)
	out.Metadata.LastLogoutAt = cloneTime(u.Metadata.LastLogoutAt)
	out.Metadata.SuspendedUntil = cloneTime(u.Metadata.SuspendedUntil)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// MarkAsUpdated returns a copy stamped with now.
func (u User) MarkAsUpdated(now time.Time) User {
	out := u.clone()
	out.Metadata.UpdatedAt = now
	return out
}

// Suspend returns a suspended copy. A zero duration suspends indefinitely.
func (u User) Suspend(reason string, duration time.Duration, now time.Time) (User, error) {
	if strings.TrimSpace(reason) == "" {
		return u, NewValidationError("reason", "must not be blank")
	}
	if duration < 0 {
		return u, NewValidationError("duration", "must not be negative")
	}
	out := u.MarkAsUpdated(now)
	out.Metadata.IsSuspended = true
	out.Metadata.SuspensionReason = reason
	out.Metadata.SuspendedUntil = nil
	if duration > 0 {
		until := now.Add(duration)
		out.Metadata.SuspendedUntil = &until
	}
	return out, nil
}

// Unsuspend returns a copy with the suspension lifted.
func (u User) Unsuspend(now time.Time) User {
	out := u.MarkAsUpdated(now)
	out.Metadata.IsSuspended = false
	out.Metadata.SuspensionReason = ""
	out.Metadata.SuspendedUntil = nil
	return out
}

// RecordLogin returns a copy with login audit fields set.
func (u User) RecordLogin(deviceID, ip string, now time.Time) User {
	out := u.MarkAsUpdated(now)
	out.Metadata.LastLoginAt = &now
	out.Metadata.LastDeviceID = deviceID
	out.Metadata.LastIPAddress = ip
	return out
}

// RecordLogout returns a copy with the logout time set.
func (u User) RecordLogout(now time.Time) User {
	out := u.MarkAsUpdated(now)
	out.Metadata.LastLogoutAt = &now
	return out
}

// WithStat returns a copy with the counter changed by delta, never below zero.
func (u User) WithStat(stat UserStat, delta int64) User {
	out := u.clone()
	s := &out.Stats
	switch stat {
	case StatPosts:
		s.Posts = clampAdd(s.Posts, delta)
	case StatFollowers:
		s.Followers = clampAdd(s.Followers, delta)
	case StatFollowing:
		s.Following = clampAdd(s.Following, delta)
	case StatStories:
		s.Stories = clampAdd(s.Stories, delta)
	case StatLikes:
		s.Likes = clampAdd(s.Likes, delta)
	case StatComments:
		s.Comments = clampAdd(s.Comments, delta)
	}
	return out
}

// UserCompact is the minimal author representation embedded in feeds.
type UserCompact struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	IsVerified  bool   `json:"is_verified"`
}

// ToCompact converts the user to its feed representation.
func (u User) ToCompact() UserCompact {
	return UserCompact{
		ID:          u.ID,
		Username:    u.Profile.Username,
		DisplayName: u.Profile.DisplayName,
		AvatarURL:   u.Profile.AvatarURL,
		IsVerified:  u.Metadata.IsVerified,
	}
}

// CreateUserRequest defines the request body for creating a user
type CreateUserRequest struct {
	ID          string `json:"id"`
	Username    string `json:"username" validate:"required,min=3,max=30"`
	DisplayName string `json:"display_name" validate:"max=50"`
	Email       string `json:"email" validate:"omitempty,email"`
	AvatarURL   string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Bio         string `json:"bio,omitempty" validate:"max=500"`
	IsPrivate   bool   `json:"is_private"`
}

// SuspendUserRequest defines the request body for suspending a user
type SuspendUserRequest struct {
	Reason          string `json:"reason" validate:"required"`
	DurationSeconds int64  `json:"duration_seconds" validate:"min=0"`
}
