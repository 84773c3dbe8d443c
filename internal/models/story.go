package models

import (
	"strings"
	"time"
)

// StoryTTL is how long a story stays active after creation.
const StoryTTL = 24 * time.Hour

// Story is an ephemeral content item that expires StoryTTL after creation.
type Story struct {
	ID             string       `json:"id"`
	AuthorID       string       `json:"author_id" validate:"required"`
	Content        StoryContent `json:"content"`
	Visibility     Visibility   `json:"visibility"`
	AllowedViewers []string     `json:"allowed_viewers,omitempty"`
	Display        StoryDisplay `json:"display"`
	Stats          StoryStats   `json:"stats"`
	IsDeleted      bool         `json:"is_deleted"`
	IsBanned       bool         `json:"is_banned"`
	BanReason      string       `json:"ban_reason,omitempty"`
	IsEdited       bool         `json:"is_edited"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	ExpiresAt      time.Time    `json:"expires_at"`
}

// StoryContent is the payload of a story.
type StoryContent struct {
	Caption   string      `json:"caption,omitempty" validate:"max=2200"`
	Type      ContentType `json:"type"`
	MediaURLs []string    `json:"media_urls,omitempty" validate:"omitempty,dive,url"`
}

// StoryDisplay configures how a story is rendered.
type StoryDisplay struct {
	DurationSeconds int    `json:"duration_seconds" validate:"min=0,max=60"`
	BackgroundColor string `json:"background_color,omitempty"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
	MusicURL        string `json:"music_url,omitempty" validate:"omitempty,url"`
}

// StoryStats holds the engagement counters of a story.
type StoryStats struct {
	Views     int64                  `json:"views"`
	Reactions map[ReactionType]int64 `json:"reactions"`
	Replies   int64                  `json:"replies"`
	Shares    int64                  `json:"shares"`
}

// DefaultStoryDuration is the display time of a story item in seconds.
const DefaultStoryDuration = 5

// NewStory builds a public story created at now.
func NewStory(authorID string, content StoryContent, now time.Time) Story {
	now = Timestamp(now)
	if content.Type == "" {
		content.Type = ContentText
	}
	return Story{
		AuthorID:   authorID,
		Content:    content,
		Visibility: VisibilityPublic,
		Display:    StoryDisplay{DurationSeconds: DefaultStoryDuration},
		Stats:      StoryStats{Reactions: map[ReactionType]int64{}},
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(StoryTTL),
	}
}

// IsExpired reports whether the story's lifetime has passed at now.
func (s Story) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsActive reports whether the story is neither deleted, banned nor expired.
func (s Story) IsActive(now time.Time) bool {
	return !s.IsDeleted && !s.IsBanned && now.Before(s.ExpiresAt)
}

// CanView reports whether viewerID may see the story.
// Authors always see their own stories, including banned, deleted and expired ones.
func (s Story) CanView(viewerID string, rel Relations, now time.Time) bool {
	if viewerID != "" && viewerID == s.AuthorID {
		return true
	}
	if !s.IsActive(now) {
		return false
	}
	return audienceAllows(s.AuthorID, viewerID, s.Visibility, s.AllowedViewers, rel)
}

// TotalReactions sums every reaction count.
func (s Story) TotalReactions() int64 {
	var n int64
	for _, c := range s.Stats.Reactions {
		n += c
	}
	return n
}

func (s Story) clone() Story {
	out := s
	out.Content.MediaURLs = cloneStrings(s.Content.MediaURLs)
	out.AllowedViewers = cloneStrings(s.AllowedViewers)
	out.Stats.Reactions = cloneReactions(s.Stats.Reactions)
	return out
}

// IncrementViews returns a copy with one more view.
func (s Story) IncrementViews() Story {
	out := s.clone()
	out.Stats.Views++
	return out
}

// IncrementShares returns a copy with one more share.
func (s Story) IncrementShares() Story {
	out := s.clone()
	out.Stats.Shares++
	return out
}

// IncrementReplies returns a copy with one more reply.
func (s Story) IncrementReplies() Story {
	out := s.clone()
	out.Stats.Replies++
	return out
}

// WithReaction returns a copy with the count of t changed by delta.
func (s Story) WithReaction(t ReactionType, delta int64) Story {
	out := s.clone()
	out.Stats.Reactions = applyReaction(s.Stats.Reactions, t, delta)
	return out
}

// MarkAsUpdated returns a copy stamped with now.
func (s Story) MarkAsUpdated(now time.Time) Story {
	out := s.clone()
	out.UpdatedAt = now
	return out
}

// EditCaption returns a copy with a new caption, flagged as edited.
func (s Story) EditCaption(caption string, now time.Time) Story {
	out := s.MarkAsUpdated(now)
	out.Content.Caption = caption
	out.IsEdited = true
	return out
}

// Ban returns a banned copy. The reason must not be blank.
func (s Story) Ban(reason string, now time.Time) (Story, error) {
	if strings.TrimSpace(reason) == "" {
		return s, NewValidationError("reason", "must not be blank")
	}
	out := s.MarkAsUpdated(now)
	out.IsBanned = true
	out.BanReason = reason
	return out, nil
}

// SoftDelete returns a copy flagged as deleted.
func (s Story) SoftDelete(now time.Time) Story {
	out := s.MarkAsUpdated(now)
	out.IsDeleted = true
	return out
}

// CreateStoryRequest defines the request body for creating a story
type CreateStoryRequest struct {
	Caption         string   `json:"caption" validate:"max=2200"`
	Type            string   `json:"type" validate:"omitempty,oneof=TEXT IMAGE VIDEO text image video"`
	MediaURLs       []string `json:"media_urls" validate:"omitempty,dive,url"`
	Visibility      string   `json:"visibility" validate:"omitempty,oneof=PUBLIC FRIENDS CLOSE_FRIENDS CUSTOM PRIVATE"`
	AllowedViewers  []string `json:"allowed_viewers"`
	DurationSeconds int      `json:"duration_seconds" validate:"min=0,max=60"`
	BackgroundColor string   `json:"background_color"`
	AspectRatio     string   `json:"aspect_ratio"`
	MusicURL        string   `json:"music_url" validate:"omitempty,url"`
}

// EditCaptionRequest defines the request body for editing a story caption
type EditCaptionRequest struct {
	Caption string `json:"caption" validate:"max=2200"`
}

// BanRequest defines the request body for banning content
type BanRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// StoryWithAuthor is a story joined with its author.
type StoryWithAuthor struct {
	Story
	Author UserCompact `json:"author"`
}
