package models

import (
	"regexp"
	"strings"
	"time"
)

// Post represents a non-expiring social media post
type Post struct {
	ID             string      `json:"id"`
	AuthorID       string      `json:"author_id" validate:"required"`
	Content        PostContent `json:"content"`
	Hashtags       []string    `json:"hashtags,omitempty"`
	Mentions       []string    `json:"mentions,omitempty"`
	ParentPostID   string      `json:"parent_post_id,omitempty"`
	PageID         string      `json:"page_id,omitempty"`
	GroupID        string      `json:"group_id,omitempty"`
	IsSponsored    bool        `json:"is_sponsored"`
	IsPinned       bool        `json:"is_pinned"`
	Visibility     Visibility  `json:"visibility"`
	AllowedViewers []string    `json:"allowed_viewers,omitempty"`
	Stats          PostStats   `json:"stats"`
	Status         PostStatus  `json:"status"`
	IsEdited       bool        `json:"is_edited"`
	IsBanned       bool        `json:"is_banned"`
	BanReason      string      `json:"ban_reason,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// PostContent is the payload of a post.
type PostContent struct {
	Text      string      `json:"text" validate:"max=5000"`
	Type      ContentType `json:"type"`
	MediaURLs []string    `json:"media_urls,omitempty" validate:"omitempty,dive,url"`
}

// PostStats holds the engagement counters of a post.
type PostStats struct {
	Views     int64                  `json:"views"`
	Reactions map[ReactionType]int64 `json:"reactions"`
	Comments  int64                  `json:"comments"`
	Shares    int64                  `json:"shares"`
}

var (
	hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
	mentionPattern = regexp.MustCompile(`@([\p{L}\p{N}_.]+)`)
)

// NewPost builds an active public post created at now, extracting hashtags and mentions from the text.
func NewPost(authorID string, content PostContent, now time.Time) Post {
	now = Timestamp(now)
	if content.Type == "" {
		content.Type = ContentText
	}
	return Post{
		AuthorID:   authorID,
		Content:    content,
		Hashtags:   ExtractHashtags(content.Text),
		Mentions:   ExtractMentions(content.Text),
		Visibility: VisibilityPublic,
		Stats:      PostStats{Reactions: map[ReactionType]int64{}},
		Status:     PostActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ExtractHashtags returns the distinct lowercase hashtags in text, in order of appearance.
func ExtractHashtags(text string) []string {
	return distinctMatches(hashtagPattern, text, true)
}

// ExtractMentions returns the distinct usernames mentioned in text.
func ExtractMentions(text string) []string {
	return distinctMatches(mentionPattern, text, true)
}

func distinctMatches(re *regexp.Regexp, text string, lower bool) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		v := strings.TrimRight(m[1], ".")
		if lower {
			v = strings.ToLower(v)
		}
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// IsActive reports whether the post is published and not banned.
func (p Post) IsActive() bool {
	return p.Status == PostActive && !p.IsBanned
}

// CanView reports whether viewerID may see the post. Authors always see their own posts.
func (p Post) CanView(viewerID string, rel Relations) bool {
	if viewerID != "" && viewerID == p.AuthorID {
		return true
	}
	if !p.IsActive() {
		return false
	}
	return audienceAllows(p.AuthorID, viewerID, p.Visibility, p.AllowedViewers, rel)
}

func (p Post) clone() Post {
	out := p
	out.Content.MediaURLs = cloneStrings(p.Content.MediaURLs)
	out.Hashtags = cloneStrings(p.Hashtags)
	out.Mentions = cloneStrings(p.Mentions)
	out.AllowedViewers = cloneStrings(p.AllowedViewers)
	out.Stats.Reactions = cloneReactions(p.Stats.Reactions)
	return out
}

// MarkAsUpdated returns a copy stamped with now.
func (p Post) MarkAsUpdated(now time.Time) Post {
	out := p.clone()
	out.UpdatedAt = now
	return out
}

// EditText returns a copy with new text and re-extracted hashtags and mentions.
func (p Post) EditText(text string, now time.Time) Post {
	out := p.MarkAsUpdated(now)
	out.Content.Text = text
	out.Hashtags = ExtractHashtags(text)
	out.Mentions = ExtractMentions(text)
	out.IsEdited = true
	return out
}

// Archive returns an archived copy.
func (p Post) Archive(now time.Time) Post {
	out := p.MarkAsUpdated(now)
	out.Status = PostArchived
	return out
}

// SoftDelete returns a copy with status DELETED.
func (p Post) SoftDelete(now time.Time) Post {
	out := p.MarkAsUpdated(now)
	out.Status = PostDeleted
	return out
}

// Pin returns a copy with the pinned flag set to pinned.
func (p Post) Pin(pinned bool, now time.Time) Post {
	out := p.MarkAsUpdated(now)
	out.IsPinned = pinned
	return out
}

// Ban returns a banned copy. The reason must not be blank.
func (p Post) Ban(reason string, now time.Time) (Post, error) {
	if strings.TrimSpace(reason) == "" {
		return p, NewValidationError("reason", "must not be blank")
	}
	out := p.MarkAsUpdated(now)
	out.IsBanned = true
	out.BanReason = reason
	return out, nil
}

// IncrementViews returns a copy with one more view.
func (p Post) IncrementViews() Post {
	out := p.clone()
	out.Stats.Views++
	return out
}

// WithReaction returns a copy with the count of t changed by delta.
func (p Post) WithReaction(t ReactionType, delta int64) Post {
	out := p.clone()
	out.Stats.Reactions = applyReaction(p.Stats.Reactions, t, delta)
	return out
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Text           string   `json:"text" validate:"required,min=1,max=5000"`
	Type           string   `json:"type" validate:"omitempty,oneof=TEXT IMAGE VIDEO text image video"`
	MediaURLs      []string `json:"media_urls,omitempty" validate:"omitempty,dive,url"`
	Visibility     string   `json:"visibility" validate:"omitempty,oneof=PUBLIC FRIENDS CLOSE_FRIENDS CUSTOM PRIVATE"`
	AllowedViewers []string `json:"allowed_viewers,omitempty"`
	ParentPostID   string   `json:"parent_post_id,omitempty"`
	PageID         string   `json:"page_id,omitempty"`
	GroupID        string   `json:"group_id,omitempty"`
	Draft          bool     `json:"draft"`
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	Text string `json:"text" validate:"required,min=1,max=5000"`
}

// PostWithAuthor is a post joined with its author.
type PostWithAuthor struct {
	Post
	Author UserCompact `json:"author"`
}
