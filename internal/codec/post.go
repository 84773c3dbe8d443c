package codec

import (
	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/remote"
)

// EncodePost maps a post to its remote document.
func EncodePost(p models.Post) remote.Document {
	return remote.Document{
		FieldAuthorID: p.AuthorID,
		"content": map[string]any{
			"text":      p.Content.Text,
			"type":      string(p.Content.Type),
			"mediaUrls": stringList(p.Content.MediaURLs),
		},
		FieldHashtags:    stringList(p.Hashtags),
		FieldMentions:    stringList(p.Mentions),
		"parentPostId":   p.ParentPostID,
		"pageId":         p.PageID,
		"groupId":        p.GroupID,
		"isSponsored":    p.IsSponsored,
		FieldIsPinned:    p.IsPinned,
		"visibility":     string(p.Visibility),
		"allowedViewers": stringList(p.AllowedViewers),
		"stats": map[string]any{
			"views":     p.Stats.Views,
			"reactions": encodeReactions(p.Stats.Reactions),
			"comments":  p.Stats.Comments,
			"shares":    p.Stats.Shares,
		},
		FieldStatus:    string(p.Status),
		FieldIsEdited:  p.IsEdited,
		FieldIsBanned:  p.IsBanned,
		FieldBanReason: p.BanReason,
		FieldCreatedAt: p.CreatedAt.UTC(),
		FieldUpdatedAt: p.UpdatedAt.UTC(),
	}
}

// DecodePost maps a remote document to a post.
func DecodePost(id string, d remote.Document) models.Post {
	content := object(d, "content")
	stats := object(d, "stats")

	p := models.Post{
		ID:       id,
		AuthorID: str(d, FieldAuthorID),
		Content: models.PostContent{
			Text:      str(content, "text"),
			Type:      models.ParseContentType(str(content, "type")),
			MediaURLs: stringSlice(content, "mediaUrls"),
		},
		Hashtags:       stringSlice(d, FieldHashtags),
		Mentions:       stringSlice(d, FieldMentions),
		ParentPostID:   str(d, "parentPostId"),
		PageID:         str(d, "pageId"),
		GroupID:        str(d, "groupId"),
		IsSponsored:    boolean(d, "isSponsored"),
		IsPinned:       boolean(d, FieldIsPinned),
		Visibility:     models.ParseVisibility(str(d, "visibility")),
		AllowedViewers: stringSlice(d, "allowedViewers"),
		Stats: models.PostStats{
			Views:     integer(stats, "views"),
			Reactions: decodeReactions(stats, "reactions"),
			Comments:  integer(stats, "comments"),
			Shares:    integer(stats, "shares"),
		},
		Status:    models.ParsePostStatus(str(d, FieldStatus)),
		IsEdited:  boolean(d, FieldIsEdited),
		IsBanned:  boolean(d, FieldIsBanned),
		BanReason: str(d, FieldBanReason),
		CreatedAt: timestamp(d, FieldCreatedAt),
		UpdatedAt: timestamp(d, FieldUpdatedAt),
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	return p
}
