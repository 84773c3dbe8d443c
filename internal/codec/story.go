package codec

import (
	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/remote"
)

// EncodeStory maps a story to its remote document.
func EncodeStory(s models.Story) remote.Document {
	return remote.Document{
		FieldAuthorID: s.AuthorID,
		"content": map[string]any{
			"caption":   s.Content.Caption,
			"type":      string(s.Content.Type),
			"mediaUrls": stringList(s.Content.MediaURLs),
		},
		"visibility":     string(s.Visibility),
		"allowedViewers": stringList(s.AllowedViewers),
		"display": map[string]any{
			"durationSeconds": int64(s.Display.DurationSeconds),
			"backgroundColor": s.Display.BackgroundColor,
			"aspectRatio":     s.Display.AspectRatio,
			"musicUrl":        s.Display.MusicURL,
		},
		"stats": map[string]any{
			"views":     s.Stats.Views,
			"reactions": encodeReactions(s.Stats.Reactions),
			"replies":   s.Stats.Replies,
			"shares":    s.Stats.Shares,
		},
		FieldIsDeleted: s.IsDeleted,
		FieldIsBanned:  s.IsBanned,
		FieldBanReason: s.BanReason,
		FieldIsEdited:  s.IsEdited,
		FieldCreatedAt: s.CreatedAt.UTC(),
		FieldUpdatedAt: s.UpdatedAt.UTC(),
		FieldExpiresAt: s.ExpiresAt.UTC(),
	}
}

// DecodeStory maps a remote document to a story.
func DecodeStory(id string, d remote.Document) models.Story {
	content := object(d, "content")
	display := object(d, "display")
	stats := object(d, "stats")

	s := models.Story{
		ID:       id,
		AuthorID: str(d, FieldAuthorID),
		Content: models.StoryContent{
			Caption:   str(content, "caption"),
			Type:      models.ParseContentType(str(content, "type")),
			MediaURLs: stringSlice(content, "mediaUrls"),
		},
		Visibility:     models.ParseVisibility(str(d, "visibility")),
		AllowedViewers: stringSlice(d, "allowedViewers"),
		Display: models.StoryDisplay{
			DurationSeconds: int(integer(display, "durationSeconds")),
			BackgroundColor: str(display, "backgroundColor"),
			AspectRatio:     str(display, "aspectRatio"),
			MusicURL:        str(display, "musicUrl"),
		},
		Stats: models.StoryStats{
			Views:     integer(stats, "views"),
			Reactions: decodeReactions(stats, "reactions"),
			Replies:   integer(stats, "replies"),
			Shares:    integer(stats, "shares"),
		},
		IsDeleted: boolean(d, FieldIsDeleted),
		IsBanned:  boolean(d, FieldIsBanned),
		BanReason: str(d, FieldBanReason),
		IsEdited:  boolean(d, FieldIsEdited),
		CreatedAt: timestamp(d, FieldCreatedAt),
		UpdatedAt: timestamp(d, FieldUpdatedAt),
		ExpiresAt: timestamp(d, FieldExpiresAt),
	}
	if s.ExpiresAt.IsZero() && !s.CreatedAt.IsZero() {
		s.ExpiresAt = s.CreatedAt.Add(models.StoryTTL)
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	return s
}

func encodeReactions(m map[models.ReactionType]int64) map[string]any {
	out := make(map[string]any, len(m))
	for t, n := range m {
		out[string(t)] = n
	}
	return out
}

// decodeReactions folds unknown reaction keys into the default type.
func decodeReactions(d map[string]any, key string) map[models.ReactionType]int64 {
	out := map[models.ReactionType]int64{}
	for k, n := range counts(d, key) {
		out[models.ParseReactionType(k)] += n
	}
	return out
}
