package models

import "strings"

// ContentType is the kind of media a story or post carries.
type ContentType string

const (
	ContentText  ContentType = "TEXT"
	ContentImage ContentType = "IMAGE"
	ContentVideo ContentType = "VIDEO"
)

// ParseContentType returns ContentText for unknown values.
func ParseContentType(s string) ContentType {
	switch ContentType(strings.ToUpper(strings.TrimSpace(s))) {
	case ContentImage:
		return ContentImage
	case ContentVideo:
		return ContentVideo
	default:
		return ContentText
	}
}

// Visibility controls who may view a story or post.
type Visibility string

const (
	VisibilityPublic       Visibility = "PUBLIC"
	VisibilityFriends      Visibility = "FRIENDS"
	VisibilityCloseFriends Visibility = "CLOSE_FRIENDS"
	VisibilityCustom       Visibility = "CUSTOM"
	VisibilityPrivate      Visibility = "PRIVATE"
)

// ParseVisibility returns VisibilityPublic for unknown values.
func ParseVisibility(s string) Visibility {
	switch v := Visibility(strings.ToUpper(strings.TrimSpace(s))); v {
	case VisibilityFriends, VisibilityCloseFriends, VisibilityCustom, VisibilityPrivate:
		return v
	default:
		return VisibilityPublic
	}
}

// PostStatus is the lifecycle state of a post.
type PostStatus string

const (
	PostActive   PostStatus = "ACTIVE"
	PostDeleted  PostStatus = "DELETED"
	PostArchived PostStatus = "ARCHIVED"
	PostDraft    PostStatus = "DRAFT"
)

// ParsePostStatus returns PostActive for unknown values.
func ParsePostStatus(s string) PostStatus {
	switch v := PostStatus(strings.ToUpper(strings.TrimSpace(s))); v {
	case PostDeleted, PostArchived, PostDraft:
		return v
	default:
		return PostActive
	}
}

// ReactionType is one of the supported reactions.
type ReactionType string

const (
	ReactionLike  ReactionType = "LIKE"
	ReactionLove  ReactionType = "LOVE"
	ReactionHaha  ReactionType = "HAHA"
	ReactionWow   ReactionType = "WOW"
	ReactionSad   ReactionType = "SAD"
	ReactionAngry ReactionType = "ANGRY"
	ReactionCare  ReactionType = "CARE"
)

// ReactionTypes lists every reaction type in display order.
var ReactionTypes = []ReactionType{
	ReactionLike, ReactionLove, ReactionHaha, ReactionWow, ReactionSad, ReactionAngry, ReactionCare,
}

// ParseReactionType returns ReactionLike for unknown values.
func ParseReactionType(s string) ReactionType {
	v := ReactionType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range ReactionTypes {
		if t == v {
			return v
		}
	}
	return ReactionLike
}

// IsValidReactionType reports whether s names a known reaction without falling back.
func IsValidReactionType(s string) bool {
	for _, t := range ReactionTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

// EntityType names the parent of a reaction.
type EntityType string

const (
	EntityStory EntityType = "STORY"
	EntityPost  EntityType = "POST"
)

// ParseEntityType returns EntityStory for unknown values.
func ParseEntityType(s string) EntityType {
	if EntityType(strings.ToUpper(strings.TrimSpace(s))) == EntityPost {
		return EntityPost
	}
	return EntityStory
}
