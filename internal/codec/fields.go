// Package codec maps entity models to and from remote documents. Every field is
// enumerated explicitly; missing or mistyped values decode to the field's default and
// unknown enum strings decode to the enum's documented default.
package codec

import (
	"time"

	"github.com/anonto42/nano-midea/storysync/internal/remote"
)

// Collection names.
const (
	StoriesCollection   = "stories"
	PostsCollection     = "posts"
	UsersCollection     = "users"
	ReactionsCollection = "reactions"
)

// Field paths used by queries and partial updates.
const (
	FieldAuthorID      = "authorId"
	FieldCreatedAt     = "createdAt"
	FieldUpdatedAt     = "updatedAt"
	FieldExpiresAt     = "expiresAt"
	FieldIsDeleted     = "isDeleted"
	FieldIsBanned      = "isBanned"
	FieldBanReason     = "banReason"
	FieldIsEdited      = "isEdited"
	FieldStatus        = "status"
	FieldHashtags      = "hashtags"
	FieldIsPinned      = "isPinned"
	FieldCaption       = "content.caption"
	FieldText          = "content.text"
	FieldMentions      = "mentions"
	FieldUsernameLower = "usernameLower"
	FieldUserCreatedAt = "metadata.createdAt"
	FieldEntityType    = "entityType"
	FieldEntityID      = "entityId"
	FieldUserID        = "userId"
	FieldType          = "type"
)

// Counter field paths.
const (
	FieldViews     = "stats.views"
	FieldShares    = "stats.shares"
	FieldReplies   = "stats.replies"
	FieldComments  = "stats.comments"
	FieldReactions = "stats.reactions"
)

// ReactionPath is the path of the aggregate count of t under stats.reactions.
func ReactionPath(t string) string {
	return FieldReactions + "." + t
}

// StatPath is the path of a counter under stats.
func StatPath(stat string) string {
	return "stats." + stat
}

func str(d map[string]any, key string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return ""
}

func boolean(d map[string]any, key string) bool {
	if b, ok := d[key].(bool); ok {
		return b
	}
	return false
}

func integer(d map[string]any, key string) int64 {
	switch n := d[key].(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

func timestamp(d map[string]any, key string) time.Time {
	switch t := d[key].(type) {
	case time.Time:
		return t.UTC()
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UTC()
		}
	case int64:
		return time.UnixMilli(t).UTC()
	}
	return time.Time{}
}

func optionalTime(d map[string]any, key string) *time.Time {
	t := timestamp(d, key)
	if t.IsZero() {
		return nil
	}
	return &t
}

func stringSlice(d map[string]any, key string) []string {
	var out []string
	switch list := d[key].(type) {
	case []string:
		out = append(out, list...)
	case []any:
		for _, v := range list {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func object(d map[string]any, key string) map[string]any {
	switch m := d[key].(type) {
	case map[string]any:
		return m
	case remote.Document:
		return m
	}
	return map[string]any{}
}

func counts(d map[string]any, key string) map[string]int64 {
	out := map[string]int64{}
	m := object(d, key)
	for k := range m {
		if n := integer(m, k); n > 0 {
			out[k] = n
		}
	}
	return out
}

func stringList(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
