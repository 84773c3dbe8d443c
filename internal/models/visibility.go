package models

// Relations holds the ids of users the viewer is related to.
type Relations struct {
	Friends      []string
	CloseFriends []string
}

func (r Relations) isFriend(userID string) bool {
	return contains(r.Friends, userID) || contains(r.CloseFriends, userID)
}

func (r Relations) isCloseFriend(userID string) bool {
	return contains(r.CloseFriends, userID)
}

// audienceAllows resolves the visibility setting for a non-author viewer of viewable content.
func audienceAllows(authorID, viewerID string, v Visibility, allowed []string, rel Relations) bool {
	switch v {
	case VisibilityPublic:
		return true
	case VisibilityFriends:
		return rel.isFriend(authorID)
	case VisibilityCloseFriends:
		return rel.isCloseFriend(authorID)
	case VisibilityCustom:
		return contains(allowed, viewerID)
	default:
		return false
	}
}

func contains(list []string, s string) bool {
	if s == "" {
		return false
	}
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneReactions(m map[ReactionType]int64) map[ReactionType]int64 {
	out := make(map[ReactionType]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// applyReaction adds delta to the count of t, never going below zero.
func applyReaction(m map[ReactionType]int64, t ReactionType, delta int64) map[ReactionType]int64 {
	out := cloneReactions(m)
	out[t] = clampAdd(out[t], delta)
	if out[t] == 0 {
		delete(out, t)
	}
	return out
}

func clampAdd(v, delta int64) int64 {
	if v+delta < 0 {
		return 0
	}
	return v + delta
}
