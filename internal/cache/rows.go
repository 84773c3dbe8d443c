package cache

import (
	"time"

	"gorm.io/datatypes"

	"github.com/anonto42/nano-midea/storysync/internal/models"
)

// Nested lists and maps are stored as JSON columns; everything else is flattened.

type storyRow struct {
	ID              string `gorm:"primaryKey;size:191"`
	AuthorID        string `gorm:"index;size:191"`
	Caption         string
	ContentType     string                       `gorm:"size:16"`
	MediaURLs       datatypes.JSONSlice[string] `gorm:"column:media_urls"`
	Visibility      string                       `gorm:"size:16"`
	AllowedViewers  datatypes.JSONSlice[string]
	DurationSeconds int
	BackgroundColor string
	AspectRatio     string
	MusicURL        string `gorm:"column:music_url"`
	Views           int64
	Reactions       datatypes.JSONType[map[string]int64]
	Replies         int64
	Shares          int64
	IsDeleted       bool
	IsBanned        bool
	BanReason       string
	IsEdited        bool
	CreatedAt       time.Time `gorm:"index;autoCreateTime:false"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime:false"`
	ExpiresAt       time.Time `gorm:"index"`
}

func (storyRow) TableName() string { return "stories" }

type postRow struct {
	ID             string `gorm:"primaryKey;size:191"`
	AuthorID       string `gorm:"index;size:191"`
	Text           string
	ContentType    string                       `gorm:"size:16"`
	MediaURLs      datatypes.JSONSlice[string] `gorm:"column:media_urls"`
	Hashtags       datatypes.JSONSlice[string]
	Mentions       datatypes.JSONSlice[string]
	ParentPostID   string
	PageID         string
	GroupID        string
	IsSponsored    bool
	IsPinned       bool
	Visibility     string `gorm:"size:16"`
	AllowedViewers datatypes.JSONSlice[string]
	Views          int64
	Reactions      datatypes.JSONType[map[string]int64]
	Comments       int64
	Shares         int64
	Status         string `gorm:"index;size:16"`
	IsEdited       bool
	IsBanned       bool
	BanReason      string
	CreatedAt      time.Time `gorm:"index;autoCreateTime:false"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false"`
}

func (postRow) TableName() string { return "posts" }

type userRow struct {
	ID               string `gorm:"primaryKey;size:191"`
	Username         string
	UsernameLower    string `gorm:"index;size:191"`
	DisplayName      string
	Email            string
	AvatarURL        string `gorm:"column:avatar_url"`
	CoverURL         string `gorm:"column:cover_url"`
	Bio              string
	Gender           string
	Location         string
	BirthDate        *time.Time
	Posts            int64
	Followers        int64
	Following        int64
	Stories          int64
	Likes            int64
	Comments         int64
	CreatedAt        time.Time `gorm:"index;autoCreateTime:false"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime:false"`
	LastLoginAt      *time.Time
	LastLogoutAt     *time.Time
	IsVerified       bool
	IsEmailVerified  bool
	IsSuspended      bool
	SuspensionReason string
	SuspendedUntil   *time.Time
	IsBanned         bool
	IsPrivate        bool
	LastDeviceID     string `gorm:"column:last_device_id"`
	LastIPAddress    string `gorm:"column:last_ip_address"`
	LastAccessedAt   time.Time `gorm:"index"`
}

func (userRow) TableName() string { return "users" }

type reactionRow struct {
	ID         string `gorm:"primaryKey;size:191"`
	EntityType string `gorm:"index:idx_reactions_entity;size:16"`
	EntityID   string `gorm:"index:idx_reactions_entity;size:191"`
	UserID     string `gorm:"index;size:191"`
	Type       string `gorm:"size:16"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false"`
}

func (reactionRow) TableName() string { return "reactions" }

func toStoryRow(s models.Story) storyRow {
	return storyRow{
		ID:              s.ID,
		AuthorID:        s.AuthorID,
		Caption:         s.Content.Caption,
		ContentType:     string(s.Content.Type),
		MediaURLs:       s.Content.MediaURLs,
		Visibility:      string(s.Visibility),
		AllowedViewers:  s.AllowedViewers,
		DurationSeconds: s.Display.DurationSeconds,
		BackgroundColor: s.Display.BackgroundColor,
		AspectRatio:     s.Display.AspectRatio,
		MusicURL:        s.Display.MusicURL,
		Views:           s.Stats.Views,
		Reactions:       datatypes.NewJSONType(reactionsToColumn(s.Stats.Reactions)),
		Replies:         s.Stats.Replies,
		Shares:          s.Stats.Shares,
		IsDeleted:       s.IsDeleted,
		IsBanned:        s.IsBanned,
		BanReason:       s.BanReason,
		IsEdited:        s.IsEdited,
		CreatedAt:       s.CreatedAt.UTC(),
		UpdatedAt:       s.UpdatedAt.UTC(),
		ExpiresAt:       s.ExpiresAt.UTC(),
	}
}

func (r storyRow) model() models.Story {
	return models.Story{
		ID:       r.ID,
		AuthorID: r.AuthorID,
		Content: models.StoryContent{
			Caption:   r.Caption,
			Type:      models.ParseContentType(r.ContentType),
			MediaURLs: r.MediaURLs,
		},
		Visibility:     models.ParseVisibility(r.Visibility),
		AllowedViewers: r.AllowedViewers,
		Display: models.StoryDisplay{
			DurationSeconds: r.DurationSeconds,
			BackgroundColor: r.BackgroundColor,
			AspectRatio:     r.AspectRatio,
			MusicURL:        r.MusicURL,
		},
		Stats: models.StoryStats{
			Views:     r.Views,
			Reactions: reactionsFromColumn(r.Reactions.Data()),
			Replies:   r.Replies,
			Shares:    r.Shares,
		},
		IsDeleted: r.IsDeleted,
		IsBanned:  r.IsBanned,
		BanReason: r.BanReason,
		IsEdited:  r.IsEdited,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
		ExpiresAt: r.ExpiresAt.UTC(),
	}
}

func toPostRow(p models.Post) postRow {
	return postRow{
		ID:             p.ID,
		AuthorID:       p.AuthorID,
		Text:           p.Content.Text,
		ContentType:    string(p.Content.Type),
		MediaURLs:      p.Content.MediaURLs,
		Hashtags:       p.Hashtags,
		Mentions:       p.Mentions,
		ParentPostID:   p.ParentPostID,
		PageID:         p.PageID,
		GroupID:        p.GroupID,
		IsSponsored:    p.IsSponsored,
		IsPinned:       p.IsPinned,
		Visibility:     string(p.Visibility),
		AllowedViewers: p.AllowedViewers,
		Views:          p.Stats.Views,
		Reactions:      datatypes.NewJSONType(reactionsToColumn(p.Stats.Reactions)),
		Comments:       p.Stats.Comments,
		Shares:         p.Stats.Shares,
		Status:         string(p.Status),
		IsEdited:       p.IsEdited,
		IsBanned:       p.IsBanned,
		BanReason:      p.BanReason,
		CreatedAt:      p.CreatedAt.UTC(),
		UpdatedAt:      p.UpdatedAt.UTC(),
	}
}

func (r postRow) model() models.Post {
	return models.Post{
		ID:       r.ID,
		AuthorID: r.AuthorID,
		Content: models.PostContent{
			Text:      r.Text,
			Type:      models.ParseContentType(r.ContentType),
			MediaURLs: r.MediaURLs,
		},
		Hashtags:       r.Hashtags,
		Mentions:       r.Mentions,
		ParentPostID:   r.ParentPostID,
		PageID:         r.PageID,
		GroupID:        r.GroupID,
		IsSponsored:    r.IsSponsored,
		IsPinned:       r.IsPinned,
		Visibility:     models.ParseVisibility(r.Visibility),
		AllowedViewers: r.AllowedViewers,
		Stats: models.PostStats{
			Views:     r.Views,
			Reactions: reactionsFromColumn(r.Reactions.Data()),
			Comments:  r.Comments,
			Shares:    r.Shares,
		},
		Status:    models.ParsePostStatus(r.Status),
		IsEdited:  r.IsEdited,
		IsBanned:  r.IsBanned,
		BanReason: r.BanReason,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func toUserRow(u models.User, accessedAt time.Time) userRow {
	p, s, m := u.Profile, u.Stats, u.Metadata
	return userRow{
		ID:               u.ID,
		Username:         p.Username,
		UsernameLower:    u.NormalizedUsername(),
		DisplayName:      p.DisplayName,
		Email:            p.Email,
		AvatarURL:        p.AvatarURL,
		CoverURL:         p.CoverURL,
		Bio:              p.Bio,
		Gender:           p.Gender,
		Location:         p.Location,
		BirthDate:        utcPtr(p.BirthDate),
		Posts:            s.Posts,
		Followers:        s.Followers,
		Following:        s.Following,
		Stories:          s.Stories,
		Likes:            s.Likes,
		Comments:         s.Comments,
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
		LastLoginAt:      utcPtr(m.LastLoginAt),
		LastLogoutAt:     utcPtr(m.LastLogoutAt),
		IsVerified:       m.IsVerified,
		IsEmailVerified:  m.IsEmailVerified,
		IsSuspended:      m.IsSuspended,
		SuspensionReason: m.SuspensionReason,
		SuspendedUntil:   utcPtr(m.SuspendedUntil),
		IsBanned:         m.IsBanned,
		IsPrivate:        m.IsPrivate,
		LastDeviceID:     m.LastDeviceID,
		LastIPAddress:    m.LastIPAddress,
		LastAccessedAt:   accessedAt.UTC(),
	}
}

func (r userRow) model() models.User {
	return models.User{
		ID: r.ID,
		Profile: models.Profile{
			Username:    r.Username,
			DisplayName: r.DisplayName,
			Email:       r.Email,
			AvatarURL:   r.AvatarURL,
			CoverURL:    r.CoverURL,
			Bio:         r.Bio,
			Gender:      r.Gender,
			Location:    r.Location,
			BirthDate:   utcPtr(r.BirthDate),
		},
		Stats: models.UserStats{
			Posts:     r.Posts,
			Followers: r.Followers,
			Following: r.Following,
			Stories:   r.Stories,
			Likes:     r.Likes,
			Comments:  r.Comments,
		},
		Metadata: models.UserMetadata{
			CreatedAt:        r.CreatedAt.UTC(),
			UpdatedAt:        r.UpdatedAt.UTC(),
			LastLoginAt:      utcPtr(r.LastLoginAt),
			LastLogoutAt:     utcPtr(r.LastLogoutAt),
			IsVerified:       r.IsVerified,
			IsEmailVerified:  r.IsEmailVerified,
			IsSuspended:      r.IsSuspended,
			SuspensionReason: r.SuspensionReason,
			SuspendedUntil:   utcPtr(r.SuspendedUntil),
			IsBanned:         r.IsBanned,
			IsPrivate:        r.IsPrivate,
			LastDeviceID:     r.LastDeviceID,
			LastIPAddress:    r.LastIPAddress,
		},
	}
}

func toReactionRow(a models.ReactionActivity) reactionRow {
	return reactionRow{
		ID:         a.ID,
		EntityType: string(a.EntityType),
		EntityID:   a.EntityID,
		UserID:     a.UserID,
		Type:       string(a.Type),
		CreatedAt:  a.CreatedAt.UTC(),
	}
}

func (r reactionRow) model() models.ReactionActivity {
	return models.ReactionActivity{
		ID:         r.ID,
		EntityType: models.ParseEntityType(r.EntityType),
		EntityID:   r.EntityID,
		UserID:     r.UserID,
		Type:       models.ParseReactionType(r.Type),
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func reactionsToColumn(m map[models.ReactionType]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for t, n := range m {
		if n > 0 {
			out[string(t)] = n
		}
	}
	return out
}

func reactionsFromColumn(m map[string]int64) map[models.ReactionType]int64 {
	out := make(map[models.ReactionType]int64, len(m))
	for k, n := range m {
		if n > 0 {
			out[models.ParseReactionType(k)] += n
		}
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
