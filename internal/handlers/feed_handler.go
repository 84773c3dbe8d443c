package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-midea/storysync/internal/middleware"
	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/repositories"
)

// FeedHandler serves author-hydrated feeds
type FeedHandler struct {
	postRepository     repositories.PostRepository
	storyRepository    repositories.StoryRepository
	reactionRepository repositories.ReactionRepository
	clock              func() time.Time
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(
	postRepo repositories.PostRepository,
	storyRepo repositories.StoryRepository,
	reactionRepo repositories.ReactionRepository,
) *FeedHandler {
	return &FeedHandler{
		postRepository:     postRepo,
		storyRepository:    storyRepo,
		reactionRepository: reactionRepo,
		clock:              time.Now,
	}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
	g.GET("/feed/stories", h.GetStoryFeed)
}

// EnrichedPost is a post with author info and the viewer's reaction
type EnrichedPost struct {
	models.PostWithAuthor
	MyReaction models.ReactionType `json:"my_reaction,omitempty"`
}

// GetFeed returns one page of posts joined with their authors
func (h *FeedHandler) GetFeed(c echo.Context) error {
	req, err := bindPage(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	viewer := middleware.ViewerID(c)

	page, err := h.postRepository.FetchFeed(ctx, req)
	if err != nil {
		return httpError(err)
	}

	posts := make([]EnrichedPost, 0, len(page.Items))
	for _, p := range page.Items {
		if !p.CanView(viewer, noRelations) {
			continue
		}
		item := EnrichedPost{PostWithAuthor: p}
		if viewer != "" {
			// A failed lookup only loses the highlight
			item.MyReaction, _ = h.reactionRepository.UserReaction(ctx, models.EntityPost, p.ID, viewer)
		}
		posts = append(posts, item)
	}

	return ok(c, http.StatusOK, echo.Map{"posts": posts, "next": page.Next})
}

// GetStoryFeed returns one page of active stories joined with their authors.
// The viewer's own stories are split out.
func (h *FeedHandler) GetStoryFeed(c echo.Context) error {
	req, err := bindPage(c)
	if err != nil {
		return err
	}
	viewer := middleware.ViewerID(c)
	now := h.clock()

	page, err := h.storyRepository.FetchFeed(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}

	own := make([]models.StoryWithAuthor, 0)
	others := make([]models.StoryWithAuthor, 0, len(page.Items))
	for _, s := range page.Items {
		switch {
		case viewer != "" && s.AuthorID == viewer:
			own = append(own, s)
		case s.CanView(viewer, noRelations, now):
			others = append(others, s)
		}
	}

	return ok(c, http.StatusOK, echo.Map{
		"stories":              others,
		"current_user_stories": own,
		"next":                 page.Next,
	})
}
