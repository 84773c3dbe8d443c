package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-midea/storysync/internal/middleware"
	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/repositories"
)

// StoryHandler handles story-related HTTP requests
type StoryHandler struct {
	storyRepository repositories.StoryRepository
	clock           func() time.Time
}

// NewStoryHandler creates a new StoryHandler
func NewStoryHandler(storyRepo repositories.StoryRepository) *StoryHandler {
	return &StoryHandler{storyRepository: storyRepo, clock: time.Now}
}

// RegisterStoryRoutes registers story-related routes
func (h *StoryHandler) RegisterStoryRoutes(g *echo.Group) {
	g.GET("/stories", h.GetStories)
	g.GET("/stories/:id", h.GetStory)
	g.POST("/stories", h.CreateStory)
	g.PUT("/stories/:id", h.EditCaption)
	g.DELETE("/stories/:id", h.DeleteStory)
	g.POST("/stories/:id/view", h.counter(repositories.StoryViews))
	g.POST("/stories/:id/share", h.counter(repositories.StoryShares))
	g.GET("/users/:id/stories", h.GetUserStories)
}

// GetStories returns one page of active stories the viewer may see
func (h *StoryHandler) GetStories(c echo.Context) error {
	req, err := bindPage(c)
	if err != nil {
		return err
	}
	page, err := h.storyRepository.FetchPage(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	page.Items = visibleStories(page.Items, middleware.ViewerID(c), h.clock())
	return ok(c, http.StatusOK, page)
}

// GetStory returns a single story. Stories the viewer may not see are reported as missing.
func (h *StoryHandler) GetStory(c echo.Context) error {
	story, err := h.storyRepository.FetchByID(c.Request().Context(), c.Param("id"), forceParam(c))
	if err != nil {
		return httpError(err)
	}
	if !story.CanView(middleware.ViewerID(c), noRelations, h.clock()) {
		return echo.NewHTTPError(http.StatusNotFound, "Story not found")
	}
	return ok(c, http.StatusOK, echo.Map{"story": story})
}

// CreateStory creates a new story authored by the viewer
func (h *StoryHandler) CreateStory(c echo.Context) error {
	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}
	var req models.CreateStoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	story := models.NewStory(viewer, models.StoryContent{
		Caption:   req.Caption,
		Type:      models.ParseContentType(req.Type),
		MediaURLs: req.MediaURLs,
	}, h.clock())
	story.Visibility = models.ParseVisibility(req.Visibility)
	story.AllowedViewers = req.AllowedViewers
	story.Display.BackgroundColor = req.BackgroundColor
	story.Display.AspectRatio = req.AspectRatio
	story.Display.MusicURL = req.MusicURL
	if req.DurationSeconds > 0 {
		story.Display.DurationSeconds = req.DurationSeconds
	}

	created, err := h.storyRepository.Push(c.Request().Context(), story)
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusCreated, echo.Map{"story": created})
}

// EditCaption changes the caption of one of the viewer's stories
func (h *StoryHandler) EditCaption(c echo.Context) error {
	if err := h.requireAuthor(c); err != nil {
		return err
	}
	var req models.EditCaptionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	story, err := h.storyRepository.EditCaption(c.Request().Context(), c.Param("id"), req.Caption)
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"story": story})
}

// DeleteStory soft-deletes one of the viewer's stories
func (h *StoryHandler) DeleteStory(c echo.Context) error {
	if err := h.requireAuthor(c); err != nil {
		return err
	}
	if err := h.storyRepository.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"deleted": true})
}

// GetUserStories lists the stories of one author
func (h *StoryHandler) GetUserStories(c echo.Context) error {
	stories, err := h.storyRepository.FetchByAuthor(c.Request().Context(), c.Param("id"), forceParam(c))
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"stories": visibleStories(stories, middleware.ViewerID(c), h.clock())})
}

func (h *StoryHandler) counter(counter repositories.StoryCounter) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := h.storyRepository.IncrementCounter(c.Request().Context(), c.Param("id"), counter)
		return applied(c, echo.Map{"counter": counter}, err)
	}
}

func (h *StoryHandler) requireAuthor(c echo.Context) error {
	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}
	story, err := h.storyRepository.FetchByID(c.Request().Context(), c.Param("id"), false)
	if err != nil {
		return httpError(err)
	}
	if story.AuthorID != viewer {
		return httpError(models.ErrForbidden)
	}
	return nil
}

func visibleStories(stories []models.Story, viewer string, now time.Time) []models.Story {
	out := make([]models.Story, 0, len(stories))
	for _, s := range stories {
		if s.CanView(viewer, noRelations, now) {
			out = append(out, s)
		}
	}
	return out
}
