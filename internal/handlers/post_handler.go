package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-midea/storysync/internal/middleware"
	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/repositories"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository repositories.PostRepository
	clock          func() time.Time
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository) *PostHandler {
	return &PostHandler{postRepository: postRepo, clock: time.Now}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.GET("/posts", h.GetPosts)
	g.GET("/posts/:id", h.GetPost)
	g.POST("/posts", h.CreatePost)
	g.PUT("/posts/:id", h.UpdatePost)
	g.POST("/posts/:id/archive", h.ArchivePost)
	g.POST("/posts/:id/pin", h.pin(true))
	g.DELETE("/posts/:id/pin", h.pin(false))
	g.DELETE("/posts/:id", h.DeletePost)
	g.POST("/posts/:id/view", h.counter(repositories.PostViews))
	g.POST("/posts/:id/share", h.counter(repositories.PostShares))
	g.GET("/hashtags/:tag/posts", h.GetHashtagPosts)
	g.GET("/users/:id/posts", h.GetUserPosts)
}

func (h *PostHandler) GetPosts(c echo.Context) error {
	req, err := bindPage(c)
	if err != nil {
		return err
	}
	page, err := h.postRepository.FetchPage(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	page.Items = visiblePosts(page.Items, middleware.ViewerID(c))
	return ok(c, http.StatusOK, page)
}

func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.postRepository.FetchByID(c.Request().Context(), c.Param("id"), forceParam(c))
	if err != nil {
		return httpError(err)
	}
	if !post.CanView(middleware.ViewerID(c), noRelations) {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}
	return ok(c, http.StatusOK, echo.Map{"post": post})
}

// CreatePost creates a new post authored by the viewer
func (h *PostHandler) CreatePost(c echo.Context) error {
	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	post := models.NewPost(viewer, models.PostContent{
		Text:      req.Text,
		Type:      models.ParseContentType(req.Type),
		MediaURLs: req.MediaURLs,
	}, h.clock())
	post.Visibility = models.ParseVisibility(req.Visibility)
	post.AllowedViewers = req.AllowedViewers
	post.ParentPostID = req.ParentPostID
	post.PageID = req.PageID
	post.GroupID = req.GroupID
	if req.Draft {
		post.Status = models.PostDraft
	}

	created, err := h.postRepository.Push(c.Request().Context(), post)
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusCreated, echo.Map{"post": created})
}

// UpdatePost replaces the text of one of the viewer's posts
func (h *PostHandler) UpdatePost(c echo.Context) error {
	if err := h.requireAuthor(c); err != nil {
		return err
	}
	var req models.UpdatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	post, err := h.postRepository.EditText(c.Request().Context(), c.Param("id"), req.Text)
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"post": post})
}

func (h *PostHandler) ArchivePost(c echo.Context) error {
	if err := h.requireAuthor(c); err != nil {
		return err
	}
	post, err := h.postRepository.Archive(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"post": post})
}

func (h *PostHandler) DeletePost(c echo.Context) error {
	if err := h.requireAuthor(c); err != nil {
		return err
	}
	if err := h.postRepository.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"deleted": true})
}

func (h *PostHandler) GetHashtagPosts(c echo.Context) error {
	posts, err := h.postRepository.FetchByHashtag(c.Request().Context(), c.Param("tag"), forceParam(c))
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"posts": visiblePosts(posts, middleware.ViewerID(c))})
}

func (h *PostHandler) GetUserPosts(c echo.Context) error {
	posts, err := h.postRepository.FetchByAuthor(c.Request().Context(), c.Param("id"), forceParam(c))
	if err != nil {
		return httpError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"posts": visiblePosts(posts, middleware.ViewerID(c))})
}

func (h *PostHandler) pin(pinned bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := h.requireAuthor(c); err != nil {
			return err
		}
		post, err := h.postRepository.Pin(c.Request().Context(), c.Param("id"), pinned)
		if err != nil {
			return httpError(err)
		}
		return ok(c, http.StatusOK, echo.Map{"post": post})
	}
}

func (h *PostHandler) counter(counter repositories.PostCounter) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := h.postRepository.IncrementCounter(c.Request().Context(), c.Param("id"), counter)
		return applied(c, echo.Map{"counter": counter}, err)
	}
}

func (h *PostHandler) requireAuthor(c echo.Context) error {
	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}
	post, err := h.postRepository.FetchByID(c.Request().Context(), c.Param("id"), false)
	if err != nil {
		return httpError(err)
	}
	if post.AuthorID != viewer {
		return httpError(models.ErrForbidden)
	}
	return nil
}

func visiblePosts(posts []models.Post, viewer string) []models.Post {
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if p.CanView(viewer, noRelations) {
			out = append(out, p)
		}
	}
	return out
}
