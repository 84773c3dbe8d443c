package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/repositories"
)

// ReactionHandler handles reactions on stories and posts
type ReactionHandler struct {
	reactionRepository repositories.ReactionRepository
}

// NewReactionHandler creates a new ReactionHandler
func NewReactionHandler(reactionRepo repositories.ReactionRepository) *ReactionHandler {
	return &ReactionHandler{reactionRepository: reactionRepo}
}

// RegisterReactionRoutes registers reaction routes for both entity types
func (h *ReactionHandler) RegisterReactionRoutes(g *echo.Group) {
	for prefix, entity := range map[string]models.EntityType{
		"/stories/:id": models.EntityStory,
		"/posts/:id":   models.EntityPost,
	} {
		g.POST(prefix+"/react", h.react(entity))
		g.GET(prefix+"/reactions", h.reactors(entity))
		g.GET(prefix+"/reaction", h.mine(entity))
	}
}

// react toggles the viewer's reaction. When the remote store is unreachable the change is
// kept locally and reported with synced=false.
func (h *ReactionHandler) react(entity models.EntityType) echo.HandlerFunc {
	return func(c echo.Context) error {
		viewer, err := requireViewer(c)
		if err != nil {
			return err
		}
		var req models.ReactRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
		change, err := h.reactionRepository.React(c.Request().Context(), entity, c.Param("id"), viewer, models.ReactionType(req.Type))
		return applied(c, change, err)
	}
}

func (h *ReactionHandler) reactors(entity models.EntityType) echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := h.reactionRepository.FetchReactors(c.Request().Context(), entity, c.Param("id"), forceParam(c))
		if err != nil {
			return httpError(err)
		}
		return ok(c, http.StatusOK, echo.Map{"reactions": list})
	}
}

func (h *ReactionHandler) mine(entity models.EntityType) echo.HandlerFunc {
	return func(c echo.Context) error {
		viewer, err := requireViewer(c)
		if err != nil {
			return err
		}
		t, err := h.reactionRepository.UserReaction(c.Request().Context(), entity, c.Param("id"), viewer)
		if err != nil {
			return httpError(err)
		}
		return ok(c, http.StatusOK, echo.Map{"reaction": t})
	}
}
