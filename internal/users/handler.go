package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-editor/internal/shared/server/middleware"
	"resume-editor/internal/shared/server/respond"
)

// Handler exposes the signed-in user's own record.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	me := rg.Group("/me", middleware.RequireUser())
	me.GET("", h.me)
	me.PATCH("", h.update)
	me.DELETE("", h.delete)
}

// currentID resolves the caller's user id or writes a 401.
func (h *Handler) currentID(c *gin.Context) (int64, bool) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return 0, false
	}
	userID, ok := ParseSubject(middleware.UserIDFromContext(c))
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return 0, false
	}
	return userID, true
}

func (h *Handler) me(c *gin.Context) {
	c.Set("operation", "users.me")
	userID, ok := h.currentID(c)
	if !ok {
		return
	}
	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, user)
}

func (h *Handler) update(c *gin.Context) {
	c.Set("operation", "users.update")
	userID, ok := h.currentID(c)
	if !ok {
		return
	}
	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	user, err := h.Svc.Update(c.Request.Context(), userID, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, user)
}

func (h *Handler) delete(c *gin.Context) {
	c.Set("operation", "users.delete")
	userID, ok := h.currentID(c)
	if !ok {
		return
	}
	if _, err := h.Svc.Delete(c.Request.Context(), userID); err != nil {
		h.fail(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrEmailTaken):
		respond.Error(c, http.StatusConflict, "conflict", "email already in use", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process user", nil)
	}
}
