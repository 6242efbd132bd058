package graph

import (
	"github.com/gin-gonic/gin"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"resume-editor/internal/shared/server/middleware"
)

type Handler struct {
	Schema *graphql.Schema
}

func NewHandler(schema *graphql.Schema) *Handler {
	return &Handler{Schema: schema}
}

// RegisterRoutes mounts POST /graphql. Guests are rejected before the
// resolvers run; the resolvers check identity again for in-process callers.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/graphql", middleware.RequireUser(), gin.WrapH(&relay.Handler{Schema: h.Schema}))
}
