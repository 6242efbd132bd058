package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-editor/internal/shared/config"
	"resume-editor/internal/shared/metrics"
	"resume-editor/internal/shared/server/middleware"
	"resume-editor/internal/shared/server/respond"
)

// RouteRegistrar mounts a feature's routes on the API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps lists the handlers wired into the engine. Nil entries are skipped.
type RouterDeps struct {
	Config     config.Config
	Health     gin.HandlerFunc
	Handlers   []RouteRegistrar
	RateGroups func(*gin.Context) string
	RateRules  map[string]middleware.RateLimitRule
}

// DefaultRateRules are the per-principal token buckets used by the API.
func DefaultRateRules() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		"TOGGLE":  {Rate: 2, Burst: 10},
		"CREATE":  {Rate: 0.5, Burst: 5},
		"READ":    {Rate: 20, Burst: 60},
		"DEFAULT": {Rate: 10, Burst: 30},
	}
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	switch deps.Config.Env {
	case "production", "staging":
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	rules := deps.RateRules
	if rules == nil {
		rules = DefaultRateRules()
	}
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	health := deps.Health
	if health == nil {
		health = func(c *gin.Context) {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
		}
	}
	api.GET("/health", health)

	limited := api.Group("",
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    rules,
			GroupFor: deps.RateGroups,
		}),
	)
	for _, h := range deps.Handlers {
		if h == nil {
			continue
		}
		h.RegisterRoutes(limited)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
