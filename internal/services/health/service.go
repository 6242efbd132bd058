package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-editor/internal/shared/server/respond"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Status is the health payload.
type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	Sessions int    `json:"sessions"`
}

// Service encapsulates health-related checks.
type Service struct {
	DB       Pinger
	Sessions func() int
}

// NewService constructs a new health service. db may be nil when the
// in-memory repositories are in use.
func NewService(db Pinger, sessions func() int) *Service {
	return &Service{DB: db, Sessions: sessions}
}

// Status reports database reachability and the live session count.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{OK: true, Database: "memory"}
	if s == nil {
		return st
	}
	if s.Sessions != nil {
		st.Sessions = s.Sessions()
	}
	if s.DB == nil {
		return st
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		st.OK = false
		st.Database = "unreachable"
		return st
	}
	st.Database = "ok"
	return st
}

// Handle serves the status as JSON, 503 when a dependency is down.
func (s *Service) Handle(c *gin.Context) {
	st := s.Status(c.Request.Context())
	code := http.StatusOK
	if !st.OK {
		code = http.StatusServiceUnavailable
	}
	respond.JSON(c, code, st)
}
