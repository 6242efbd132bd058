package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

const corsMaxAgeSeconds = 600

// NewCORS builds the CORS policy for the given origins.
func NewCORS(allowedOrigins []string) *cors.Cors {
	var origins []string
	for _, o := range allowedOrigins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Guest-Id", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           corsMaxAgeSeconds,
	})
}

// WrapCORS wraps h with the CORS policy. Preflight requests are answered
// before they reach the router.
func WrapCORS(h http.Handler, allowedOrigins []string) http.Handler {
	return NewCORS(allowedOrigins).Handler(h)
}
