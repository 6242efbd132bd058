package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"resume-editor/internal/shared/auth"
	"resume-editor/internal/shared/server/middleware"
)

func newHandlerRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := NewService(NewMemoryRepo())
	r := gin.New()
	r.Use(middleware.Auth("test"))
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r, svc
}

func bearer(t *testing.T, id int64) string {
	t.Helper()
	token, err := auth.SignJWT(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: Subject(id)}})
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return "Bearer " + token
}

func do(r *gin.Engine, method, path, authz, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	} else {
		req.Header.Set("X-Guest-Id", "g-1")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestMeLifecycle(t *testing.T) {
	r, svc := newHandlerRouter(t)
	u, err := svc.Create(context.Background(), CreateInput{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	authz := bearer(t, u.ID)

	if rec := do(r, http.MethodGet, "/api/v1/me", authz, ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ada@example.com") {
		t.Fatalf("get me = %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(r, http.MethodPatch, "/api/v1/me", authz, `{"name":"Ada"}`); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"Ada"`) {
		t.Fatalf("patch me = %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(r, http.MethodPatch, "/api/v1/me", authz, `{"email":"not-an-email"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid patch = %d", rec.Code)
	}
	if rec := do(r, http.MethodDelete, "/api/v1/me", authz, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete me = %d", rec.Code)
	}
	if rec := do(r, http.MethodGet, "/api/v1/me", authz, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", rec.Code)
	}
}

func TestMeRejectsGuests(t *testing.T) {
	r, _ := newHandlerRouter(t)
	if rec := do(r, http.MethodGet, "/api/v1/me", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("guest get me = %d", rec.Code)
	}
}
