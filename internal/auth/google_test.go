package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	sharedauth "resume-editor/internal/shared/auth"
	"resume-editor/internal/users"
)

func newGoogleProvider(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"g-123","email":"ada@example.com","name":"Ada","picture":"https://pic"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogleCallbackUpsertsUserAndIssuesToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENV", "dev")

	provider := newGoogleProvider(t)
	userSvc := users.NewService(users.NewMemoryRepo())
	svc := NewGoogleService("client", "secret", "http://localhost/cb", "http://localhost:5173/auth", userSvc)
	svc.oauthConfig.Endpoint = oauth2.Endpoint{AuthURL: provider.URL + "/auth", TokenURL: provider.URL + "/token"}
	svc.userInfoURL = provider.URL + "/userinfo"
	svc.stateStore.put("state-1", pendingLogin{expires: time.Now().Add(time.Minute)})

	router := gin.New()
	svc.RegisterRoutes(router.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state=state-1&code=abc", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", resp.Code, resp.Body.String())
	}
	loc, err := url.Parse(resp.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if !strings.HasPrefix(loc.String(), "http://localhost:5173/auth") {
		t.Fatalf("unexpected redirect %s", loc)
	}
	claims, err := sharedauth.VerifyJWT(loc.Query().Get("token"))
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	id, ok := users.ParseSubject(claims.Subject)
	if !ok {
		t.Fatalf("expected numeric subject, got %q", claims.Subject)
	}
	user, err := userSvc.GetByID(req.Context(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.Email != "ada@example.com" || user.GoogleSub != "g-123" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestGoogleCallbackRejectsUnknownState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewGoogleService("client", "secret", "http://localhost/cb", "http://localhost:5173", nil)
	router := gin.New()
	svc.RegisterRoutes(router.Group("/api/v1"))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state=nope&code=abc", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStateStoreConsumesOnce(t *testing.T) {
	store := newStateStore()
	now := time.Now()
	store.put("s", pendingLogin{expires: now.Add(time.Minute), guestID: "g1"})
	p, ok := store.consume("s", now)
	if !ok || p.guestID != "g1" {
		t.Fatalf("expected first consume to succeed, got %+v %v", p, ok)
	}
	if _, ok := store.consume("s", now); ok {
		t.Fatalf("expected second consume to fail")
	}
	store.put("old", pendingLogin{expires: now.Add(-time.Second)})
	if _, ok := store.consume("old", now); ok {
		t.Fatalf("expected expired state to fail")
	}
	store.put("fresh", pendingLogin{expires: now.Add(time.Minute)})
	if _, stale := store.items["old"]; stale {
		t.Fatalf("expected put to drop expired states")
	}
}

func TestAppendToken(t *testing.T) {
	got, err := appendToken("http://localhost:5173/cb?x=1", "tok", 0)
	if err != nil {
		t.Fatalf("appendToken: %v", err)
	}
	if got != "http://localhost:5173/cb?token=tok&x=1" {
		t.Fatalf("unexpected url %s", got)
	}
	got, err = appendToken("http://localhost:5173/cb", "tok", 2)
	if err != nil || got != "http://localhost:5173/cb?claimed=2&token=tok" {
		t.Fatalf("unexpected url %s (%v)", got, err)
	}
	if _, err := appendToken("", "tok", 0); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

type fakeClaimer struct {
	from, to string
	moved    int
}

func (f *fakeClaimer) ClaimGuest(ctx context.Context, guestOwner, owner string) (int, error) {
	f.from, f.to = guestOwner, owner
	return f.moved, nil
}

func TestGoogleFlowClaimsGuestDrafts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENV", "dev")

	provider := newGoogleProvider(t)
	userSvc := users.NewService(users.NewMemoryRepo())
	claimer := &fakeClaimer{moved: 2}
	svc := NewGoogleService("client", "secret", "http://localhost/cb", "http://localhost:5173/auth", userSvc).
		WithGuestClaimer(claimer)
	svc.oauthConfig.Endpoint = oauth2.Endpoint{AuthURL: provider.URL + "/auth", TokenURL: provider.URL + "/token"}
	svc.userInfoURL = provider.URL + "/userinfo"

	router := gin.New()
	svc.RegisterRoutes(router.Group("/api/v1"))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start?guest=g-77", nil))
	if resp.Code != http.StatusFound {
		t.Fatalf("start: expected 302, got %d", resp.Code)
	}
	authURL, err := url.Parse(resp.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	state := authURL.Query().Get("state")

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state="+state+"&code=abc", nil))
	if resp.Code != http.StatusFound {
		t.Fatalf("callback: expected 302, got %d: %s", resp.Code, resp.Body.String())
	}
	loc, err := url.Parse(resp.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if loc.Query().Get("claimed") != "2" {
		t.Fatalf("expected claimed=2 in %s", loc)
	}
	if claimer.from != "guest:g-77" {
		t.Fatalf("claimed from %q", claimer.from)
	}
	if _, ok := users.ParseSubject(claimer.to); !ok {
		t.Fatalf("claimed to non-user subject %q", claimer.to)
	}
}

func TestGoogleStartRejectsMalformedGuest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewGoogleService("client", "secret", "http://localhost/cb", "http://localhost:5173", nil)
	router := gin.New()
	svc.RegisterRoutes(router.Group("/api/v1"))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start?guest=a%20b", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
