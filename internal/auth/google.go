package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "resume-editor/internal/shared/auth"
	"resume-editor/internal/shared/server/middleware"
	"resume-editor/internal/shared/server/respond"
	"resume-editor/internal/shared/telemetry"
	"resume-editor/internal/users"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// UserUpserter persists the identity returned by Google.
type UserUpserter interface {
	UpsertFromAuth(ctx context.Context, identity users.Identity) (users.User, error)
}

// GuestClaimer hands a guest's editor drafts to the account they signed in
// with.
type GuestClaimer interface {
	ClaimGuest(ctx context.Context, guestOwner, owner string) (int, error)
}

// GoogleService handles Google OAuth flows. A guest may pass ?guest=<id> to
// start; the id rides along with the OAuth state and its drafts are claimed
// once the callback resolves the user.
type GoogleService struct {
	oauthConfig *oauth2.Config
	uiRedirect  string
	stateTTL    time.Duration
	stateStore  *stateStore
	users       UserUpserter
	claimer     GuestClaimer
	userInfoURL string
}

// NewGoogleService builds a GoogleService.
func NewGoogleService(clientID, clientSecret, redirectURL, uiRedirect string, userSvc UserUpserter) *GoogleService {
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		uiRedirect:  uiRedirect,
		stateTTL:    5 * time.Minute,
		stateStore:  newStateStore(),
		users:       userSvc,
		userInfoURL: googleUserInfoURL,
	}
}

// WithGuestClaimer enables draft handoff on sign-in.
func (s *GoogleService) WithGuestClaimer(c GuestClaimer) *GoogleService {
	s.claimer = c
	return s
}

// RegisterRoutes attaches Google auth routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) start(c *gin.Context) {
	if s.oauthConfig.ClientID == "" || s.oauthConfig.ClientSecret == "" || s.oauthConfig.RedirectURL == "" {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured", nil)
		return
	}

	guestID := c.Query("guest")
	if guestID != "" && !middleware.ValidGuestID(guestID) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid guest id", nil)
		return
	}

	state := uuid.NewString()
	s.stateStore.put(state, pendingLogin{expires: time.Now().Add(s.stateTTL), guestID: guestID})

	url := s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	c.Redirect(http.StatusFound, url)
}

func (s *GoogleService) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}

	pending, ok := s.stateStore.consume(state, time.Now())
	if !ok {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	userInfo, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}

	if userInfo.Sub == "" {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "invalid user profile", nil)
		return
	}

	subject := "google:" + userInfo.Sub
	if s.users != nil {
		user, err := s.users.UpsertFromAuth(ctx, users.Identity{
			Sub:        userInfo.Sub,
			Email:      userInfo.Email,
			Name:       userInfo.Name,
			PictureURL: userInfo.Picture,
		})
		if err != nil {
			telemetry.Error("auth.google.upsert_failed", map[string]any{"error": err.Error()})
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to persist user", nil)
			return
		}
		subject = users.Subject(user.ID)
	}

	signed, err := sharedauth.SignJWT(sharedauth.Claims{
		Email:            userInfo.Email,
		Name:             userInfo.Name,
		Picture:          userInfo.Picture,
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	claimed := s.claimDrafts(ctx, pending.guestID, subject)

	redirectURL, err := appendToken(s.uiRedirect, signed, claimed)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}

	c.Redirect(http.StatusFound, redirectURL)
}

// claimDrafts moves the guest's sessions to subject. Failures are logged and
// do not block the sign-in.
func (s *GoogleService) claimDrafts(ctx context.Context, guestID, subject string) int {
	if s.claimer == nil || guestID == "" {
		return 0
	}
	moved, err := s.claimer.ClaimGuest(ctx, "guest:"+guestID, subject)
	if err != nil {
		telemetry.Warn("auth.google.claim_failed", map[string]any{
			"user_id": subject,
			"error":   err.Error(),
		})
	}
	return moved
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *GoogleService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}

	// Some responses use "id" instead of "sub".
	if info.Sub == "" {
		info.Sub = info.ID
	}
	return info, nil
}

type pendingLogin struct {
	expires time.Time
	guestID string
}

// stateStore holds OAuth states between start and callback. Expired entries
// are dropped on every put.
type stateStore struct {
	mu    sync.Mutex
	items map[string]pendingLogin
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]pendingLogin)}
}

func (s *stateStore) put(state string, p pendingLogin) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.items {
		if now.After(v.expires) {
			delete(s.items, k)
		}
	}
	s.items[state] = p
}

func (s *stateStore) consume(state string, now time.Time) (pendingLogin, bool) {
	s.mu.Lock()
	p, ok := s.items[state]
	delete(s.items, state)
	s.mu.Unlock()
	if !ok || now.After(p.expires) {
		return pendingLogin{}, false
	}
	return p, true
}

func appendToken(rawURL, token string, claimed int) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	if claimed > 0 {
		q.Set("claimed", strconv.Itoa(claimed))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
