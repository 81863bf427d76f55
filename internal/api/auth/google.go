package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"accounts-app/config"
	"accounts-app/internal/app/http/metrics"
	"accounts-app/internal/app/http/paths"
	"accounts-app/internal/domain/users"
	"accounts-app/internal/session"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateCookie  = "oauth_state"
	googleIssuer = "https://accounts.google.com"
)

var usernameStrip = regexp.MustCompile(`[^a-zA-Z0-9_.+\-]`)

type googleIDClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// idTokenVerifier turns a raw Google id_token into verified claims.
type idTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*googleIDClaims, error)
}

// codeExchanger is the part of oauth2.Config the callback depends on.
type codeExchanger interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

type oidcVerifier struct {
	clientID string

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

// discovered fetches Google's discovery document on first use.
func (v *oidcVerifier) discovered(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.verifier != nil {
		return v.verifier, nil
	}
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("init google oidc provider: %w", err)
	}
	v.verifier = provider.Verifier(&oidc.Config{ClientID: v.clientID})
	return v.verifier, nil
}

func (v *oidcVerifier) Verify(ctx context.Context, rawIDToken string) (*googleIDClaims, error) {
	verifier, err := v.discovered(ctx)
	if err != nil {
		return nil, err
	}

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}

	var claims googleIDClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode token claims: %w", err)
	}
	if claims.Email == "" || claims.Sub == "" {
		return nil, errors.New("token missing required claims")
	}
	return &claims, nil
}

type GoogleHandler struct {
	log      *slog.Logger
	repo     users.Repository
	sessions *session.Store
	oauth    codeExchanger
	verifier idTokenVerifier
	secure   bool
}

func NewGoogle(log *slog.Logger, repo users.Repository, sessions *session.Store, cfg config.Google, secure bool) *GoogleHandler {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		Endpoint:     google.Endpoint,
	}
	return &GoogleHandler{
		log:      log,
		repo:     repo,
		sessions: sessions,
		oauth:    oauthCfg,
		verifier: &oidcVerifier{clientID: cfg.ClientID},
		secure:   secure,
	}
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GET /auth/google
func (h *GoogleHandler) Start(c *gin.Context) {
	state, err := randomState()
	if err != nil {
		h.log.Error("failed to generate oauth state", slog.String("op", "api.auth.GoogleStart"), slog.Any("error", err))
		h.sessions.AddFlash(c, session.FlashError, "Unable to sign in with Google at this time")
		c.Redirect(http.StatusFound, paths.Login)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 300, "/", "", h.secure, true)
	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// GET /auth/google/callback
func (h *GoogleHandler) Callback(c *gin.Context) {
	const op = "api.auth.GoogleCallback"
	log := h.log.With(slog.String("op", op))

	fail := func(reason string, err error) {
		metrics.Logins.WithLabelValues("google", "rejected").Inc()
		log.Warn("google sign-in failed", slog.String("reason", reason), slog.Any("error", err))
		h.sessions.AddFlash(c, session.FlashError, "Unable to sign in with Google")
		c.Redirect(http.StatusFound, paths.Login)
	}

	state := c.Query("state")
	code := c.Query("code")
	if code == "" || state == "" {
		fail("missing code/state", nil)
		return
	}

	cookieState, err := c.Cookie(stateCookie)
	if err != nil || cookieState != state {
		fail("invalid oauth state", err)
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", h.secure, true)

	tok, err := h.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		fail("code exchange", err)
		return
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		fail("missing id_token", nil)
		return
	}

	claims, err := h.verifier.Verify(c.Request.Context(), rawIDToken)
	if err != nil {
		fail("verify id_token", err)
		return
	}

	user, err := h.findOrCreateGoogleUser(c.Request.Context(), claims)
	if err != nil {
		log.Error("failed to resolve google user", slog.Any("error", err))
		h.sessions.AddFlash(c, session.FlashError, "Unable to sign in with Google at this time")
		c.Redirect(http.StatusFound, paths.Login)
		return
	}
	if !user.IsActive {
		fail("inactive user", nil)
		return
	}

	if err := h.sessions.Login(c, user.ID); err != nil {
		log.Error("failed to save session", slog.Any("error", err))
		h.sessions.AddFlash(c, session.FlashError, "Unable to log you in at this time!")
		c.Redirect(http.StatusFound, paths.Login)
		return
	}

	metrics.Logins.WithLabelValues("google", "success").Inc()
	h.sessions.AddFlash(c, session.FlashSuccess, "You have successfully logged in")
	c.Redirect(http.StatusFound, paths.Profile)
}

func (h *GoogleHandler) findOrCreateGoogleUser(ctx context.Context, gc *googleIDClaims) (*users.User, error) {
	user, err := h.repo.FindByGoogleSub(ctx, gc.Sub)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, err
	}

	// Link an existing local account only on a verified address.
	user, err = h.repo.FindByEmail(ctx, gc.Email)
	switch {
	case err == nil:
		if !gc.EmailVerified {
			return nil, errors.New("google email not verified")
		}
		if user.GoogleSub == nil {
			sub := gc.Sub
			user.GoogleSub = &sub
			if err := h.repo.Save(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	case !errors.Is(err, users.ErrNotFound):
		return nil, err
	}

	username, err := h.uniqueUsername(ctx, gc.Email)
	if err != nil {
		return nil, err
	}
	sub := gc.Sub
	user = &users.User{
		Username:     username,
		Email:        gc.Email,
		AuthProvider: users.ProviderGoogle,
		GoogleSub:    &sub,
		IsActive:     true,
	}
	if err := h.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	h.log.Info("user registered with google", slog.Uint64("user_id", uint64(user.ID)))
	return user, nil
}

func (h *GoogleHandler) uniqueUsername(ctx context.Context, email string) (string, error) {
	base, _, _ := strings.Cut(email, "@")
	base = usernameStrip.ReplaceAllString(base, "")
	if len(base) < 3 {
		base = "user" + base
	}
	if len(base) > 140 {
		base = base[:140]
	}

	candidate := base
	for i := 1; i <= 100; i++ {
		_, err := h.repo.FindByUsername(ctx, candidate)
		if errors.Is(err, users.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return "", fmt.Errorf("no free username for %q", base)
}
