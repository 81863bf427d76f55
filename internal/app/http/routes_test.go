package routes

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"accounts-app/config"
	"accounts-app/internal/app/http/paths"
	"accounts-app/internal/domain/billing/billingtest"
	"accounts-app/internal/domain/users"
	"accounts-app/internal/domain/users/userstest"
	"accounts-app/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(t *testing.T, cfg *config.Config) (*gin.Engine, *userstest.Repository, *session.Store) {
	t.Helper()
	repo := userstest.NewRepository()
	store := session.NewStore("session-secret", false)

	r := gin.New()
	RegisterRoutes(r, Deps{
		Config:   cfg,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Users:    repo,
		Provider: &billingtest.Provider{},
		Sessions: store,
	})
	return r, repo, store
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:  "jwt-secret",
		CORSOrigin: "http://localhost:5173",
		Stripe:     config.Stripe{PlanID: "REG_MONTHLY", WebhookSecret: "whsec_test"},
	}
}

func serve(r *gin.Engine, method, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_Public(t *testing.T) {
	r, _, _ := newEngine(t, testConfig())

	tests := []struct {
		method string
		target string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, paths.Index, http.StatusOK},
		{http.MethodGet, paths.Login, http.StatusOK},
		{http.MethodGet, paths.Register, http.StatusOK},
		{http.MethodGet, paths.Logout, http.StatusFound},
		{http.MethodPost, paths.Webhook, http.StatusBadRequest},
		{http.MethodGet, "/api/me", http.StatusUnauthorized},
		{http.MethodGet, "/auth/google", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := serve(r, tt.method, tt.target)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRoutes_LoginRequired(t *testing.T) {
	r, _, _ := newEngine(t, testConfig())

	for _, target := range []string{paths.Profile, paths.Subscribe, paths.CancelSubscription, paths.Members} {
		t.Run(target, func(t *testing.T) {
			rec := serve(r, http.MethodGet, target)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), paths.Login+"?next="))
		})
	}
}

func TestRoutes_MembersNeedsSubscription(t *testing.T) {
	r, repo, store := newEngine(t, testConfig())

	lapsed := &users.User{Username: "alice", Email: "alice@example.com", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), lapsed))
	end := time.Now().Add(24 * time.Hour)
	active := &users.User{Username: "bob", Email: "bob@example.com", IsActive: true}
	active.Profile.SubscriptionEnd = &end
	require.NoError(t, repo.Create(context.Background(), active))

	rec := serve(r, http.MethodGet, paths.Members, loginCookie(t, store, lapsed.ID))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, paths.Subscribe, rec.Header().Get("Location"))

	rec = serve(r, http.MethodGet, paths.Members, loginCookie(t, store, active.ID))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Thanks for subscribing, bob")
}

func TestRoutes_GoogleWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Google = config.Google{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost/auth/google/callback"}
	r, _, _ := newEngine(t, cfg)

	rec := serve(r, http.MethodGet, "/auth/google")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "accounts.google.com")
}

func loginCookie(t *testing.T, store *session.Store, userID uint) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, store.Login(c, userID))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[len(cookies)-1]
}
