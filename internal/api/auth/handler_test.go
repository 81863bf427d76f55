package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"accounts-app/internal/app/http/middleware"
	"accounts-app/internal/app/http/paths"
	"accounts-app/internal/domain/users"
	"accounts-app/internal/domain/users/userstest"
	"accounts-app/internal/session"
	"accounts-app/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const jwtSecret = "jwt-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	repo    *userstest.Repository
	store   *session.Store
	router  *gin.Engine
	handler *Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := userstest.NewRepository()
	store := session.NewStore("session-secret", false)
	h := New(discardLogger(), repo, store, jwtSecret, false)

	r := gin.New()
	r.SetHTMLTemplate(web.Templates())
	r.Any(paths.Login, h.Login)
	r.GET(paths.Logout, h.Logout)
	r.Any(paths.Register, h.Register)
	r.POST("/api/login", h.APILogin)

	return &testEnv{repo: repo, store: store, router: r, handler: h}
}

func (e *testEnv) createUser(t *testing.T, username, email, password string) *users.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	hashed := string(hash)
	u := &users.User{Username: username, Email: email, Password: &hashed, AuthProvider: users.ProviderLocal, IsActive: true}
	require.NoError(t, e.repo.Create(context.Background(), u))
	return u
}

func (e *testEnv) postForm(target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func lastCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[len(cookies)-1]
}

// sessionUserID decodes the cookie the same way a follow-up request would.
func (e *testEnv) sessionUserID(t *testing.T, cookie *http.Cookie) (uint, bool) {
	t.Helper()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.AddCookie(cookie)
	return e.store.UserID(c)
}

func (e *testEnv) pendingFlashes(t *testing.T, cookie *http.Cookie) []session.Flash {
	t.Helper()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.AddCookie(cookie)
	return e.store.Flashes(c)
}

func TestLogin_GetRendersForm(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(paths.Login + "?next=/members")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="username_or_email"`)
	assert.Contains(t, rec.Body.String(), `value="/members"`)
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "alice@example.com", "s3cretpass")

	tests := []struct {
		name    string
		login   string
		target  string
		wantLoc string
	}{
		{name: "by username", login: "alice", target: paths.Login, wantLoc: paths.Profile},
		{name: "by email any case", login: "Alice@Example.com", target: paths.Login, wantLoc: paths.Profile},
		{name: "local next", login: "alice", target: paths.Login + "?next=/members", wantLoc: "/members"},
		{name: "foreign next ignored", login: "alice", target: paths.Login + "?next=https://evil.example/", wantLoc: paths.Profile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postForm(tt.target, url.Values{
				"username_or_email": {tt.login},
				"password":          {"s3cretpass"},
			})

			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))

			cookie := lastCookie(t, rec)
			id, ok := env.sessionUserID(t, cookie)
			require.True(t, ok)
			assert.Equal(t, user.ID, id)

			flashes := env.pendingFlashes(t, cookie)
			require.Len(t, flashes, 1)
			assert.Equal(t, "You have successfully logged in", flashes[0].Message)
		})
	}
}

func TestLogin_NextFromPostedForm(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", "alice@example.com", "s3cretpass")

	rec := env.postForm(paths.Login, url.Values{
		"username_or_email": {"alice"},
		"password":          {"s3cretpass"},
		"next":              {"/members"},
	})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/members", rec.Header().Get("Location"))
}

func TestLogin_Rejected(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", "alice@example.com", "s3cretpass")

	inactive := env.createUser(t, "bob", "bob@example.com", "s3cretpass")
	inactive.IsActive = false
	require.NoError(t, env.repo.Save(context.Background(), inactive))

	tests := []struct {
		name     string
		login    string
		password string
	}{
		{name: "wrong password", login: "alice", password: "nope12345"},
		{name: "unknown user", login: "carol", password: "s3cretpass"},
		{name: "inactive user", login: "bob", password: "s3cretpass"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postForm(paths.Login, url.Values{
				"username_or_email": {tt.login},
				"password":          {tt.password},
			})

			assert.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, "Your username or password was not recognised")
			assert.Contains(t, body, `value="`+tt.login+`"`)
			assert.NotContains(t, body, tt.password)
			for _, c := range rec.Result().Cookies() {
				_, ok := env.sessionUserID(t, c)
				assert.False(t, ok)
			}
		})
	}
}

func TestLogin_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm(paths.Login, url.Values{"username_or_email": {"alice"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "This field is required.")
	assert.NotContains(t, rec.Body.String(), "Your username or password was not recognised")
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "alice@example.com", "s3cretpass")

	login := env.postForm(paths.Login, url.Values{
		"username_or_email": {"alice"},
		"password":          {"s3cretpass"},
	})
	require.Equal(t, http.StatusFound, login.Code)
	id, ok := env.sessionUserID(t, lastCookie(t, login))
	require.True(t, ok)
	require.Equal(t, user.ID, id)

	rec := env.get(paths.Logout, lastCookie(t, login))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, paths.Index, rec.Header().Get("Location"))
	cookie := lastCookie(t, rec)
	_, ok = env.sessionUserID(t, cookie)
	assert.False(t, ok)

	flashes := env.pendingFlashes(t, cookie)
	require.Len(t, flashes, 1)
	assert.Equal(t, "You have successfully logged out", flashes[0].Message)
}

func TestLogout_Anonymous(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(paths.Logout)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, paths.Index, rec.Header().Get("Location"))
}

func TestRegister_Success(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm(paths.Register, url.Values{
		"username":  {"alice"},
		"email":     {"alice@example.com"},
		"password1": {"s3cretpass"},
		"password2": {"s3cretpass"},
	})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, paths.Profile, rec.Header().Get("Location"))
	require.Equal(t, 1, env.repo.Count())

	user, err := env.repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, users.ProviderLocal, user.AuthProvider)
	require.True(t, user.HasPassword())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte("s3cretpass")))
	assert.Nil(t, user.Profile.CustomerID)
	assert.Nil(t, user.Profile.SubscriptionEnd)

	cookie := lastCookie(t, rec)
	id, ok := env.sessionUserID(t, cookie)
	require.True(t, ok)
	assert.Equal(t, user.ID, id)

	flashes := env.pendingFlashes(t, cookie)
	require.Len(t, flashes, 1)
	assert.Equal(t, "You have successfully registered", flashes[0].Message)
}

func TestRegister_Invalid(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "taken", "taken@example.com", "s3cretpass")

	tests := []struct {
		name    string
		form    url.Values
		wantMsg string
	}{
		{
			name:    "password mismatch",
			form:    url.Values{"username": {"alice"}, "email": {"alice@example.com"}, "password1": {"s3cretpass"}, "password2": {"other1234"}},
			wantMsg: "The two password fields didn",
		},
		{
			name:    "weak password",
			form:    url.Values{"username": {"alice"}, "email": {"alice@example.com"}, "password1": {"onlyletters"}, "password2": {"onlyletters"}},
			wantMsg: "contain both letters and numbers",
		},
		{
			name:    "bad email",
			form:    url.Values{"username": {"alice"}, "email": {"not-an-email"}, "password1": {"s3cretpass"}, "password2": {"s3cretpass"}},
			wantMsg: "Enter a valid email address.",
		},
		{
			name:    "bad username",
			form:    url.Values{"username": {"al ice!"}, "email": {"alice@example.com"}, "password1": {"s3cretpass"}, "password2": {"s3cretpass"}},
			wantMsg: "Enter a valid username.",
		},
		{
			name:    "username taken",
			form:    url.Values{"username": {"taken"}, "email": {"alice@example.com"}, "password1": {"s3cretpass"}, "password2": {"s3cretpass"}},
			wantMsg: "A user with that username already exists.",
		},
		{
			name:    "email taken",
			form:    url.Values{"username": {"alice"}, "email": {"TAKEN@example.com"}, "password1": {"s3cretpass"}, "password2": {"s3cretpass"}},
			wantMsg: "A user with that email already exists.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postForm(paths.Register, tt.form)

			assert.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, "We were unable to register you")
			assert.Contains(t, body, tt.wantMsg)
			assert.Equal(t, 1, env.repo.Count())
		})
	}
}

func TestRegister_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.repo.Err = errors.New("db down")

	rec := env.postForm(paths.Register, url.Values{
		"username":  {"alice"},
		"email":     {"alice@example.com"},
		"password1": {"s3cretpass"},
		"password2": {"s3cretpass"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "We were unable to register you")
	assert.Equal(t, 0, env.repo.Count())
}

func TestAPILogin(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "alice@example.com", "s3cretpass")

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid credentials return a token", func(t *testing.T) {
		rec := post(`{"username_or_email":"alice","password":"s3cretpass"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotEmpty(t, body["token"])

		r := gin.New()
		r.GET("/me", middleware.AuthMiddleware(jwtSecret), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint("user_id")})
		})
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+body["token"])
		me := httptest.NewRecorder()
		r.ServeHTTP(me, req)
		assert.Equal(t, http.StatusOK, me.Code)
		assert.Contains(t, me.Body.String(), `"user_id":`+jsonUint(user.ID))
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := post(`{"username_or_email":"alice","password":"wrong1234"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := post(`{"username_or_email":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func jsonUint(v uint) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestIsPasswordStrong(t *testing.T) {
	assert.True(t, isPasswordStrong("abcdefg1"))
	assert.False(t, isPasswordStrong("abc1"))
	assert.False(t, isPasswordStrong("abcdefgh"))
	assert.False(t, isPasswordStrong("12345678"))
}
