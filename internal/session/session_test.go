package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// contextWith builds a gin context whose request carries cookies.
func contextWith(cookies ...*http.Cookie) (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range cookies {
		c.Request.AddCookie(ck)
	}
	return c, rec
}

func lastCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[len(cookies)-1]
}

func TestStore_LoginLogout(t *testing.T) {
	store := NewStore("test-secret", false)

	c, rec := contextWith()
	_, ok := store.UserID(c)
	assert.False(t, ok)

	require.NoError(t, store.Login(c, 42))
	cookie := lastCookie(t, rec)
	assert.True(t, cookie.HttpOnly)

	c2, rec2 := contextWith(cookie)
	id, ok := store.UserID(c2)
	require.True(t, ok)
	assert.Equal(t, uint(42), id)

	require.NoError(t, store.Logout(c2))
	c3, _ := contextWith(lastCookie(t, rec2))
	_, ok = store.UserID(c3)
	assert.False(t, ok)
}

func TestStore_Flashes(t *testing.T) {
	store := NewStore("test-secret", false)

	c, rec := contextWith()
	store.AddFlash(c, FlashSuccess, "saved")
	store.AddFlash(c, FlashError, "but not everything")

	c2, rec2 := contextWith(lastCookie(t, rec))
	flashes := store.Flashes(c2)
	assert.Equal(t, []Flash{
		{Kind: FlashSuccess, Message: "saved"},
		{Kind: FlashError, Message: "but not everything"},
	}, flashes)

	c3, _ := contextWith(lastCookie(t, rec2))
	assert.Empty(t, store.Flashes(c3))
}

func TestStore_ForeignCookie(t *testing.T) {
	store := NewStore("test-secret", false)
	other := NewStore("other-secret", false)

	c, rec := contextWith()
	require.NoError(t, other.Login(c, 7))

	c2, _ := contextWith(lastCookie(t, rec))
	_, ok := store.UserID(c2)
	assert.False(t, ok)
}
