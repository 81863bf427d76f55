// Package session keeps the login state and flash messages in a signed
// cookie.
package session

import (
	"encoding/gob"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

const (
	cookieName = "accounts_session"
	userIDKey  = "user_id"
)

const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

type Flash struct {
	Kind    string
	Message string
}

func init() {
	gob.Register(Flash{})
}

type Store struct {
	store sessions.Store
}

func NewStore(secret string, secure bool) *Store {
	cs := sessions.NewCookieStore([]byte(secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   14 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{store: cs}
}

func (s *Store) get(c *gin.Context) *sessions.Session {
	// A cookie that fails to decode (rotated key, tampering) still yields a
	// fresh session alongside the error.
	sess, _ := s.store.Get(c.Request, cookieName)
	return sess
}

// Login attaches userID to the session.
func (s *Store) Login(c *gin.Context, userID uint) error {
	sess := s.get(c)
	sess.Values[userIDKey] = userID
	if err := sess.Save(c.Request, c.Writer); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Logout drops everything stored in the session.
func (s *Store) Logout(c *gin.Context) error {
	sess := s.get(c)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	if err := sess.Save(c.Request, c.Writer); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) UserID(c *gin.Context) (uint, bool) {
	id, ok := s.get(c).Values[userIDKey].(uint)
	return id, ok && id != 0
}

func (s *Store) AddFlash(c *gin.Context, kind, message string) {
	sess := s.get(c)
	sess.AddFlash(Flash{Kind: kind, Message: message})
	_ = sess.Save(c.Request, c.Writer)
}

// Flashes returns and clears the pending flash messages.
func (s *Store) Flashes(c *gin.Context) []Flash {
	sess := s.get(c)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = sess.Save(c.Request, c.Writer)

	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}
	return out
}
