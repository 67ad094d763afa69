package cookies

import (
	"net/http"

	"flowboard/internal/config"
	"flowboard/internal/domain/session"

	"github.com/gin-gonic/gin"
)

// Store reads and writes the session cookies of the current request only.
// It holds no per-request state; every value comes from and goes to the gin context.
type Store struct {
	secure bool
}

// NewStore creates a token store applying the site-wide cookie policy
func NewStore(cfg *config.SessionConfig) *Store {
	return &Store{secure: cfg.SecureCookies}
}

// Get returns the named cookie value, or false when it is absent or empty
func (s *Store) Get(c *gin.Context, name string) (string, bool) {
	value, err := c.Cookie(name)
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

// Tokens reconstructs the session token pair from the request cookies
func (s *Store) Tokens(c *gin.Context) session.Tokens {
	access, _ := s.Get(c, session.AccessTokenCookie)
	refresh, _ := s.Get(c, session.RefreshTokenCookie)
	return session.Tokens{Access: access, Refresh: refresh}
}

// Set writes an http-only, SameSite=Lax cookie scoped to the whole site
func (s *Store) Set(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", s.secure, true)
}

// Delete expires the named cookie immediately
func (s *Store) Delete(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", s.secure, true)
}

// Apply attaches every mutation of set to the response
func (s *Store) Apply(c *gin.Context, set session.CookieSet) {
	for _, m := range set {
		if m.Delete {
			s.Delete(c, m.Name)
			continue
		}
		s.Set(c, m.Name, m.Value, m.MaxAge)
	}
}
