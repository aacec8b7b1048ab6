package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/telecomservice/internal/config"
)

const (
	DefaultCookieName = "session_id"
	HeaderSessionID   = "X-Session-Id"

	bearerPrefix = "bearer "
)

// Manager reads and writes the session token carried by API clients.
type Manager struct {
	cookieName string
	secure     bool
}

// NewManager marks the cookie Secure when configured or in production.
func NewManager(cfg config.Config) *Manager {
	return &Manager{cookieName: DefaultCookieName, secure: cfg.AuthCookieSecure || cfg.IsProduction()}
}

// ReadToken looks at the session cookie, then X-Session-Id, then a bearer
// Authorization header.
func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	candidates := []string{c.GetHeader(HeaderSessionID), bearerToken(c.GetHeader("Authorization"))}
	if cookie, err := c.Cookie(m.cookieName); err == nil {
		candidates = append([]string{cookie}, candidates...)
	}
	for _, token := range candidates {
		if token = strings.TrimSpace(token); token != "" {
			return token, true
		}
	}
	return "", false
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return header[len(bearerPrefix):]
}

// Set writes an HttpOnly cookie that lives until expiresAt.
func (m *Manager) Set(c *gin.Context, value string, expiresAt time.Time) {
	m.write(c, value, max(int(time.Until(expiresAt).Seconds()), 0))
}

func (m *Manager) Clear(c *gin.Context) {
	m.write(c, "", -1)
}

func (m *Manager) write(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, maxAge, "/", "", m.secure, true)
}
