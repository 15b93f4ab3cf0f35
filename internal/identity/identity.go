// Package identity hands out the anonymous user id a checkout is booked
// under.
package identity

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const CookieName = "nibog_user_id"

type Config struct {
	MaxAge time.Duration
	Secure bool
	Domain string
}

type Provider struct {
	cfg Config
}

func NewProvider(cfg Config) *Provider {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 365 * 24 * time.Hour
	}
	return &Provider{cfg: cfg}
}

// GetOrCreateUserID returns the user id carried by the request cookie, or
// issues a new one and sets the cookie on the response. Cookies that do
// not hold a uuid are replaced.
func (p *Provider) GetOrCreateUserID(c *gin.Context) string {
	if v, err := c.Cookie(CookieName); err == nil {
		if id, err := uuid.Parse(v); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, id, int(p.cfg.MaxAge/time.Second), "/", p.cfg.Domain, p.cfg.Secure, true)

	return id
}
