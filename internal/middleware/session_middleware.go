package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-cart/internal/errors"
	"github.com/ikkim/storefront-cart/pkg/util"
)

const (
	SessionIDKey      = "cart_session_id"
	SessionCookieName = "cart_session"
	SessionHeader     = "X-Cart-Session"
)

// SessionMiddleware binds every request to an anonymous cart session. The
// session id travels in a signed token, so clients cannot read another
// shopper's cart by guessing ids.
type SessionMiddleware struct {
	secret       string
	ttl          time.Duration
	secureCookie bool
}

func NewSessionMiddleware(secret string, ttl time.Duration, secureCookie bool) *SessionMiddleware {
	return &SessionMiddleware{
		secret:       secret,
		ttl:          ttl,
		secureCookie: secureCookie,
	}
}

// Resolve accepts a valid session token from the header or cookie, and
// starts a new session when there is none.
func (m *SessionMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token := c.GetHeader(SessionHeader)
		if token == "" {
			token, _ = c.Cookie(SessionCookieName)
		}

		if token != "" {
			claims, err := util.ValidateSessionToken(token, m.secret)
			if err == nil {
				c.Set(SessionIDKey, claims.SessionID)
				c.Next()
				return
			}
			log.Debug("Session token rejected, starting a new session", map[string]interface{}{
				"error": err.Error(),
			})
		}

		sessionID := util.NewSessionID()
		token, err := util.GenerateSessionToken(sessionID, m.secret, m.ttl)
		if err != nil {
			log.Error("Failed to issue session token", err)
			errors.InternalError(c, "")
			c.Abort()
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookieName, token, int(m.ttl.Seconds()), "/", "", m.secureCookie, true)
		c.Header(SessionHeader, token)
		c.Set(SessionIDKey, sessionID)

		log.Info("New cart session started", map[string]interface{}{
			"session_id": sessionID,
		})
		c.Next()
	}
}

// GetSessionID returns the cart session bound to the request
func GetSessionID(c *gin.Context) (string, bool) {
	sessionID := c.GetString(SessionIDKey)
	return sessionID, sessionID != ""
}
