package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"storefront/internal/domain"
)

const (
	sessionCookie   = "storefront_session"
	requestIDHeader = "X-Request-ID"
	userKey         = "storefront.user"
	sessionKey      = "storefront.session"
	requestIDKey    = "storefront.request_id"
)

type authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// requestID tags each request with an id, reusing a well-formed incoming one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// loadUser resolves the session cookie into the current user. Unknown or
// expired sessions leave the request anonymous.
func loadUser(auth authenticator, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookie)
		if err != nil || token == "" {
			c.Next()
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, domain.ErrUnauthorized) {
				logger.Printf("http: session lookup request_id=%s error=%v", c.GetString(requestIDKey), err)
			}
			c.Next()
			return
		}
		c.Set(userKey, *user)
		c.Set(sessionKey, token)
		c.Next()
	}
}

// requireUser sends anonymous visitors to the login page.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUser(c); !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) (domain.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return domain.User{}, false
	}
	u, ok := v.(domain.User)
	return u, ok
}

func setSessionCookie(c *gin.Context, token string, expires time.Time, secure bool) {
	maxAge := int(time.Until(expires).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, maxAge, "/", "", secure, true)
}

func clearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", secure, true)
}
