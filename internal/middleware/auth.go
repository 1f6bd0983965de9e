package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taufik7000/efarina-finance-flow/internal/models"
	"github.com/taufik7000/efarina-finance-flow/internal/service"
	"github.com/taufik7000/efarina-finance-flow/internal/util"
)

const (
	identityKey = "currentIdentity"
	sessionKey  = "currentSession"
)

// APIKey rejects requests without the configured anon key. An empty key
// disables the check.
func APIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader("apikey")
		if got == "" {
			got = c.Query("apikey")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Invalid API key")
			c.Abort()
			return
		}
		c.Next()
	}
}

// bearer reads the access token from the Authorization header, falling back
// to ?token= for downloads and websocket upgrades.
func bearer(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Query("token")
}

func authenticate(c *gin.Context, auth *service.AuthService, token string) bool {
	id, sess, err := auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Sesi tidak valid, silakan login kembali")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Gagal memeriksa sesi")
		}
		c.Abort()
		return false
	}
	c.Set(identityKey, id)
	c.Set(sessionKey, sess)
	return true
}

// Auth requires a valid access token and puts the caller into the context.
func Auth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Belum login")
			c.Abort()
			return
		}
		if authenticate(c, auth, token) {
			c.Next()
		}
	}
}

// OptionalAuth resolves a token when one is sent. A bad token is still
// rejected.
func OptionalAuth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.Next()
			return
		}
		if authenticate(c, auth, token) {
			c.Next()
		}
	}
}

// CurrentIdentity returns the caller, or nil for anonymous requests.
func CurrentIdentity(c *gin.Context) *models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*models.Identity)
	return id
}

// CurrentSession returns the caller's session row, or nil.
func CurrentSession(c *gin.Context) *models.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*models.Session)
	return s
}
