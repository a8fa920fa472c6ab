package identity

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxSessionClaims = "linkaday_session_claims"

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	Domain string
}

// SetSessionCookie writes the session token as an HTTP-only cookie.
func SetSessionCookie(c *gin.Context, cfg CookieConfig, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.Name, token, maxAge, "/", cfg.Domain, cfg.Secure, true)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context, cfg CookieConfig) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.Name, "", -1, "/", cfg.Domain, cfg.Secure, true)
}

// LoadSession returns a Gin middleware that resolves the session from the
// cookie or an "Authorization: Bearer" header. It never aborts: requests
// without a valid session simply carry no identity. Sessions past half their
// lifetime are re-issued.
//
// On success it injects the *SessionClaims into the Gin context and the
// Identity into the request context.
func LoadSession(sessions *SessionIssuer, cookie CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, fromCookie := sessionToken(c, cookie.Name)
		if tokenStr == "" {
			c.Next()
			return
		}
		claims, err := sessions.Verify(tokenStr)
		if err != nil {
			if fromCookie {
				ClearSessionCookie(c, cookie)
			}
			c.Next()
			return
		}

		if fromCookie && sessions.NeedsRefresh(claims) {
			if fresh, err := sessions.Issue(claims.Identity()); err == nil {
				SetSessionCookie(c, cookie, fresh, int(sessions.TTL().Seconds()))
			}
		}

		c.Set(ctxSessionClaims, claims)
		c.Request = c.Request.WithContext(NewContext(c.Request.Context(), claims.Identity()))
		c.Next()
	}
}

func sessionToken(c *gin.Context, cookieName string) (string, bool) {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v, true
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer "), false
	}
	return "", false
}

// RequireSession rejects API requests that carry no session with 401.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if SessionFromCtx(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"ok":    false,
				"error": "authentication required",
			})
			return
		}
		c.Next()
	}
}

// RequirePageSession redirects page requests that carry no session to
// loginPath, preserving the requested path in the "next" query parameter.
func RequirePageSession(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if SessionFromCtx(c) == nil {
			c.Redirect(http.StatusFound, loginPath+"?next="+url.QueryEscape(c.Request.URL.Path))
			c.Abort()
			return
		}
		c.Next()
	}
}

// SessionFromCtx retrieves the claims injected by LoadSession.
// Returns nil if the request has no valid session.
func SessionFromCtx(c *gin.Context) *SessionClaims {
	v, _ := c.Get(ctxSessionClaims)
	claims, _ := v.(*SessionClaims)
	return claims
}
