package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/linkaday/internal/auth"
	"github.com/jmerrifield20/linkaday/internal/identity"
)

// AuthHandler serves the OAuth sign-in flow and the session endpoints.
type AuthHandler struct {
	provider identity.Provider
	sessions *identity.SessionIssuer
	callback *auth.Callback
	cookie   identity.CookieConfig
	logger   *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
// provider may be nil when no OAuth client is configured; login then fails
// with 422.
func NewAuthHandler(
	provider identity.Provider,
	sessions *identity.SessionIssuer,
	callback *auth.Callback,
	cookie identity.CookieConfig,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		sessions: sessions,
		callback: callback,
		cookie:   cookie,
		logger:   logger,
	}
}

// Register mounts the auth routes and the public login page.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	{
		a.GET("/login", h.Login)
		a.GET("/callback", h.Callback)
		a.POST("/logout", h.Logout)
		a.GET("/session", h.Session)
	}
	rg.GET("/login", h.LoginPage)
}

// Login handles GET /auth/login by redirecting to the OAuth provider. A safe
// "next" path survives the round trip inside the signed state.
func (h *AuthHandler) Login(c *gin.Context) {
	if h.provider == nil {
		fail(c, http.StatusUnprocessableEntity, "OAuth provider not configured")
		return
	}

	state, err := h.sessions.IssueOAuthState(auth.SafeNext(c.Query("next")))
	if err != nil {
		h.logger.Error("generate oauth state", zap.Error(err))
		fail(c, http.StatusInternalServerError, "failed to generate OAuth state")
		return
	}
	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// Callback handles GET /auth/callback.
func (h *AuthHandler) Callback(c *gin.Context) {
	if h.callback == nil {
		fail(c, http.StatusUnprocessableEntity, "OAuth provider not configured")
		return
	}

	out := h.callback.Complete(c.Request.Context(), auth.CallbackParams{
		Code:             c.Query("code"),
		Error:            c.Query("error"),
		ErrorDescription: c.Query("error_description"),
		State:            c.Query("state"),
		Next:             c.Query("next"),
	})
	RecordLogin(string(out.State))

	if !out.Failed() {
		identity.SetSessionCookie(c, h.cookie, out.Token, int(h.sessions.TTL().Seconds()))
		h.logger.Info("user signed in",
			zap.String("user_id", out.Identity.ID),
			zap.String("route", string(out.State)),
		)
	}
	c.Redirect(http.StatusFound, out.Redirect)
}

// Logout handles POST /auth/logout. Sessions are stateless, so clearing the
// cookie is all there is to it.
func (h *AuthHandler) Logout(c *gin.Context) {
	identity.ClearSessionCookie(c, h.cookie)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Session handles GET /auth/session.
func (h *AuthHandler) Session(c *gin.Context) {
	claims := identity.SessionFromCtx(c)
	if claims == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true, "authenticated": false})
		return
	}
	body := gin.H{
		"ok":            true,
		"authenticated": true,
		"user": gin.H{
			"id":    claims.UserID,
			"email": claims.Email,
		},
	}
	if claims.ExpiresAt != nil {
		body["expires_at"] = claims.ExpiresAt.Time
	}
	c.JSON(http.StatusOK, body)
}

// LoginPage handles GET /login. It echoes the failure code from a rejected
// callback so the page can show it.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	body := gin.H{
		"error":      c.Query("error"),
		"login_url":  "/auth/login",
		"configured": h.provider != nil,
	}
	if next := auth.SafeNext(c.Query("next")); next != "" {
		body["login_url"] = "/auth/login?next=" + url.QueryEscape(next)
	}
	if d := c.Query("error_description"); d != "" {
		body["error_description"] = d
	}
	c.JSON(http.StatusOK, body)
}
