package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/linkaday/internal/identity"
	"github.com/jmerrifield20/linkaday/internal/profiledoc"
	"github.com/jmerrifield20/linkaday/internal/profiles"
)

// PageHandler serves the data behind the gated application pages. The page
// markup itself is rendered by the frontend.
type PageHandler struct {
	store       profiles.Store
	botUsername string
	logger      *zap.Logger
}

// NewPageHandler creates a PageHandler. botUsername is the Telegram bot the
// connect page links to; empty omits the link.
func NewPageHandler(store profiles.Store, botUsername string, logger *zap.Logger) *PageHandler {
	return &PageHandler{store: store, botUsername: botUsername, logger: logger}
}

// Register mounts the page routes. rg must already require a page session.
func (h *PageHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/dashboard", h.Dashboard)
	rg.GET("/profile", h.Profile)
	rg.GET("/onboarding", h.Onboarding)
	rg.GET("/billing", h.Billing)
	rg.GET("/connect-telegram", h.ConnectTelegram)
}

func (h *PageHandler) Dashboard(c *gin.Context) {
	p, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"onboarding_completed": p.OnboardingCompleted,
		"plan":                 p.Plan,
		"is_active":            p.IsActive,
		"subscribed":           p.IsSubscribed(),
		"telegram_chat_id":     p.TelegramChatID,
		"telegram_connected":   telegramConnected(p),
	})
}

func (h *PageHandler) Profile(c *gin.Context) {
	p, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":    p,
		"completion": profiledoc.CompletionPercentage(p.ProfileJSON),
	})
}

func (h *PageHandler) Onboarding(c *gin.Context) {
	p, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"directive_json":       p.DirectiveJSON,
		"onboarding_json":      p.OnboardingJSON,
		"onboarding_completed": p.OnboardingCompleted,
	})
}

// Billing sends users who have not finished onboarding back to it.
func (h *PageHandler) Billing(c *gin.Context) {
	p, ok := h.current(c)
	if !ok {
		return
	}
	if !p.OnboardingCompleted {
		c.Redirect(http.StatusFound, "/onboarding")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"plan":       p.Plan,
		"subscribed": p.IsSubscribed(),
		"canceled":   c.Query("canceled") == "1",
	})
}

func (h *PageHandler) ConnectTelegram(c *gin.Context) {
	p, ok := h.current(c)
	if !ok {
		return
	}
	body := gin.H{
		"plan":             p.Plan,
		"is_active":        p.IsActive,
		"telegram_chat_id": p.TelegramChatID,
		"connected":        telegramConnected(p),
		"checkout_success": c.Query("success") == "1",
	}
	if h.botUsername != "" {
		body["bot_link"] = "https://t.me/" + url.PathEscape(h.botUsername) + "?start=1"
	}
	c.JSON(http.StatusOK, body)
}

// current loads the caller's profile. A missing record renders as the
// first-login default instead of an error.
func (h *PageHandler) current(c *gin.Context) (*profiles.Profile, bool) {
	id, ok := identity.FromContext(c.Request.Context())
	if !ok {
		fail(c, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	p, err := h.store.Get(c.Request.Context(), id.ID)
	if errors.Is(err, profiles.ErrNotFound) {
		return profiles.NewDefault(id.ID, id.Email), true
	}
	if err != nil {
		storeFailure(c, h.logger, "load profile", err)
		return nil, false
	}
	if p.ProfileJSON == nil {
		p.ProfileJSON = profiledoc.Default()
	}
	return p, true
}

func telegramConnected(p *profiles.Profile) bool {
	return p.TelegramChatID != nil && *p.TelegramChatID != ""
}
