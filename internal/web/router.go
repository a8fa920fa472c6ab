// Package web assembles the HTTP surface: middleware, API routes and the
// gated application pages.
package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/linkaday/internal/health"
	"github.com/jmerrifield20/linkaday/internal/identity"
	"github.com/jmerrifield20/linkaday/internal/web/handler"
)

const webhookPath = "/api/stripe/webhook"

// Options configures NewRouter.
type Options struct {
	CORSOrigins  []string
	RateLimitRPS int
	LoginPath    string

	Sessions *identity.SessionIssuer
	Cookie   identity.CookieConfig

	Auth    *handler.AuthHandler
	Profile *handler.ProfileHandler
	Pages   *handler.PageHandler
	Billing *handler.BillingHandler

	// Health backs /readyz. Optional.
	Health *health.Checker

	Logger *zap.Logger
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(o Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     o.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(o.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}
	if len(o.CORSOrigins) > 0 {
		router.Use(cors.New(corsConfig))
	}

	router.Use(securityHeaders())

	// Request body size limit (1 MB)
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
		c.Next()
	})

	if o.RateLimitRPS > 0 {
		router.Use(handler.RateLimiter(o.RateLimitRPS, o.RateLimitRPS*2, webhookPath))
	}
	router.Use(handler.PrometheusMiddleware())
	router.Use(requestLogger(o.Logger))
	router.Use(identity.LoadSession(o.Sessions, o.Cookie))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", readiness(o.Health))
	router.GET("/metrics", handler.MetricsHandler())

	o.Auth.Register(&router.RouterGroup)

	api := router.Group("/api")
	o.Billing.RegisterWebhook(api)
	authed := api.Group("", identity.RequireSession())
	o.Profile.Register(authed)
	o.Billing.RegisterCheckout(authed)

	loginPath := o.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	pages := router.Group("", identity.RequirePageSession(loginPath))
	o.Pages.Register(pages)

	return router
}

// readiness reports 503 while any backing dependency is degraded.
func readiness(checker *health.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker == nil {
			c.JSON(http.StatusOK, health.Report{Ready: true, Components: map[string]health.ComponentStatus{}})
			return
		}
		report := checker.Report()
		status := http.StatusOK
		if !report.Ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger logs each request with zap. Health and metrics scrapes log at
// debug.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if claims := identity.SessionFromCtx(c); claims != nil {
			fields = append(fields, zap.String("user_id", claims.UserID))
		}
		switch c.Request.URL.Path {
		case "/healthz", "/readyz", "/metrics":
			logger.Debug("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}
