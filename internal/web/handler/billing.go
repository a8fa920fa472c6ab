package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/linkaday/internal/billing"
	"github.com/jmerrifield20/linkaday/internal/identity"
	"github.com/jmerrifield20/linkaday/internal/profiles"
)

// checkoutStarter is satisfied by *billing.Checkout.
type checkoutStarter interface {
	Start(ctx context.Context, p *profiles.Profile) (string, error)
}

// BillingHandler serves checkout creation and the payment webhook.
type BillingHandler struct {
	store     profiles.Store
	checkout  checkoutStarter
	verifier  *billing.Verifier
	processor *billing.Processor
	logger    *zap.Logger
}

// NewBillingHandler creates a BillingHandler.
func NewBillingHandler(
	store profiles.Store,
	checkout checkoutStarter,
	verifier *billing.Verifier,
	processor *billing.Processor,
	logger *zap.Logger,
) *BillingHandler {
	return &BillingHandler{
		store:     store,
		checkout:  checkout,
		verifier:  verifier,
		processor: processor,
		logger:    logger,
	}
}

// RegisterCheckout mounts the session-gated checkout route.
func (h *BillingHandler) RegisterCheckout(rg *gin.RouterGroup) {
	rg.POST("/stripe/checkout", h.Checkout)
}

// RegisterWebhook mounts the signature-authenticated webhook route.
func (h *BillingHandler) RegisterWebhook(rg *gin.RouterGroup) {
	rg.POST("/stripe/webhook", h.Webhook)
}

// Checkout handles POST /stripe/checkout and returns the hosted checkout URL.
func (h *BillingHandler) Checkout(c *gin.Context) {
	id, ok := identity.FromContext(c.Request.Context())
	if !ok {
		fail(c, http.StatusUnauthorized, "authentication required")
		return
	}
	p, err := h.store.Get(c.Request.Context(), id.ID)
	if errors.Is(err, profiles.ErrNotFound) {
		fail(c, http.StatusBadRequest, "complete onboarding before subscribing")
		return
	}
	if err != nil {
		storeFailure(c, h.logger, "load profile", err)
		return
	}

	checkoutURL, err := h.checkout.Start(c.Request.Context(), p)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true, "url": checkoutURL})
	case errors.Is(err, billing.ErrOnboardingIncomplete):
		fail(c, http.StatusBadRequest, "complete onboarding before subscribing")
	case errors.Is(err, billing.ErrAlreadySubscribed):
		fail(c, http.StatusBadRequest, "subscription already active")
	case errors.Is(err, billing.ErrNotConfigured):
		h.logger.Error("checkout requested but payments are not configured")
		fail(c, http.StatusInternalServerError, "payments are not configured")
	default:
		h.logger.Error("create checkout session", zap.String("user_id", p.ID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "failed to start checkout")
	}
}

// Webhook handles POST /stripe/webhook. Once the signature checks out the
// provider always gets 200, so it does not retry events we chose to skip.
func (h *BillingHandler) Webhook(c *gin.Context) {
	if !h.verifier.Configured() {
		h.logger.Error("stripe webhook received but no signing secret is configured")
		fail(c, http.StatusInternalServerError, "webhook not configured")
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	event, verdict, err := h.verifier.Verify(payload, c.GetHeader("Stripe-Signature"))
	if verdict != billing.VerdictValid {
		h.logger.Warn("stripe webhook rejected", zap.String("verdict", verdict.String()), zap.Error(err))
		RecordWebhookEvent(verdict.String())
		fail(c, http.StatusBadRequest, "invalid webhook")
		return
	}

	res := h.processor.Process(c.Request.Context(), event)
	RecordWebhookEvent(string(res.Action))
	c.JSON(http.StatusOK, gin.H{"received": true})
}
