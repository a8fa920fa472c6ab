// Package export delivers a user's profile document to an external
// automation webhook.
package export

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jmerrifield20/linkaday/internal/profiledoc"
	"github.com/jmerrifield20/linkaday/internal/profiles"
)

// SignatureHeader carries the HMAC of the request body when a secret is set.
const SignatureHeader = "X-Linkaday-Signature"

var (
	// ErrNotConfigured is returned when no webhook URL is set.
	ErrNotConfigured = errors.New("export webhook url is not configured")
	// ErrNoProfileData is returned when the profile has no stored document.
	ErrNoProfileData = errors.New("profile has no data to export")
)

// DeliveryError reports a non-2xx response from the webhook.
type DeliveryError struct {
	StatusCode int
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("export webhook returned HTTP %d", e.StatusCode)
}

// Payload is the JSON body posted to the webhook.
type Payload struct {
	UserID      string              `json:"user_id"`
	Email       string              `json:"email"`
	ProfileJSON profiledoc.Document `json:"profile_json"`
	ExportedAt  time.Time           `json:"exported_at"`
}

// MetricsRecorder is an optional callback for recording delivery outcomes.
type MetricsRecorder func(success bool)

// Exporter posts profile documents to a single webhook URL.
type Exporter struct {
	url        string
	secret     string
	httpClient *http.Client
	onMetrics  MetricsRecorder
	now        func() time.Time
	logger     *zap.Logger
}

// NewExporter creates an Exporter. An empty url disables exports.
func NewExporter(url, secret string, logger *zap.Logger) *Exporter {
	return &Exporter{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// SetMetricsRecorder configures the metrics callback.
func (e *Exporter) SetMetricsRecorder(fn MetricsRecorder) {
	e.onMetrics = fn
}

// Configured reports whether a webhook URL is set.
func (e *Exporter) Configured() bool { return e.url != "" }

// Export sends p's profile document in a single POST. A document with
// sections but no filled fields is still exported.
func (e *Exporter) Export(ctx context.Context, p *profiles.Profile) error {
	if len(p.ProfileJSON) == 0 {
		return ErrNoProfileData
	}
	if !e.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(Payload{
		UserID:      p.ID,
		Email:       p.Email,
		ProfileJSON: p.ProfileJSON,
		ExportedAt:  e.now(),
	})
	if err != nil {
		return fmt.Errorf("marshal export payload: %w", err)
	}

	err = e.doDelivery(ctx, body)
	if e.onMetrics != nil {
		e.onMetrics(err == nil)
	}
	if err != nil {
		e.logger.Warn("export: delivery failed", zap.String("user_id", p.ID), zap.Error(err))
		return err
	}
	return nil
}

// doDelivery performs a single HTTP POST delivery.
func (e *Exporter) doDelivery(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build export request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.secret != "" {
		req.Header.Set(SignatureHeader, signPayload(body, e.secret))
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post export: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{StatusCode: resp.StatusCode}
	}
	return nil
}

// signPayload computes an HMAC-SHA256 signature.
func signPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
