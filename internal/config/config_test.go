package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("LINKADAY_SESSION_SECRET", secret)
	t.Setenv("LINKADAY_DATABASE_URL", "postgres://app@db/linkaday")
	t.Setenv("LINKADAY_APP_PUBLIC_URL", "https://app.linkaday.test/")
	t.Setenv("LINKADAY_STRIPE_WEBHOOK_SECRET", "whsec_1")
	t.Setenv("LINKADAY_SERVER_CORS_ORIGINS", "https://a.test, https://b.test")

	cfg, err := Load(New(""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.URL != "postgres://app@db/linkaday" {
		t.Errorf("database.url = %q", cfg.Database.URL)
	}
	if cfg.Database.PrivilegedURL != cfg.Database.URL {
		t.Errorf("privileged_url should default to database.url, got %q", cfg.Database.PrivilegedURL)
	}
	if cfg.App.PublicURL != "https://app.linkaday.test" {
		t.Errorf("public_url = %q", cfg.App.PublicURL)
	}
	if cfg.OAuth.Google.RedirectURL != "https://app.linkaday.test/auth/callback" {
		t.Errorf("redirect_url = %q", cfg.OAuth.Google.RedirectURL)
	}
	if cfg.Stripe.WebhookSecret != "whsec_1" {
		t.Errorf("stripe.webhook_secret = %q", cfg.Stripe.WebhookSecret)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.test" {
		t.Errorf("cors_origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Session.TTL != 168*time.Hour || cfg.Session.CookieName != "linkaday_session" {
		t.Errorf("session defaults = %+v", cfg.Session)
	}
	if cfg.App.Development() {
		t.Error("default env should be production")
	}
}

func TestLoad_RequiresSessionSecret(t *testing.T) {
	t.Setenv("LINKADAY_SESSION_SECRET", "short")

	_, err := Load(New(""))
	if err == nil || !strings.Contains(err.Error(), "Secret") {
		t.Fatalf("expected session secret validation error, got %v", err)
	}
}

func TestLoad_RejectsUnknownEnv(t *testing.T) {
	t.Setenv("LINKADAY_SESSION_SECRET", secret)
	t.Setenv("LINKADAY_APP_ENV", "staging")

	if _, err := Load(New("")); err == nil {
		t.Fatal("expected app.env validation error")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linkaday.yaml")
	yaml := `
app:
  env: development
  public_url: http://localhost:3000
session:
  secret: ` + secret + `
telegram:
  bot_username: linkaday_bot
export:
  webhook_url: https://n8n.test/webhook/profile
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(New(path))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.App.Development() || cfg.Telegram.BotUsername != "linkaday_bot" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Export.WebhookURL != "https://n8n.test/webhook/profile" {
		t.Errorf("export.webhook_url = %q", cfg.Export.WebhookURL)
	}
}

func TestLoadDatabase_IgnoresOtherSections(t *testing.T) {
	t.Setenv("LINKADAY_DATABASE_URL", "postgres://app@db/linkaday")
	t.Setenv("LINKADAY_DATABASE_PRIVILEGED_URL", "postgres://owner@db/linkaday")

	db, err := LoadDatabase(New(""))
	if err != nil {
		t.Fatalf("LoadDatabase without a session secret: %v", err)
	}
	if db.URL != "postgres://app@db/linkaday" || db.PrivilegedURL != "postgres://owner@db/linkaday" {
		t.Errorf("database = %+v", db)
	}
}
