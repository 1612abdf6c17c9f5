package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte(content), 0600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database: file:data/app.db
jwt:
  secret: s3cret
`)

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Listen != ":8317" {
		t.Fatalf("listen = %q, want :8317", cfg.Listen)
	}
	if cfg.JWT.UserExpiry != 24*time.Hour {
		t.Fatalf("user expiry = %v, want 24h", cfg.JWT.UserExpiry)
	}
	if cfg.Gateway.APIBaseURL != "https://api.nowpayments.io/v1" {
		t.Fatalf("gateway base url = %q", cfg.Gateway.APIBaseURL)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log level = %q, want info", cfg.Log.Level)
	}
}

func TestLoadRequiresDatabaseAndSecret(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: s3cret
`)
	if _, errLoad := Load(path); errLoad == nil {
		t.Fatal("expected error for missing database")
	}

	path = writeConfig(t, `
database: file:data/app.db
`)
	if _, errLoad := Load(path); errLoad == nil {
		t.Fatal("expected error for missing jwt secret")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
listen: ":9000"
database: file:data/app.db
jwt:
  secret: s3cret
`)

	t.Setenv("TOKENDESK_LISTEN", ":9999")
	t.Setenv("HUB_API_URL", "https://hub.example.com")

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Listen != ":9999" {
		t.Fatalf("listen = %q, want :9999", cfg.Listen)
	}
	if cfg.Hub.URL != "https://hub.example.com" {
		t.Fatalf("hub url = %q", cfg.Hub.URL)
	}
}

func TestResolveConfigPath(t *testing.T) {
	if got := ResolveConfigPath("custom.yaml"); got != "custom.yaml" {
		t.Fatalf("path = %q, want custom.yaml", got)
	}

	t.Setenv("TOKENDESK_CONFIG", "/etc/tokendesk/config.yaml")
	if got := ResolveConfigPath(""); got != "/etc/tokendesk/config.yaml" {
		t.Fatalf("path = %q, want env value", got)
	}

	os.Unsetenv("TOKENDESK_CONFIG")
	if got := ResolveConfigPath(""); got != DefaultConfigPath {
		t.Fatalf("path = %q, want default", got)
	}
}
