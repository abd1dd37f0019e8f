package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kytnacode/go-jrpcclient/auth"
)

const exampleConfig = `
default_profile = "local"

[profiles.local]
url = "http://127.0.0.1:9000/rpc"
timeout = "5s"
headers = { "X-Tenant" = "acme" }

[profiles.staging]
url = "https://staging.example.com/rpc"
cbor = true

[profiles.staging.auth]
mode = "client_credentials"
issuer = "https://id.example.com"
client_id = "cli"
client_secret_env = "STAGING_SECRET"
scopes = ["rpc"]

[profiles.broken]
timeout = "soon"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "jrpc.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return path
}

func env(vars map[string]string) func(string) string {
	return func(key string) string {
		return vars[key]
	}
}

func TestLoadProfileDefaults(t *testing.T) {
	cfg, err := loadProfile("", "", env(nil))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.URL != defaultURL {
		t.Fatalf("unexpected url: %q", cfg.URL)
	}
	if cfg.Timeout != defaultTimeout {
		t.Fatalf("unexpected timeout: %v", cfg.Timeout)
	}
	if cfg.Auth.Mode != auth.ModeNone {
		t.Fatalf("unexpected auth mode: %q", cfg.Auth.Mode)
	}
}

func TestLoadProfileDefaultProfileAndOverrides(t *testing.T) {
	path := writeConfig(t, exampleConfig)

	cfg, err := loadProfile(path, "", env(nil))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Name != "local" {
		t.Fatalf("unexpected profile: %q", cfg.Name)
	}
	if cfg.URL != "http://127.0.0.1:9000/rpc" {
		t.Fatalf("unexpected url: %q", cfg.URL)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.Timeout)
	}
	if cfg.Headers["X-Tenant"] != "acme" {
		t.Fatalf("unexpected headers: %+v", cfg.Headers)
	}
	if cfg.CBOR {
		t.Fatalf("expected cbor disabled")
	}
}

func TestLoadProfileNamedProfileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, exampleConfig)

	cfg, err := loadProfile(path, "staging", env(map[string]string{"STAGING_SECRET": "s3cret"}))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.URL != "https://staging.example.com/rpc" {
		t.Fatalf("unexpected url: %q", cfg.URL)
	}
	if cfg.Timeout != defaultTimeout {
		t.Fatalf("expected default timeout, got %v", cfg.Timeout)
	}
	if !cfg.CBOR {
		t.Fatalf("expected cbor enabled")
	}
	if cfg.Auth.Mode != auth.ModeClientCredentials || cfg.Auth.ClientID != "cli" || cfg.Auth.ClientSecret != "s3cret" {
		t.Fatalf("unexpected auth: %+v", cfg.Auth)
	}
	if len(cfg.Auth.Scopes) != 1 || cfg.Auth.Scopes[0] != "rpc" {
		t.Fatalf("unexpected scopes: %+v", cfg.Auth.Scopes)
	}
}

func TestLoadProfileEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, exampleConfig)

	cfg, err := loadProfile(path, "staging", env(map[string]string{
		"JRPC_URL":   "http://override/rpc",
		"JRPC_TOKEN": "abc",
	}))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.URL != "http://override/rpc" {
		t.Fatalf("unexpected url: %q", cfg.URL)
	}
	if cfg.Auth.Mode != auth.ModeBearer || cfg.Auth.Token != "abc" {
		t.Fatalf("unexpected auth: %+v", cfg.Auth)
	}
}

func TestLoadProfileErrors(t *testing.T) {
	path := writeConfig(t, exampleConfig)

	if _, err := loadProfile(path, "missing", env(nil)); !errors.Is(err, errUnknownProfile) {
		t.Fatalf("expected unknown profile error, got %v", err)
	}
	if _, err := loadProfile(path, "broken", env(nil)); err == nil {
		t.Fatalf("expected timeout parse error")
	}
	if _, err := loadProfile(filepath.Join(t.TempDir(), "none.toml"), "", env(nil)); err == nil {
		t.Fatalf("expected missing file error")
	}
	if _, err := loadProfile(writeConfig(t, "profiles = ["), "", env(nil)); err == nil {
		t.Fatalf("expected decode error")
	}
}
