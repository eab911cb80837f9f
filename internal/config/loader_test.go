package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader("").Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Listen.Port != 5050 {
		t.Fatalf("expected default port 5050, got %d", cfg.Server.Listen.Port)
	}
	if cfg.API.ServiceName != "Flask Supabase Backend API" {
		t.Fatalf("unexpected service name %q", cfg.API.ServiceName)
	}
	if cfg.Cache.TTLSeconds != 3600 {
		t.Fatalf("expected default ttl 3600, got %d", cfg.Cache.TTLSeconds)
	}
	if !cfg.RateLimit.Enabled || len(cfg.RateLimit.Limits) != 3 {
		t.Fatalf("unexpected rate limit defaults: %#v", cfg.RateLimit)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := []byte("server:\n  listen:\n    port: 8080\napi:\n  serviceName: File Service\n")
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SUPABLOG_SERVER__LISTEN__PORT", "9090")
	t.Setenv("SUPABLOG_SUPABASE__JWTSECRET", "env-secret")

	cfg, err := NewLoader("SUPABLOG", path).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Listen.Port != 9090 {
		t.Fatalf("expected env port override, got %d", cfg.Server.Listen.Port)
	}
	if cfg.API.ServiceName != "File Service" {
		t.Fatalf("expected file service name, got %q", cfg.API.ServiceName)
	}
	if cfg.Supabase.JWTSecret != "env-secret" {
		t.Fatalf("expected env jwt secret, got %q", cfg.Supabase.JWTSecret)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := NewLoader("", "/nonexistent/config.yaml").Load(context.Background()); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"port":          func(c *Config) { c.Server.Listen.Port = 0 },
		"timeout":       func(c *Config) { c.Server.RequestTimeoutSeconds = 0 },
		"cache backend": func(c *Config) { c.Cache.Backend = "memcached" },
		"cache ttl":     func(c *Config) { c.Cache.TTLSeconds = 0 },
		"empty limits":  func(c *Config) { c.RateLimit.Limits = nil },
		"queue":         func(c *Config) { c.Tasks.Queue = " " },
		"api prefix":    func(c *Config) { c.API.Prefix = "api/v1" },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
