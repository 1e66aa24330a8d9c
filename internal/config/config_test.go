package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSanitizeConfigPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "simple filename",
			path: "config.yaml",
			want: "config.yaml",
		},
		{
			name: "relative subdirectory",
			path: "conf/config.yaml",
			want: filepath.Join("conf", "config.yaml"),
		},
		{
			name: "leading traversal stripped",
			path: "../config.yaml",
			want: "config.yaml",
		},
		{
			name: "multiple leading traversals stripped",
			path: "../../config.yaml",
			want: "config.yaml",
		},
		{
			name: "bare dotdot falls back to default",
			path: "..",
			want: "config.yaml",
		},
		{
			name: "absolute path kept",
			path: "/etc/notionredact/config.yaml",
			want: "/etc/notionredact/config.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeConfigPath(tt.path); got != tt.want {
				t.Errorf("sanitizeConfigPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Listen != ":8080" {
		t.Errorf("default listen = %q", cfg.Server.Listen)
	}
	if cfg.Mappings.Type != "file" {
		t.Errorf("default mapping store = %q", cfg.Mappings.Type)
	}
	if cfg.Webhook.MaxSkew != 5*time.Minute {
		t.Errorf("default webhook skew = %v", cfg.Webhook.MaxSkew)
	}
	if !cfg.Logging.Audit.Enabled {
		t.Error("audit trail disabled by default")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  listen: ":9000"
mappings:
  type: redis
  redis:
    address: "redis.internal:6379"
cache:
  base_url: "https://cdn.example.com/images/"
webhook:
  max_skew: 2m
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Listen != ":9000" {
		t.Errorf("listen = %q", cfg.Server.Listen)
	}
	if cfg.Mappings.Type != "redis" || cfg.Mappings.Redis.Address != "redis.internal:6379" {
		t.Errorf("redis settings not loaded: %+v", cfg.Mappings)
	}
	if cfg.Cache.BaseURL != "https://cdn.example.com/images/" {
		t.Errorf("cache base url = %q", cfg.Cache.BaseURL)
	}
	if cfg.Webhook.MaxSkew != 2*time.Minute {
		t.Errorf("webhook skew = %v", cfg.Webhook.MaxSkew)
	}
	// Untouched sections keep their defaults.
	if cfg.Generator.OutputDir != "./posts" {
		t.Errorf("output dir = %q", cfg.Generator.OutputDir)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Listen != DefaultConfig().Server.Listen {
		t.Errorf("missing file did not fall back to defaults")
	}
}

func TestLoad_EnvSecretsWin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("notion:\n  token: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("NOTION_TOKEN", "from-env")
	t.Setenv("WEBHOOK_SECRET", "hook-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Notion.Token != "from-env" {
		t.Errorf("notion token = %q, want env value", cfg.Notion.Token)
	}
	if cfg.Webhook.Secret != "hook-env" {
		t.Errorf("webhook secret = %q, want env value", cfg.Webhook.Secret)
	}
}
