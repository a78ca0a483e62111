package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Sandbox.Root != "/data" {
		t.Errorf("expected default root /data, got %s", cfg.Sandbox.Root)
	}
	if cfg.Sandbox.Mode != "strict" {
		t.Errorf("expected default mode strict, got %s", cfg.Sandbox.Mode)
	}
	if cfg.Transcribe.TokenEnv != "AIPROXY_TOKEN" {
		t.Errorf("expected token env AIPROXY_TOKEN, got %s", cfg.Transcribe.TokenEnv)
	}
	if cfg.Git.CloneDir != "repo" {
		t.Errorf("expected clone dir repo, got %s", cfg.Git.CloneDir)
	}
	if cfg.HTTP.AllowPrivate {
		t.Error("private-network targets should be blocked by default")
	}
	if cfg.HTTP.RequireSuccess {
		t.Error("error-status bodies should be saved by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing root",
			modify:  func(c *Config) { c.Sandbox.Root = "" },
			wantErr: true,
		},
		{
			name:    "relative root",
			modify:  func(c *Config) { c.Sandbox.Root = "data" },
			wantErr: true,
		},
		{
			name:    "unknown mode",
			modify:  func(c *Config) { c.Sandbox.Mode = "fuzzy" },
			wantErr: true,
		},
		{
			name:    "lexical mode",
			modify:  func(c *Config) { c.Sandbox.Mode = "lexical" },
			wantErr: false,
		},
		{
			name:    "absolute clone dir",
			modify:  func(c *Config) { c.Git.CloneDir = "/tmp/repo" },
			wantErr: true,
		},
		{
			name:    "unknown sql engine",
			modify:  func(c *Config) { c.SQL.Engine = "postgres" },
			wantErr: true,
		},
		{
			name:    "jpeg quality too high",
			modify:  func(c *Config) { c.Image.JPEGQuality = 101 },
			wantErr: true,
		},
		{
			name:    "zero body limit",
			modify:  func(c *Config) { c.HTTP.MaxBodyBytes = 0 },
			wantErr: true,
		},
		{
			name: "nats without subject prefix",
			modify: func(c *Config) {
				c.NATS.URL = "nats://localhost:4222"
				c.NATS.SubjectPrefix = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
sandbox:
  root: "/srv/tasks"
  mode: lexical
  deny:
    - "**/.git/**"
http:
  timeout: 5s
  allow_private: true
sql:
  engine: sqlite
transcribe:
  base_url: "https://aiproxy.example/openai/v1"
nats:
  url: "nats://test:4222"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := NewLoader(nil).LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Sandbox.Root != "/srv/tasks" {
		t.Errorf("expected root /srv/tasks, got %s", cfg.Sandbox.Root)
	}
	if cfg.Sandbox.Mode != "lexical" {
		t.Errorf("expected mode lexical, got %s", cfg.Sandbox.Mode)
	}
	if len(cfg.Sandbox.Deny) != 1 {
		t.Errorf("expected 1 deny pattern, got %d", len(cfg.Sandbox.Deny))
	}
	if cfg.HTTP.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.HTTP.Timeout)
	}
	if !cfg.HTTP.AllowPrivate {
		t.Error("expected allow_private to be set")
	}
	if cfg.SQL.Engine != "sqlite" {
		t.Errorf("expected engine sqlite, got %s", cfg.SQL.Engine)
	}
	if cfg.Transcribe.Model != "whisper-1" {
		t.Errorf("expected default model to survive, got %s", cfg.Transcribe.Model)
	}
	if cfg.NATS.URL != "nats://test:4222" {
		t.Errorf("expected NATS URL nats://test:4222, got %s", cfg.NATS.URL)
	}
}

func TestLoadFileExpandsEnv(t *testing.T) {
	t.Setenv("TEST_SEMTASKS_ROOT", "/mnt/sandbox")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := `
sandbox:
  root: "${TEST_SEMTASKS_ROOT}"
server:
  addr: "${TEST_SEMTASKS_UNSET:-:9090}"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := NewLoader(nil).LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Sandbox.Root != "/mnt/sandbox" {
		t.Errorf("expected root /mnt/sandbox, got %s", cfg.Sandbox.Root)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("expected addr :9090, got %s", cfg.Server.Addr)
	}
}

func TestApplyLayerOverridesOnlyPresentKeys(t *testing.T) {
	tmpDir := t.TempDir()
	first := filepath.Join(tmpDir, "first.yaml")
	second := filepath.Join(tmpDir, "second.yaml")

	if err := os.WriteFile(first, []byte("sandbox:\n  root: /override\ngit:\n  allow_local: true\nmarkdown:\n  gfm: true\n"), 0644); err != nil {
		t.Fatalf("failed to write first layer: %v", err)
	}
	if err := os.WriteFile(second, []byte("git:\n  allow_local: false\n"), 0644); err != nil {
		t.Fatalf("failed to write second layer: %v", err)
	}

	cfg := DefaultConfig()
	if err := applyLayer(cfg, first); err != nil {
		t.Fatalf("applyLayer(first) error = %v", err)
	}
	if !cfg.Git.AllowLocal {
		t.Error("expected allow_local to be set by first layer")
	}

	if err := applyLayer(cfg, second); err != nil {
		t.Fatalf("applyLayer(second) error = %v", err)
	}

	if cfg.Git.AllowLocal {
		t.Error("expected later layer to switch allow_local back off")
	}
	if !cfg.Markdown.GFM {
		t.Error("expected gfm from first layer to survive")
	}
	if cfg.Sandbox.Root != "/override" {
		t.Errorf("expected root /override, got %s", cfg.Sandbox.Root)
	}
	// Untouched by either layer
	if cfg.Sandbox.Mode != "strict" {
		t.Errorf("expected mode to remain default, got %s", cfg.Sandbox.Mode)
	}
	if cfg.Git.CloneDir != "repo" {
		t.Errorf("expected clone dir to remain default, got %s", cfg.Git.CloneDir)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Sandbox.Root = "/saved"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := NewLoader(nil).LoadFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Sandbox.Root != "/saved" {
		t.Errorf("expected root /saved, got %s", loaded.Sandbox.Root)
	}
}
