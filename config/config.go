// Package config provides configuration loading and management for semtasks.
//
// Layers are applied by decoding each YAML file directly onto the config
// built so far. Only keys present in a file change anything, so a later
// layer can set a field back to its zero value (for example
// `allow_local: false`) while keys it omits keep their earlier values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete semtasks configuration
type Config struct {
	Sandbox    SandboxConfig    `yaml:"sandbox"`
	HTTP       HTTPConfig       `yaml:"http"`
	Git        GitConfig        `yaml:"git"`
	SQL        SQLConfig        `yaml:"sql"`
	Image      ImageConfig      `yaml:"image"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Markdown   MarkdownConfig   `yaml:"markdown"`
	Server     ServerConfig     `yaml:"server"`
	NATS       NATSConfig       `yaml:"nats"`
}

// SandboxConfig configures the restricted root that gates file access
type SandboxConfig struct {
	// Root is the only directory tree tasks may touch (default: /data)
	Root string `yaml:"root"`
	// Mode is "strict" (boundary-aware) or "lexical" (plain prefix)
	Mode string `yaml:"mode"`
	// Deny lists doublestar patterns, relative to Root, that are always rejected
	Deny []string `yaml:"deny"`
}

// HTTPConfig configures fetch and scrape requests
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`

	// AllowPrivate permits loopback, link-local and private-network targets
	AllowPrivate bool `yaml:"allow_private"`

	// RequireSuccess turns non-2xx responses into errors instead of saving the body
	RequireSuccess bool `yaml:"require_success"`
}

// GitConfig configures clone-and-commit
type GitConfig struct {
	// CloneDir is the clone destination relative to the sandbox root
	CloneDir    string `yaml:"clone_dir"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
	// AllowLocal permits file:// and bare-path repository URLs
	AllowLocal bool `yaml:"allow_local"`
}

// SQLConfig configures query execution
type SQLConfig struct {
	// Engine forces "sqlite" or "duckdb"; empty selects by file suffix
	Engine string `yaml:"engine"`
}

// ImageConfig configures image encoding
type ImageConfig struct {
	JPEGQuality int `yaml:"jpeg_quality"`
}

// TranscribeConfig configures the transcription API
type TranscribeConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// TokenEnv names the environment variable holding the API token
	TokenEnv string `yaml:"token_env"`
}

// MarkdownConfig configures markdown rendering
type MarkdownConfig struct {
	// Standalone wraps output in a full HTML document
	Standalone bool `yaml:"standalone"`
	// GFM enables GitHub-flavored extensions (tables, strikethrough, autolinks)
	GFM bool `yaml:"gfm"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// NATSConfig configures the NATS request/reply bridge
type NATSConfig struct {
	// URL is the NATS server URL (empty = bridge disabled unless Embedded)
	URL string `yaml:"url"`
	// Embedded starts an in-process NATS server and ignores URL
	Embedded bool `yaml:"embedded"`
	// SubjectPrefix is prepended to tool names, e.g. semtasks.tool.csv_filter
	SubjectPrefix string `yaml:"subject_prefix"`
	// QueueGroup load-balances requests across serve instances
	QueueGroup string `yaml:"queue_group"`
}

// Enabled reports whether the NATS bridge should run.
func (n NATSConfig) Enabled() bool {
	return n.URL != "" || n.Embedded
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Sandbox: SandboxConfig{
			Root: "/data",
			Mode: "strict",
		},
		HTTP: HTTPConfig{
			Timeout:      60 * time.Second,
			UserAgent:    "semtasks/0.1",
			MaxBodyBytes: 50 << 20,
		},
		Git: GitConfig{
			CloneDir:    "repo",
			AuthorName:  "semtasks",
			AuthorEmail: "semtasks@localhost",
		},
		Image: ImageConfig{
			JPEGQuality: 85,
		},
		Transcribe: TranscribeConfig{
			BaseURL:  "https://api.openai.com/v1",
			Model:    "whisper-1",
			TokenEnv: "AIPROXY_TOKEN",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		NATS: NATSConfig{
			SubjectPrefix: "semtasks.tool",
			QueueGroup:    "semtasks",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Sandbox.Root == "" {
		return fmt.Errorf("sandbox.root is required")
	}
	if !filepath.IsAbs(c.Sandbox.Root) {
		return fmt.Errorf("sandbox.root must be an absolute path")
	}
	switch c.Sandbox.Mode {
	case "", "strict", "lexical":
	default:
		return fmt.Errorf("sandbox.mode must be strict or lexical")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be positive")
	}
	if c.Git.CloneDir == "" || filepath.IsAbs(c.Git.CloneDir) {
		return fmt.Errorf("git.clone_dir must be a relative path")
	}
	switch c.SQL.Engine {
	case "", "sqlite", "duckdb":
	default:
		return fmt.Errorf("sql.engine must be sqlite or duckdb")
	}
	if c.Image.JPEGQuality < 1 || c.Image.JPEGQuality > 100 {
		return fmt.Errorf("image.jpeg_quality must be between 1 and 100")
	}
	if c.Transcribe.TokenEnv == "" {
		return fmt.Errorf("transcribe.token_env is required")
	}
	if c.NATS.Enabled() && c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("nats.subject_prefix is required when the NATS bridge is enabled")
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
