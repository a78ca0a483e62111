package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultRoot is the restricted root used when none is configured.
const DefaultRoot = "/data"

// Mode selects how candidate paths are compared against the root.
type Mode string

const (
	// ModeStrict cleans the path and requires a separator boundary after the root.
	ModeStrict Mode = "strict"
	// ModeLexical is a raw string-prefix comparison.
	ModeLexical Mode = "lexical"
)

// ParseMode converts a config string into a Mode. Empty means ModeStrict.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeStrict:
		return ModeStrict, nil
	case ModeLexical:
		return ModeLexical, nil
	default:
		return "", fmt.Errorf("unknown sandbox mode %q (want strict or lexical)", s)
	}
}

// Guard validates that paths lie under a single restricted root.
// A Guard is immutable and safe for concurrent use.
type Guard struct {
	root string
	mode Mode
	deny []string
}

// Option configures a Guard.
type Option func(*Guard)

// WithMode sets the comparison mode.
func WithMode(mode Mode) Option {
	return func(g *Guard) {
		g.mode = mode
	}
}

// WithDenyPatterns rejects paths whose root-relative form matches any pattern.
func WithDenyPatterns(patterns ...string) Option {
	return func(g *Guard) {
		g.deny = append(g.deny, patterns...)
	}
}

// New creates a guard over root. The root must be absolute.
func New(root string, opts ...Option) (*Guard, error) {
	if root == "" {
		root = DefaultRoot
	}
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("sandbox root must be absolute: %s", root)
	}

	g := &Guard{
		root: filepath.Clean(root),
		mode: ModeStrict,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.mode != ModeStrict && g.mode != ModeLexical {
		return nil, fmt.Errorf("unknown sandbox mode %q", g.mode)
	}
	for _, p := range g.deny {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid deny pattern: %s", p)
		}
	}

	return g, nil
}

// Root returns the restricted root.
func (g *Guard) Root() string {
	return g.root
}

// Mode returns the comparison mode.
func (g *Guard) Mode() Mode {
	return g.mode
}

// Allow reports true when path lies under the root and returns a
// *PermissionError otherwise.
func (g *Guard) Allow(path string) (bool, error) {
	if path == "" {
		return false, g.reject(path, "empty path")
	}

	var rel string
	switch g.mode {
	case ModeLexical:
		if !strings.HasPrefix(path, g.root) {
			return false, g.reject(path, "outside restricted root")
		}
		rel = strings.TrimLeft(strings.TrimPrefix(path, g.root), "/")
	default:
		clean := filepath.Clean(path)
		if !within(g.root, clean) {
			return false, g.reject(path, "outside restricted root")
		}
		rel = strings.TrimPrefix(strings.TrimPrefix(clean, g.root), string(filepath.Separator))
	}

	if rel != "" {
		slashed := filepath.ToSlash(rel)
		for _, pattern := range g.deny {
			if ok, _ := doublestar.Match(pattern, slashed); ok {
				return false, g.reject(path, "matches deny pattern "+pattern)
			}
		}
	}

	return true, nil
}

// Check validates every path and returns the first rejection.
func (g *Guard) Check(paths ...string) error {
	for _, p := range paths {
		if _, err := g.Allow(p); err != nil {
			return err
		}
	}
	return nil
}

// Resolve joins relative paths onto the root and validates the result.
// Absolute paths are validated as given.
func (g *Guard) Resolve(path string) (string, error) {
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(g.root, path)
	}
	if err := g.Check(path); err != nil {
		return "", err
	}
	return path, nil
}

// within reports whether clean equals root or descends from it.
func within(root, clean string) bool {
	if clean == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(clean, prefix)
}

func (g *Guard) reject(path, reason string) error {
	return &PermissionError{Path: path, Root: g.root, Reason: reason}
}

// WriteFile validates path and writes data to it, creating parent
// directories as needed.
func (g *Guard) WriteFile(path string, data []byte) error {
	if err := g.Check(path); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadFile validates path and returns its contents.
func (g *Guard) ReadFile(path string) ([]byte, error) {
	if err := g.Check(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Open validates path and opens it for reading.
func (g *Guard) Open(path string) (*os.File, error) {
	if err := g.Check(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
