// Package git provides the clone-and-commit tool.
package git

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/c360studio/semstreams/agentic"

	"github.com/c360studio/semtasks/sandbox"
	"github.com/c360studio/semtasks/tools/toolcall"
)

// allowedProtocols defines the git URL protocols that are permitted for cloning.
var allowedProtocols = map[string]bool{
	"https": true,
	"git":   true,
	"ssh":   true,
}

// Config configures the git executor
type Config struct {
	// CloneDir is the clone destination relative to the sandbox root
	CloneDir    string
	AuthorName  string
	AuthorEmail string
	// AllowLocal permits file:// URLs and bare filesystem paths as sources
	AllowLocal bool
}

// Executor implements the git_clone_commit tool
type Executor struct {
	guard  *sandbox.Guard
	cfg    Config
	logger *slog.Logger
}

// NewExecutor creates a new git executor
func NewExecutor(guard *sandbox.Guard, cfg Config, logger *slog.Logger) *Executor {
	if cfg.CloneDir == "" {
		cfg.CloneDir = "repo"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{guard: guard, cfg: cfg, logger: logger}
}

// RepoPath returns the clone destination.
func (e *Executor) RepoPath() string {
	return filepath.Join(e.guard.Root(), e.cfg.CloneDir)
}

// CloneAndCommit clones repoURL into the sandbox, stages everything and
// commits with message. It returns the new HEAD commit hash.
// A non-zero git exit is returned with the command output.
func (e *Executor) CloneAndCommit(ctx context.Context, repoURL, message string, allowEmpty bool) (string, error) {
	repoPath := e.RepoPath()
	if err := e.guard.Check(repoPath); err != nil {
		return "", err
	}
	if message == "" {
		return "", fmt.Errorf("commit message is required")
	}
	if err := e.validateSource(repoURL); err != nil {
		return "", err
	}

	if _, err := e.runGit(ctx, "", "clone", repoURL, repoPath); err != nil {
		return "", fmt.Errorf("git clone: %w", err)
	}
	if _, err := e.runGit(ctx, repoPath, "add", "."); err != nil {
		return "", fmt.Errorf("git add: %w", err)
	}

	args := []string{
		"-c", "user.name=" + e.cfg.AuthorName,
		"-c", "user.email=" + e.cfg.AuthorEmail,
		"commit", "-m", message,
	}
	if allowEmpty {
		args = append(args, "--allow-empty")
	}
	if _, err := e.runGit(ctx, repoPath, args...); err != nil {
		return "", fmt.Errorf("git commit: %w", err)
	}

	head, err := e.runGit(ctx, repoPath, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	head = strings.TrimSpace(head)

	e.logger.Info("Cloned and committed", "url", repoURL, "path", repoPath, "head", head)
	return head, nil
}

// validateSource checks the clone URL protocol. Local sources must also
// pass the sandbox guard.
func (e *Executor) validateSource(repoURL string) error {
	if repoURL == "" {
		return fmt.Errorf("repository URL is required")
	}
	// SSH shorthand (git@github.com:owner/repo.git)
	if strings.HasPrefix(repoURL, "git@") {
		return nil
	}

	parsed, err := url.Parse(repoURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if allowedProtocols[scheme] {
		return nil
	}

	if scheme == "" || scheme == "file" {
		if !e.cfg.AllowLocal {
			return fmt.Errorf("local repositories are not allowed")
		}
		localPath := repoURL
		if scheme == "file" {
			localPath = parsed.Path
		}
		return e.guard.Check(localPath)
	}

	return fmt.Errorf("protocol %q not allowed; must be https, git, or ssh", scheme)
}

// runGit executes a git command in dir
func (e *Executor) runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// Execute executes a git tool call
func (e *Executor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	switch call.Name {
	case "git_clone_commit":
		return e.cloneAndCommit(ctx, call)
	default:
		return toolcall.Unknown(call)
	}
}

// ListTools returns the tool definitions for git operations
func (e *Executor) ListTools() []agentic.ToolDefinition {
	return []agentic.ToolDefinition{
		{
			Name:        "git_clone_commit",
			Description: "Clone a git repository into the sandbox, stage all files and commit",
			Parameters: toolcall.Schema([]string{"url", "message"}, map[string]any{
				"url":         toolcall.Prop("string", "Repository URL (https, ssh, git, or git@host:path)"),
				"message":     toolcall.Prop("string", "Commit message"),
				"allow_empty": toolcall.Prop("boolean", "Create the commit even when nothing changed"),
			}),
		},
	}
}

func (e *Executor) cloneAndCommit(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	repoURL, err := toolcall.String(call, "url")
	if err != nil {
		return toolcall.Failure(call, err), nil
	}
	message, err := toolcall.String(call, "message")
	if err != nil {
		return toolcall.Failure(call, err), nil
	}

	head, err := e.CloneAndCommit(ctx, repoURL, message, toolcall.Bool(call, "allow_empty"))
	if err != nil {
		return toolcall.Failure(call, err), nil
	}
	return toolcall.Result(call, fmt.Sprintf("Cloned %s to %s\nHEAD: %s", repoURL, e.RepoPath(), head)), nil
}
