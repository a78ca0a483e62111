// Package audio provides the audio_transcribe tool backed by an
// OpenAI-compatible transcription endpoint.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/c360studio/semstreams/agentic"
	openai "github.com/sashabaranov/go-openai"

	"github.com/c360studio/semtasks/sandbox"
	"github.com/c360studio/semtasks/tools/toolcall"
)

// ErrMissingCredential is returned when the API token variable is unset.
var ErrMissingCredential = errors.New("missing API credential")

// Config configures the transcription client
type Config struct {
	BaseURL string
	Model   string
	// TokenEnv names the environment variable holding the API token
	TokenEnv string
}

// Executor implements the audio_transcribe tool
type Executor struct {
	guard  *sandbox.Guard
	cfg    Config
	logger *slog.Logger
}

// NewExecutor creates a new audio executor
func NewExecutor(guard *sandbox.Guard, cfg Config, logger *slog.Logger) *Executor {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.TokenEnv == "" {
		cfg.TokenEnv = "AIPROXY_TOKEN"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{guard: guard, cfg: cfg, logger: logger}
}

// Transcribe sends audioPath to the transcription API and returns the text.
// The token is read from the environment on every call.
func (e *Executor) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if err := e.guard.Check(audioPath); err != nil {
		return "", err
	}

	token := os.Getenv(e.cfg.TokenEnv)
	if token == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrMissingCredential, e.cfg.TokenEnv)
	}

	f, err := e.guard.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	clientCfg := openai.DefaultConfig(token)
	if e.cfg.BaseURL != "" {
		clientCfg.BaseURL = e.cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientCfg)

	resp, err := client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.cfg.Model,
		FilePath: filepath.Base(audioPath),
		Reader:   f,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", audioPath, err)
	}

	e.logger.Debug("Audio transcribed", "path", audioPath, "model", e.cfg.Model, "chars", len(resp.Text))
	return resp.Text, nil
}

// Execute executes an audio tool call
func (e *Executor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	switch call.Name {
	case "audio_transcribe":
		return e.transcribe(ctx, call)
	default:
		return toolcall.Unknown(call)
	}
}

// ListTools returns the tool definitions for audio operations
func (e *Executor) ListTools() []agentic.ToolDefinition {
	return []agentic.ToolDefinition{
		{
			Name:        "audio_transcribe",
			Description: "Transcribe an audio file (mp3, wav, m4a, ...) to text",
			Parameters: toolcall.Schema([]string{"path"}, map[string]any{
				"path": toolcall.Prop("string", "Audio file inside the sandbox root"),
			}),
		},
	}
}

func (e *Executor) transcribe(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	path, err := toolcall.String(call, "path")
	if err != nil {
		return toolcall.Failure(call, err), nil
	}

	text, err := e.Transcribe(ctx, path)
	if err != nil {
		return toolcall.Failure(call, err), nil
	}
	return toolcall.Result(call, text), nil
}
