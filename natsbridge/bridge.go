// Package natsbridge serves tool calls as NATS request/reply.
//
// Each tool listens on <prefix>.<tool name>. The request payload is the JSON
// argument object and the reply is the JSON-encoded agentic.ToolResult.
package natsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/c360studio/semstreams/agentic"
	"github.com/nats-io/nats.go"
)

// CallIDHeader optionally carries the caller's call ID.
const CallIDHeader = "Call-ID"

// Dispatcher executes tool calls by name.
type Dispatcher interface {
	Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error)
	ListTools() []agentic.ToolDefinition
}

// Config configures a Bridge.
type Config struct {
	SubjectPrefix string
	QueueGroup    string
	Logger        *slog.Logger
}

// Bridge subscribes every tool to its subject.
type Bridge struct {
	conn   *nats.Conn
	tools  Dispatcher
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
	ctx  context.Context
	stop context.CancelFunc
}

// New creates a bridge on an established connection.
func New(conn *nats.Conn, tools Dispatcher, cfg Config) *Bridge {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "semtasks.tool"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{conn: conn, tools: tools, cfg: cfg, logger: logger}
}

// Subject returns the request subject for a tool.
func (b *Bridge) Subject(tool string) string {
	return b.cfg.SubjectPrefix + "." + tool
}

// Start subscribes all tools. Handlers run with a context derived from ctx,
// so cancelling ctx aborts in-flight calls.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs != nil {
		return errors.New("bridge already started")
	}
	b.ctx, b.stop = context.WithCancel(ctx)

	for _, def := range b.tools.ListTools() {
		subject := b.Subject(def.Name)
		sub, err := b.conn.QueueSubscribe(subject, b.cfg.QueueGroup, b.handler(def.Name))
		if err != nil {
			b.unsubscribeLocked()
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		b.subs = append(b.subs, sub)
	}

	// Make sure the server has registered interest before callers send requests
	if err := b.conn.Flush(); err != nil {
		b.unsubscribeLocked()
		return fmt.Errorf("flush subscriptions: %w", err)
	}

	b.logger.Info("NATS bridge started",
		"prefix", b.cfg.SubjectPrefix,
		"queue", b.cfg.QueueGroup,
		"tools", len(b.subs))
	return nil
}

// Stop drains the subscriptions and cancels in-flight calls.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubscribeLocked()
}

func (b *Bridge) unsubscribeLocked() {
	for _, sub := range b.subs {
		if err := sub.Drain(); err != nil {
			b.logger.Debug("Drain subscription failed", "subject", sub.Subject, "error", err)
		}
	}
	b.subs = nil
	if b.stop != nil {
		b.stop()
	}
}

func (b *Bridge) handler(tool string) nats.MsgHandler {
	return func(msg *nats.Msg) {
		result := b.handle(tool, msg)

		data, err := json.Marshal(result)
		if err != nil {
			b.logger.Error("Encode tool result failed", "tool", tool, "error", err)
			return
		}
		if err := msg.Respond(data); err != nil {
			b.logger.Warn("Reply failed", "tool", tool, "subject", msg.Subject, "error", err)
		}
	}
}

func (b *Bridge) handle(tool string, msg *nats.Msg) agentic.ToolResult {
	call := agentic.ToolCall{
		Name:      tool,
		Arguments: map[string]any{},
	}
	if msg.Header != nil {
		call.ID = msg.Header.Get(CallIDHeader)
	}

	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &call.Arguments); err != nil {
			return agentic.ToolResult{
				CallID: call.ID,
				Error:  fmt.Sprintf("invalid request: %v", err),
			}
		}
	}

	result, err := b.tools.Execute(b.ctx, call)
	if err != nil && result.Error == "" {
		result.Error = err.Error()
	}
	return result
}
