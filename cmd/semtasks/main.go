// Package main provides the semtasks binary entry point.
// Semtasks runs sandboxed I/O tasks (fetch, scrape, clone, query, image,
// transcribe, markdown, CSV) from the command line or as a service.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/c360studio/semtasks/config"
	"github.com/c360studio/semtasks/tools"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semtasks"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// skipSetup marks commands that run without loading config or building tools.
const skipSetup = "semtasks/skip-setup"

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	rootPath   string
	logLevel   string

	logger   *slog.Logger
	cfg      *config.Config
	registry *prometheus.Registry
	tools    *tools.Set
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Sandboxed task runner",
		Long: `Semtasks runs narrow I/O tasks whose file access is confined to a
single restricted root directory (default /data).

Each task is available as a subcommand, as an HTTP endpoint and as a
NATS request/reply subject when running "semtasks serve".`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] == "true" {
				a.logger = newLogger(cmd.ErrOrStderr(), a.logLevel)
				return nil
			}
			return a.setup(cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML); default searches semtasks.yaml")
	flags.StringVar(&a.rootPath, "root", "", "Restricted root directory (overrides config)")
	flags.StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		fetchCmd(a),
		scrapeCmd(a),
		cloneCmd(a),
		queryCmd(a),
		imageCmd(a),
		transcribeCmd(a),
		md2htmlCmd(a),
		filterCSVCmd(a),
		serveCmd(a),
		configCmd(a),
		&cobra.Command{
			Use:         "version",
			Short:       "Print version information",
			Annotations: map[string]string{skipSetup: "true"},
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// setup configures logging, loads configuration and builds the tool set.
func (a *app) setup(stderr io.Writer) error {
	a.logger = newLogger(stderr, a.logLevel)
	slog.SetDefault(a.logger)

	loader := config.NewLoader(a.logger)
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = loader.LoadFile(a.configPath)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if a.rootPath != "" {
		abs, err := filepath.Abs(a.rootPath)
		if err != nil {
			return fmt.Errorf("resolve root: %w", err)
		}
		cfg.Sandbox.Root = abs
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}
	a.cfg = cfg

	guard, err := tools.NewGuard(cfg.Sandbox)
	if err != nil {
		return fmt.Errorf("create sandbox guard: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.tools, err = tools.NewSet(cfg, guard, tools.Options{
		Logger:     a.logger,
		Registerer: a.registry,
	})
	if err != nil {
		return fmt.Errorf("create tools: %w", err)
	}

	a.logger.Debug("Semtasks configured",
		"version", Version,
		"root", guard.Root(),
		"mode", guard.Mode())
	return nil
}

func newLogger(w io.Writer, logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// resolve maps a CLI path argument onto the restricted root.
func (a *app) resolve(path string) (string, error) {
	return a.tools.Guard().Resolve(path)
}
