package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/semtasks/api"
	"github.com/c360studio/semtasks/natsbridge"
)

func serveCmd(a *app) *cobra.Command {
	var (
		addr     string
		natsURL  string
		embedded bool
		register bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over HTTP and, optionally, NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if natsURL != "" {
				a.cfg.NATS.URL = natsURL
			}
			if embedded {
				a.cfg.NATS.Embedded = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, register)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server URL; enables the request/reply bridge")
	cmd.Flags().BoolVar(&embedded, "nats-embedded", false, "Run an in-process NATS server for the bridge")
	cmd.Flags().BoolVar(&register, "register-tools", false, "Register tools with the agentic-tools registry")
	return cmd
}

func (a *app) serve(ctx context.Context, register bool) error {
	if register {
		n := a.tools.RegisterAll()
		a.logger.Info("Registered agentic tools", "count", n)
	}

	// Connect NATS before serving HTTP so a bad URL fails fast
	if a.cfg.NATS.Enabled() {
		conn, err := natsbridge.Connect(a.cfg.NATS.URL, a.cfg.NATS.Embedded)
		if err != nil {
			return err
		}
		defer conn.Close()

		bridge := natsbridge.New(conn.Conn, a.tools, natsbridge.Config{
			SubjectPrefix: a.cfg.NATS.SubjectPrefix,
			QueueGroup:    a.cfg.NATS.QueueGroup,
			Logger:        a.logger,
		})
		if err := bridge.Start(ctx); err != nil {
			return fmt.Errorf("start NATS bridge: %w", err)
		}
		defer bridge.Stop()
		a.logger.Info("NATS bridge connected", "url", conn.ConnectedUrl())
	}

	server := api.NewServer(a.tools, a.tools.CSV, api.Options{
		Addr:            a.cfg.Server.Addr,
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
		Gatherer:        a.registry,
		Logger:          a.logger,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx)
	})

	a.logger.Info("Semtasks ready",
		"version", Version,
		"root", a.tools.Guard().Root(),
		"addr", a.cfg.Server.Addr)

	return g.Wait()
}
