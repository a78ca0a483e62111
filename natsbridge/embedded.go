package natsbridge

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// Conn is a NATS connection, optionally backed by an in-process server.
type Conn struct {
	*nats.Conn
	embedded *server.Server
}

// Connect connects to url, or starts an embedded server when embedded is set.
func Connect(url string, embedded bool) (*Conn, error) {
	if !embedded {
		nc, err := nats.Connect(url, nats.Name("semtasks"))
		if err != nil {
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		return &Conn{Conn: nc}, nil
	}

	ns, err := StartEmbedded()
	if err != nil {
		return nil, err
	}

	nc, err := nats.Connect(ns.ClientURL(), nats.Name("semtasks"))
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("connect to embedded NATS: %w", err)
	}
	return &Conn{Conn: nc, embedded: ns}, nil
}

// StartEmbedded runs a NATS server on a random local port.
func StartEmbedded() (*server.Server, error) {
	opts := &server.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random available port
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server failed to start")
	}
	return ns, nil
}

// Close drains the connection and stops the embedded server, if any.
func (c *Conn) Close() {
	if c.Conn != nil {
		_ = c.Conn.Drain()
		c.Conn.Close()
	}
	if c.embedded != nil {
		c.embedded.Shutdown()
		c.embedded.WaitForShutdown()
	}
}
