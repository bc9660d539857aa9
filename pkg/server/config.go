package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServerConfig holds configuration for the inspection server.
type ServerConfig struct {
	// Address is the listen address.
	// Default: "localhost:7070".
	Address string

	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// Logger receives request and stream errors.
	// Default: slog.Default().
	Logger *slog.Logger

	// ReadBufferSize and WriteBufferSize size the WebSocket buffers.
	// Default: 1024 each.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin validates the Origin of /events upgrades.
	// Default: same-origin only.
	CheckOrigin func(r *http.Request) bool

	// MaxEventQueue is the number of events buffered per stream before
	// further events are dropped.
	// Default: 256.
	MaxEventQueue int

	// WriteTimeout bounds each WebSocket write.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// ReadHeaderTimeout is passed to http.Server.
	// Default: 5 seconds.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:           "localhost:7070",
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		MaxEventQueue:     256,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// WithAddress returns a copy of the config with a different address.
func (c *ServerConfig) WithAddress(addr string) *ServerConfig {
	clone := *c
	clone.Address = addr
	return &clone
}

// WithGatherer returns a copy of the config serving metrics from g.
func (c *ServerConfig) WithGatherer(g prometheus.Gatherer) *ServerConfig {
	clone := *c
	clone.Gatherer = g
	return &clone
}

// WithLogger returns a copy of the config with a different logger.
func (c *ServerConfig) WithLogger(l *slog.Logger) *ServerConfig {
	clone := *c
	clone.Logger = l
	return &clone
}

func (c *ServerConfig) applyDefaults() {
	d := DefaultServerConfig()
	if c.Address == "" {
		c.Address = d.Address
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.MaxEventQueue <= 0 {
		c.MaxEventQueue = d.MaxEventQueue
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
}
