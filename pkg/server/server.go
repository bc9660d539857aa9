package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/vgraph/pkg/graph"
)

// Server exposes a graph over HTTP: node listing, reads and writes of
// Static nodes, a dependency tree, Prometheus metrics and a WebSocket stream
// of graph events.
type Server struct {
	graph    *graph.Graph
	config   *ServerConfig
	router   chi.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	streams    map[*stream]struct{}
}

// New creates a server for g. A nil config uses DefaultServerConfig.
func New(g *graph.Graph, config *ServerConfig) *Server {
	if config == nil {
		config = DefaultServerConfig()
	} else {
		clone := *config
		config = &clone
	}
	config.applyDefaults()

	s := &Server{
		graph:  g,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger:  config.Logger.With("component", "server"),
		streams: make(map[*stream]struct{}),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/nodes", s.handleListNodes)
	r.Get("/nodes/{name}", s.handleGetNode)
	r.Put("/nodes/{name}", s.handleSetNode)
	r.Get("/tree", s.handleTree)
	r.Get("/events", s.handleEvents)
	if s.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the router for mounting in another mux.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/graph", srv.Handler())
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on the configured address until ctx is done, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every event stream and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	streams := make([]*stream, 0, len(s.streams))
	for st := range s.streams {
		streams = append(streams, st)
	}
	srv := s.httpServer
	s.mu.Unlock()

	for _, st := range streams {
		st.close()
	}

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Streams returns the number of connected event streams.
func (s *Server) Streams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// lookup finds the node called name. The earliest created wins.
func (s *Server) lookup(name string) (*graph.ID, bool) {
	for _, id := range s.graph.Nodes() {
		if id.Name() == name {
			return id, true
		}
	}
	return nil, false
}
