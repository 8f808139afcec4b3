package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/RyanBlaney/sonido-tonal/engine"
	"github.com/RyanBlaney/sonido-tonal/logging"
)

// Config configures the HTTP listener
type Config struct {
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	Path       string `mapstructure:"path" json:"path"`
}

// DefaultConfig listens on :8080 and serves websockets on /ws
func DefaultConfig() Config {
	return Config{ListenAddr: ":8080", Path: "/ws"}
}

// SnapshotSource is the part of the engine the server depends on
type SnapshotSource interface {
	Subscribe() *engine.Subscription
	Unsubscribe(sub *engine.Subscription)
	Snapshot() engine.Snapshot
	State() engine.State
}

// Server relays engine snapshots to websocket clients and exposes the
// latest snapshot over plain HTTP
type Server struct {
	cfg    Config
	source SnapshotSource
	hub    *Hub
	logger logging.Logger
	mux    *http.ServeMux
}

// New creates a server for src
func New(cfg Config, src SnapshotSource, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	s := &Server{
		cfg:    cfg,
		source: src,
		hub:    NewHub(logger),
		logger: logger.WithFields(logging.Fields{"component": "server"}),
		mux:    http.NewServeMux(),
	}
	s.mux.Handle(cfg.Path, s.hub)
	s.mux.HandleFunc("/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	return s
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Hub returns the broadcast hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Relay broadcasts every snapshot from the source until ctx is done
func (s *Server) Relay(ctx context.Context) {
	sub := s.source.Subscribe()
	defer s.source.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.C:
			if !ok {
				return
			}
			if err := s.hub.BroadcastJSON(snap); err != nil {
				s.logger.Error(err, "failed to encode snapshot")
			}
		}
	}
}

// ListenAndServe runs the hub, the relay and the HTTP listener until ctx
// is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.hub.Run(ctx)
	go s.Relay(ctx)

	httpServer := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	s.logger.Info("server listening", logging.Fields{
		"addr": ln.Addr().String(),
		"path": s.cfg.Path,
	})

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.source.Snapshot()); err != nil {
		s.logger.Error(err, "failed to write snapshot")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"state":   s.source.State().String(),
		"clients": s.hub.ClientCount(),
	})
}
