// Package server exposes the daemon over JSON-RPC 2.0: HTTP POST on
// /jsonrpc and WebSocket sessions on /jsonrpc/ws, both behind a Bearer
// token. WebSocket sessions also receive prayer.reminder pushes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/waqtapp/waqt/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// Config selects the listen address.
type Config struct {
	Host string
	Port int
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Server is the daemon's HTTP front end.
type Server struct {
	log      logger.Logger
	cfg      Config
	rpc      *RPCServer
	notifier *RPCNotifier

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

func NewServer(l logger.Logger, cfg Config, rpc *RPCServer, notifier *RPCNotifier) *Server {
	return &Server{
		log:      logger.OrNop(l),
		cfg:      cfg,
		rpc:      rpc,
		notifier: notifier,
	}
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/jsonrpc", requireToken(s.rpc.secret, s.rpc.bridge))
	mux.Handle("/jsonrpc/ws", requireToken(s.rpc.secret, http.HandlerFunc(s.handleWS)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": s.rpc.version})
	})
	return mux
}

// Listen binds the configured address. Start calls it when needed.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	l, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return err
	}
	s.listener = l
	s.server = &http.Server{
		Handler:           s.Handler(),
		ErrorLog:          logger.ToStdLogger(s.log, "error"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr()
}

// Start serves until ctx is canceled or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	srv, l := s.server, s.listener
	s.mu.Unlock()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Shutdown()
		case <-stop:
		}
	}()

	s.log.Info("server: listening on %s", l.Addr())
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and the RPC bridge.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(ctx)
	s.notifier.StopAll()
	s.rpc.Close()
	return err
}
