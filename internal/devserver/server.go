package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/zishang520/socket.io/v2/socket"
)

// SocketPath is where the socket.io endpoint is mounted.
const SocketPath = "/socket.io/"

const shutdownTimeout = 5 * time.Second

// Server broadcasts pass events and answers health checks.
type Server struct {
	addr string
	io   *socket.Server
	http *http.Server
	ln   net.Listener

	// mounted reports whether Handler has created the socket.io engine.
	mounted atomic.Bool

	mu     sync.Mutex
	latest *Event
}

// New creates a server that will listen on addr once started.
func New(addr string) *Server {
	return &Server{addr: addr, io: socket.NewServer(nil, nil)}
}

// healthHandler answers liveness probes.
func (s *Server) healthHandler(ctx context.Context) http.HandlerFunc {
	logger := ctxlog.FromContext(ctx)
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	}
}

// Handler returns the HTTP handler serving /health and the socket.io
// endpoint. New connections are sent the latest event, if any.
func (s *Server) Handler(ctx context.Context) http.Handler {
	logger := ctxlog.FromContext(ctx)

	s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		logger.Debug("DevServer: Client connected.", "sid", client.Id())
		if ev, ok := s.Latest(); ok {
			client.Emit(PassEvent, ev.payload())
		}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler(ctx))
	mux.Handle(SocketPath, s.io.ServeHandler(nil))
	s.mounted.Store(true)
	return mux
}

// Start binds the listener and serves in the background. It returns once
// the address is bound so that Addr is valid.
func (s *Server) Start(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring dev server.")

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.ln = ln
	s.http = &http.Server{Handler: s.Handler(ctx), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info("🩺 Dev server starting", "health", fmt.Sprintf("http://%s/health", ln.Addr()), "socket", fmt.Sprintf("http://%s%s", ln.Addr(), SocketPath))
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Dev server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Publish records ev as the latest event and broadcasts it.
func (s *Server) Publish(ctx context.Context, ev Event) {
	s.mu.Lock()
	s.latest = &ev
	s.mu.Unlock()

	if !s.mounted.Load() {
		return
	}
	ctxlog.FromContext(ctx).Debug("DevServer: Broadcasting pass.", "pass", ev.Pass, "failed", ev.Failed)
	s.io.Emit(PassEvent, ev.payload())
}

// Latest returns the most recently published event.
func (s *Server) Latest() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return Event{}, false
	}
	return *s.latest, true
}

// Shutdown closes client connections and stops the HTTP server, waiting at
// most five seconds for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Closing dev server...")

	if s.mounted.Load() {
		s.io.Close(nil)
	}
	if s.http == nil {
		logger.Debug("Dev server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	logger.Info("🩺 Shutting down dev server...")
	if err := s.http.Shutdown(ctx); err != nil {
		logger.Error("Dev server shutdown failed", "error", err)
		return err
	}
	logger.Debug("Dev server shut down gracefully.")
	return nil
}
