package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/opennegotiation/config"
	"github.com/cloudx-io/opennegotiation/core"
	"github.com/cloudx-io/opennegotiation/party"
	"github.com/cloudx-io/opennegotiation/store"
)

// maxMessageSize bounds a single inform read from the host.
const maxMessageSize = 1 << 20

// Server hosts one Party per websocket connection.
type Server struct {
	cfg      *config.Config
	opener   party.OracleOpener
	store    store.Store
	recorder party.Recorder

	echo      *echo.Echo
	http      *http.Server
	upgrader  websocket.Upgrader
	semaphore chan struct{}
	active    atomic.Int64
	now       func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithStore serves receipts from st.
func WithStore(st store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithRecorder hands every finished session to r.
func WithRecorder(r party.Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithClock replaces the wall clock handed to parties and used in responses.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds a server for cfg. Profiles named in session settings are opened
// with opener.
func New(cfg *config.Config, opener party.OracleOpener, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		opener:    opener,
		semaphore: make(chan struct{}, cfg.Server.MaxWorkers),
		now:       time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Hosts are not browsers.
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.registerRoutes(s.echo)
	s.http = &http.Server{Handler: s.echo}

	log.Printf("INFO: Worker pool initialized with %d max concurrent sessions", cfg.Server.MaxWorkers)
	return s
}

// Handler exposes the HTTP routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Listen opens the listener configured by server.network.
func Listen(cfg *config.Config) (net.Listener, error) {
	switch cfg.Server.Network {
	case config.NetworkVsock:
		listener, err := vsock.Listen(cfg.Server.VsockPort, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create vsock listener: %w", err)
		}
		log.Printf("INFO: Party server listening on vsock port %d", cfg.Server.VsockPort)
		return listener, nil
	default:
		listener, err := net.Listen("tcp", cfg.Server.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to create tcp listener: %w", err)
		}
		log.Printf("INFO: Party server listening on %s", listener.Addr())
		return listener, nil
	}
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for HTTP handlers to return.
// Websocket sessions are hijacked connections and end when their host closes
// them or ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// acquire takes a worker slot without waiting.
func (s *Server) acquire() bool {
	select {
	case s.semaphore <- struct{}{}:
		s.active.Add(1)
		return true
	default:
		return false
	}
}

func (s *Server) release() {
	s.active.Add(-1)
	<-s.semaphore
}

// newStrategy builds a fresh strategy for one session. A configured seed makes
// every session draw the same sequence.
func (s *Server) newStrategy() (party.Strategy, error) {
	return party.NewStrategy(s.cfg.Party.Strategy, core.NewRandSource(s.cfg.Party.Seed))
}
