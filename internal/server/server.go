// Package server serves the notes API over a single-threaded,
// readiness-polling connection loop.
package server

import (
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/introspection"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Config holds the listener settings.
type Config struct {
	Host        string  // defaults to 0.0.0.0
	Port        int     // 0 picks a free port
	ReadBuffer  int     // bytes read per ready socket, defaults to 4096
	AcceptRate  float64 // accepted connections per second, 0 means unlimited
	AcceptBurst int     // defaults to 1 when AcceptRate is set
	Logger      *slog.Logger
}

// Server owns the listening socket and every accepted client socket.
// Requests are handled one at a time on the goroutine running Serve.
type Server struct {
	config  Config
	router  *Router
	logger  *slog.Logger
	limiter *rate.Limiter

	mu       sync.Mutex
	listenFD int
	wakeR    int
	wakeW    int
	addr     string
	conns    map[int]*conn
	order    []int
	running  bool
	started  *time.Time

	accepted  atomic.Uint64
	served    atomic.Uint64
	dropped   atomic.Uint64
	throttled atomic.Uint64
	closing   atomic.Bool
}

// conn is one registered client socket.
type conn struct {
	fd       int
	id       uuid.UUID
	peer     string
	accepted time.Time
}

// New creates a server dispatching to router. Call Listen, then Serve.
func New(config Config, router *Router) *Server {
	if config.Host == "" {
		config.Host = "0.0.0.0"
	}
	if config.ReadBuffer <= 0 {
		config.ReadBuffer = 4096
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	s := &Server{
		config:   config,
		router:   router,
		logger:   config.Logger,
		listenFD: -1,
		wakeR:    -1,
		wakeW:    -1,
		conns:    make(map[int]*conn),
	}
	if config.AcceptRate > 0 {
		burst := config.AcceptBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(config.AcceptRate), burst)
	}
	return s
}

// Addr returns the bound address, or "" before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) configuredAddr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// ServerState exposes internal state for observability.
type ServerState struct {
	Addr        string     `json:"addr"`
	Running     bool       `json:"running"`
	Started     *time.Time `json:"started,omitempty"`
	Connections int        `json:"connections"`
	Accepted    uint64     `json:"accepted"`
	Served      uint64     `json:"served"`
	Dropped     uint64     `json:"dropped"`
	Throttled   uint64     `json:"throttled"`
	ReadBuffer  int        `json:"read_buffer"`
	AcceptRate  float64    `json:"accept_rate,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Server) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return ServerState{
		Addr:        s.addr,
		Running:     s.running,
		Started:     s.started,
		Connections: len(s.conns),
		Accepted:    s.accepted.Load(),
		Served:      s.served.Load(),
		Dropped:     s.dropped.Load(),
		Throttled:   s.throttled.Load(),
		ReadBuffer:  s.config.ReadBuffer,
		AcceptRate:  s.config.AcceptRate,
	}
}

// ComponentType implements introspection.Component.
func (s *Server) ComponentType() string {
	return "notes-server"
}

var _ introspection.Introspectable = (*Server)(nil)
var _ introspection.Component = (*Server)(nil)
