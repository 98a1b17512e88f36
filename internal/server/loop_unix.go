//go:build linux || darwin

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

const listenBacklog = 128

// Listen binds the listening socket and the wake pipe.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listenFD >= 0 {
		return errors.New("server already listening")
	}

	sa, family, err := resolveSockaddr(s.config.Host, s.config.Port)
	if err != nil {
		return err
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("failed to create socket: %w", err)
	}
	unix.CloseOnExec(fd)
	if err := s.bind(fd, sa); err != nil {
		unix.Close(fd)
		return fmt.Errorf("failed to listen on %s: %w", s.configuredAddr(), err)
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("failed to read bound address: %w", err)
	}

	pipe := make([]int, 2)
	if err := unix.Pipe(pipe); err != nil {
		unix.Close(fd)
		return fmt.Errorf("failed to create wake pipe: %w", err)
	}
	for _, p := range pipe {
		unix.CloseOnExec(p)
		_ = unix.SetNonblock(p, true)
	}

	s.listenFD = fd
	s.wakeR, s.wakeW = pipe[0], pipe[1]
	s.addr = sockaddrString(bound)
	s.closing.Store(false)
	s.logger.Info("listening", "addr", s.addr)
	return nil
}

func (s *Server) bind(fd int, sa unix.Sockaddr) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return err
	}
	if err := unix.Bind(fd, sa); err != nil {
		return err
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		return err
	}
	return unix.SetNonblock(fd, true)
}

// ListenAndServe calls Listen, then Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve runs the readiness loop until ctx is done or Close is called.
// Every socket is closed when it returns.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.listenFD < 0 {
		s.mu.Unlock()
		return errors.New("server is not listening")
	}
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	now := time.Now()
	s.started = &now
	s.mu.Unlock()
	defer s.shutdown()

	stop := context.AfterFunc(ctx, s.wake)
	defer stop()

	buf := make([]byte, s.config.ReadBuffer)
	for {
		if ctx.Err() != nil || s.closing.Load() {
			return nil
		}

		fds := s.pollSet()
		if _, err := unix.Poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("poll failed: %w", err)
		}
		if ctx.Err() != nil || s.closing.Load() {
			return nil
		}

		for _, p := range fds {
			if p.Revents == 0 {
				continue
			}
			switch fd := int(p.Fd); fd {
			case s.wakeR:
				s.drainWake()
			case s.listenFD:
				s.accept()
			default:
				s.handle(ctx, fd, buf)
			}
		}
	}
}

// Close stops a running loop, or releases the sockets of an idle server.
func (s *Server) Close() error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	if running {
		s.closing.Store(true)
		s.wake()
		return nil
	}
	s.shutdown()
	return nil
}

func (s *Server) pollSet() []unix.PollFd {
	s.mu.Lock()
	defer s.mu.Unlock()

	fds := make([]unix.PollFd, 0, 2+len(s.order))
	fds = append(fds,
		unix.PollFd{Fd: int32(s.wakeR), Events: unix.POLLIN},
		unix.PollFd{Fd: int32(s.listenFD), Events: unix.POLLIN},
	)
	for _, fd := range s.order {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	}
	return fds
}

func (s *Server) accept() {
	nfd, sa, err := unix.Accept(s.listenFD)
	if err != nil {
		if !errors.Is(err, unix.EAGAIN) && !errors.Is(err, unix.EINTR) && !errors.Is(err, unix.ECONNABORTED) {
			s.logger.Warn("accept failed", "error", err)
		}
		return
	}
	unix.CloseOnExec(nfd)
	peer := sockaddrString(sa)

	if s.limiter != nil && !s.limiter.Allow() {
		s.throttled.Add(1)
		if err := writeAll(nfd, ErrorResponse(503, "Service Unavailable").Bytes()); err != nil {
			s.logger.Debug("throttle reply failed", "peer", peer, "error", err)
		}
		unix.Close(nfd)
		s.logger.Warn("client throttled", "peer", peer)
		return
	}

	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		s.logger.Warn("failed to register client", "peer", peer, "error", err)
		return
	}

	c := &conn{fd: nfd, id: uuid.New(), peer: peer, accepted: time.Now()}
	s.mu.Lock()
	s.conns[nfd] = c
	s.order = append(s.order, nfd)
	s.mu.Unlock()
	s.accepted.Add(1)
	s.logger.Debug("client accepted", "conn", c.id, "peer", peer)
}

// handle performs the single read for a ready client and answers it.
func (s *Server) handle(ctx context.Context, fd int, buf []byte) {
	s.mu.Lock()
	c, ok := s.conns[fd]
	s.mu.Unlock()
	if !ok {
		return
	}

	n, err := unix.Read(fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return
		}
		s.drop(c, "read failed", err)
		return
	}
	if n == 0 {
		s.drop(c, "client closed", nil)
		return
	}
	s.respond(ctx, c, buf[:n])
}

func (s *Server) respond(ctx context.Context, c *conn, raw []byte) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err := fmt.Errorf("handler panic: %v", recovered)
			if s.logger.Enabled(ctx, slog.LevelDebug) {
				s.logger.Error("handler panic", "conn", c.id, "error", err, "stack", string(debug.Stack()))
			}
			s.drop(c, "handler panicked", err)
		}
	}()

	start := time.Now()
	req, resp := s.router.Serve(ctx, raw)
	if err := writeAll(c.fd, resp.Bytes()); err != nil {
		s.drop(c, "write failed", err)
		return
	}
	s.served.Add(1)

	method, path := "", ""
	if req != nil {
		method, path = req.Method, req.Path
	}
	s.logger.Info("request served",
		"conn", c.id,
		"method", method,
		"path", path,
		"status", resp.Status,
		"duration", time.Since(start),
	)
	s.release(c)
}

// drop closes a client without answering it.
func (s *Server) drop(c *conn, reason string, err error) {
	s.dropped.Add(1)
	if err != nil {
		s.logger.Warn("connection dropped", "conn", c.id, "peer", c.peer, "reason", reason, "error", err)
	} else {
		s.logger.Debug("connection dropped", "conn", c.id, "peer", c.peer, "reason", reason)
	}
	s.release(c)
}

// release deregisters and closes a client. Releasing twice is a no-op.
func (s *Server) release(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[c.fd]; !ok {
		return
	}
	delete(s.conns, c.fd)
	for i, fd := range s.order {
		if fd == c.fd {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	unix.Close(c.fd)
}

func (s *Server) wake() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wakeW >= 0 {
		_, _ = unix.Write(s.wakeW, []byte{1})
	}
}

func (s *Server) drainWake() {
	var b [64]byte
	for {
		if _, err := unix.Read(s.wakeR, b[:]); err != nil {
			return
		}
	}
}

// shutdown closes every socket. Callers must not hold s.mu.
func (s *Server) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, fd := range s.order {
		unix.Close(fd)
	}
	s.conns = make(map[int]*conn)
	s.order = nil
	for _, fd := range []*int{&s.listenFD, &s.wakeR, &s.wakeW} {
		if *fd >= 0 {
			unix.Close(*fd)
			*fd = -1
		}
	}
	if s.running {
		s.logger.Info("server stopped", "addr", s.addr)
	}
	s.running = false
}

// writeAll writes b in blocking mode.
func writeAll(fd int, b []byte) error {
	if err := unix.SetNonblock(fd, false); err != nil {
		return err
	}
	for len(b) > 0 {
		n, err := unix.Write(fd, b)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		b = b[n:]
	}
	return nil
}

func resolveSockaddr(host string, port int) (unix.Sockaddr, int, error) {
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil, 0, fmt.Errorf("failed to resolve host %q: %v", host, err)
		}
		ip = ips[0]
		for _, candidate := range ips {
			if candidate.To4() != nil {
				ip = candidate
				break
			}
		}
	}

	if v4 := ip.To4(); v4 != nil {
		sa := &unix.SockaddrInet4{Port: port}
		copy(sa.Addr[:], v4)
		return sa, unix.AF_INET, nil
	}
	sa := &unix.SockaddrInet6{Port: port}
	copy(sa.Addr[:], ip.To16())
	return sa, unix.AF_INET6, nil
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	default:
		return "unknown"
	}
}
