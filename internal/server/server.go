package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/danmuck/nexusctl/internal/logging"
	"github.com/danmuck/nexusctl/internal/observability"
	"github.com/danmuck/nexusctl/internal/protocol/frame"
	"github.com/danmuck/nexusctl/internal/protocol/schema"
	"github.com/danmuck/nexusctl/internal/protocol/wire"
	"github.com/danmuck/nexusctl/internal/registry"
)

var log = logging.New("server")

// Config configures the execution protocol listener.
type Config struct {
	// Endpoint follows the shared syntactic rule: containing ':' means TCP,
	// otherwise a unix socket path.
	Endpoint     string
	Limits       frame.Limits
	WriteTimeout time.Duration
	// MetricsAddr, when set, serves Prometheus metrics over HTTP on that
	// address.
	MetricsAddr string
}

func DefaultConfig() Config {
	return Config{
		Endpoint:     "/tmp/nexus.sock",
		Limits:       frame.DefaultLimits(),
		WriteTimeout: 15 * time.Second,
	}
}

// Server answers Execute and ListServices over a sealed registry. The
// registry never mutates while serving, so the request path takes no registry
// locks; each service handler owns its own synchronization.
type Server struct {
	cfg Config
	reg *registry.Registry

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func New(cfg Config, reg *registry.Registry) *Server {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultConfig().Endpoint
	}
	if cfg.Limits.MaxPayloadBytes == 0 {
		cfg.Limits = frame.DefaultLimits()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}
	return &Server{
		cfg:   cfg,
		reg:   reg,
		conns: make(map[net.Conn]struct{}),
	}
}

// Run seals the registry, binds the configured endpoint, and serves until ctx
// is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.reg.Seal()
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	if s.cfg.MetricsAddr != "" {
		go s.serveMetrics(ctx)
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("listening")
	return s.Serve(ctx, ln)
}

func (s *Server) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{Addr: s.cfg.MetricsAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	log.Info().Str("addr", s.cfg.MetricsAddr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server")
	}
}

// Listen binds the configured endpoint. A stale unix socket file left by an
// earlier process is removed before bind.
func (s *Server) Listen() (net.Listener, error) {
	network, address, err := wire.SplitEndpoint(s.cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	if network == "unix" {
		_ = os.Remove(address)
	}
	return net.Listen(network, address)
}

// Serve runs the accept loop on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	go func() {
		<-ctx.Done()
		s.closeAllConns()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.trackConn(conn)
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) trackConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
	observability.ConnOpened()
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
	observability.ConnClosed()
}

func (s *Server) closeAllConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}

// handleConn reads frames until the peer goes away. Each request runs in its
// own goroutine; responses serialize through the connection writer. In-flight
// requests finish before the handler returns, so every accepted request gets
// exactly one response or a dead connection, never both.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer s.untrackConn(conn)
	remote := conn.RemoteAddr().String()
	log.Debug().Str("remote", remote).Msg("client connected")
	defer log.Debug().Str("remote", remote).Msg("client disconnected")

	w := &connWriter{conn: conn, timeout: s.cfg.WriteTimeout, limits: s.cfg.Limits}
	reader := bufio.NewReader(conn)
	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		fr, err := frame.ReadFrame(reader, s.cfg.Limits)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
				log.Debug().Str("remote", remote).Err(err).Msg("read frame")
			}
			return
		}
		inflight.Add(1)
		go func(fr frame.Frame) {
			defer inflight.Done()
			s.handleFrame(ctx, w, fr)
		}(fr)
	}
}

func (s *Server) handleFrame(ctx context.Context, w *connWriter, fr frame.Frame) {
	switch fr.Header.MessageType {
	case schema.MsgExecute:
		s.handleExecute(ctx, w, fr)
	case schema.MsgListServices:
		s.handleListServices(w, fr)
	default:
		log.Debug().Uint16("message_type", fr.Header.MessageType).Msg("unsupported message")
		w.writeResult(fr.Header.MessageID, wire.Result{
			OK:      false,
			Message: "protocol: unsupported message type",
		})
	}
}

// handleExecute delegates to Registry.Dispatch. Success payloads pass through
// unmodified; their exact byte content matters because clients comma-split
// them for completion.
func (s *Server) handleExecute(ctx context.Context, w *connWriter, fr frame.Frame) {
	req, err := wire.DecodeExecuteFrame(fr)
	if err != nil {
		log.Debug().Err(err).Msg("malformed execute")
		w.writeResult(fr.Header.MessageID, wire.Result{
			OK:      false,
			Message: "protocol: malformed execute request",
		})
		return
	}

	start := time.Now()
	out, err := s.reg.Dispatch(ctx, req.Service, req.Command, req.Args)
	if err != nil {
		observability.RecordExecute(req.Service, req.Command, schema.StatusError, time.Since(start))
		w.writeResult(fr.Header.MessageID, wire.Result{OK: false, Message: err.Error()})
		return
	}
	observability.RecordExecute(req.Service, req.Command, schema.StatusOK, time.Since(start))
	w.writeResult(fr.Header.MessageID, wire.Result{OK: true, Message: out})
}

func (s *Server) handleListServices(w *connWriter, fr frame.Frame) {
	observability.RecordListServices()
	raw, err := wire.EncodeServiceListFrame(fr.Header.MessageID, s.reg.ListAll(), s.cfg.Limits)
	if err != nil {
		log.Error().Err(err).Msg("encode service list")
		w.writeResult(fr.Header.MessageID, wire.Result{
			OK:      false,
			Message: "protocol: service list encoding failed",
		})
		return
	}
	w.writeRaw(raw)
}

// connWriter serializes response writes from concurrent request goroutines.
type connWriter struct {
	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
	limits  frame.Limits
}

func (w *connWriter) writeResult(messageID uint64, res wire.Result) {
	raw, err := wire.EncodeResultFrame(messageID, res, w.limits)
	if err != nil {
		log.Error().Err(err).Msg("encode result")
		return
	}
	w.writeRaw(raw)
}

func (w *connWriter) writeRaw(raw []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	if _, err := w.conn.Write(raw); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}
