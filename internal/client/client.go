package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/danmuck/nexusctl/internal/logging"
	"github.com/danmuck/nexusctl/internal/protocol/frame"
	"github.com/danmuck/nexusctl/internal/protocol/schema"
	"github.com/danmuck/nexusctl/internal/protocol/wire"
	"github.com/danmuck/nexusctl/internal/registry"
)

var log = logging.New("client")

var (
	ErrConnectivity = errors.New("client: connectivity failure")
	ErrProtocol     = errors.New("client: protocol violation")
	ErrTimeout      = errors.New("client: request timed out")
	ErrClosed       = errors.New("client: closed")
)

// Config controls transport behavior for one client connection.
type Config struct {
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	// CompletionTimeout bounds nested Execute calls issued on a completion
	// keystroke so the shell never blocks long on Tab.
	CompletionTimeout time.Duration
	Limits            frame.Limits
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:    5 * time.Second,
		RequestTimeout:    15 * time.Second,
		CompletionTimeout: 300 * time.Millisecond,
		Limits:            frame.DefaultLimits(),
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.CompletionTimeout <= 0 {
		c.CompletionTimeout = def.CompletionTimeout
	}
	if c.Limits.MaxPayloadBytes == 0 {
		c.Limits = def.Limits
	}
}

// session is one live connection plus its in-flight request table. The read
// loop matches responses to requests by message id, so a request abandoned
// on timeout leaves the stream clean: its late response is consumed and
// dropped instead of desynchronizing the next call.
type session struct {
	conn    net.Conn
	limits  frame.Limits
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]chan frame.Frame
	done    chan struct{}
	closed  bool
}

func newSession(conn net.Conn, limits frame.Limits) *session {
	s := &session{
		conn:    conn,
		limits:  limits,
		pending: make(map[uint64]chan frame.Frame),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *session) readLoop() {
	reader := bufio.NewReader(s.conn)
	for {
		fr, err := frame.ReadFrame(reader, s.limits)
		if err != nil {
			s.fail(err)
			return
		}
		if !fr.IsResponse() {
			continue
		}
		s.mu.Lock()
		ch, ok := s.pending[fr.Header.MessageID]
		if ok {
			delete(s.pending, fr.Header.MessageID)
		}
		s.mu.Unlock()
		if !ok {
			// Response to a request already abandoned on timeout.
			log.Debug().Uint64("message_id", fr.Header.MessageID).Msg("dropping stale response")
			continue
		}
		ch <- fr
	}
}

func (s *session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		log.Debug().Err(err).Msg("connection lost")
	}
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *session) close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}

// call writes one request frame and waits for its response up to timeout.
func (s *session) call(ctx context.Context, raw []byte, id uint64, timeout time.Duration) (frame.Frame, error) {
	ch := make(chan frame.Frame, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return frame.Frame{}, ErrClosed
	}
	s.pending[id] = ch
	s.mu.Unlock()

	abandon := func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}

	s.writeMu.Lock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(timeout))
	_, err := s.conn.Write(raw)
	s.writeMu.Unlock()
	if err != nil {
		abandon()
		return frame.Frame{}, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case fr, ok := <-ch:
		if !ok {
			return frame.Frame{}, fmt.Errorf("%w: connection lost", ErrConnectivity)
		}
		return fr, nil
	case <-s.done:
		abandon()
		return frame.Frame{}, fmt.Errorf("%w: connection lost", ErrConnectivity)
	case <-timer.C:
		abandon()
		return frame.Frame{}, ErrTimeout
	case <-ctx.Done():
		abandon()
		return frame.Frame{}, ctx.Err()
	}
}

// Client issues Execute and ListServices calls against one endpoint.
type Client struct {
	cfg      Config
	endpoint string

	mu     sync.Mutex
	sess   *session
	nextID uint64

	svcMu    sync.Mutex
	services []registry.ServiceDescriptor
	cached   bool
}

// Dial connects to endpoint using the shared syntactic transport rule:
// ':' selects TCP, anything else a unix socket path.
func Dial(endpoint string, cfg Config) (*Client, error) {
	cfg.applyDefaults()
	sess, err := dialSession(endpoint, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, endpoint: endpoint, sess: sess}, nil
}

func dialSession(endpoint string, cfg Config) (*session, error) {
	network, address, err := wire.SplitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	conn, err := dialer.Dial(network, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	log.Debug().Str("endpoint", endpoint).Str("network", network).Msg("connected")
	return newSession(conn, cfg.Limits), nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.close()
}

// Reconnect drops the current connection and dials the endpoint again. The
// metadata cache is per-connection, so it is invalidated here and refetched
// on the next ListServices call.
func (c *Client) Reconnect() error {
	fresh, err := dialSession(c.endpoint, c.cfg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	old := c.sess
	c.sess = fresh
	c.mu.Unlock()
	_ = old.close()

	c.svcMu.Lock()
	c.services = nil
	c.cached = false
	c.svcMu.Unlock()
	return nil
}

func (c *Client) acquire() (*session, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	return c.sess, c.nextID
}

// Execute invokes one remote command. A wire.Result comes back for both
// success and command-level failure; the error return is reserved for
// transport and protocol faults.
func (c *Client) Execute(ctx context.Context, service, command string, args []string) (wire.Result, error) {
	return c.execute(ctx, service, command, args, c.cfg.RequestTimeout)
}

// CompleteExecute is Execute under the bounded completion timeout, used for
// nested calls triggered by a completion keystroke.
func (c *Client) CompleteExecute(service, command string) (wire.Result, error) {
	return c.execute(context.Background(), service, command, nil, c.cfg.CompletionTimeout)
}

func (c *Client) execute(ctx context.Context, service, command string, args []string, timeout time.Duration) (wire.Result, error) {
	sess, id := c.acquire()
	raw, err := wire.EncodeExecuteFrame(id, wire.ExecuteRequest{
		Service: service,
		Command: command,
		Args:    args,
	}, c.cfg.Limits)
	if err != nil {
		return wire.Result{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	fr, err := sess.call(ctx, raw, id, timeout)
	if err != nil {
		return wire.Result{}, err
	}
	res, err := wire.DecodeResultFrame(fr)
	if err != nil {
		return wire.Result{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return res, nil
}

// ListServices returns the remote service descriptors in registration order.
// The snapshot is fetched once per connection and served from cache after
// that.
func (c *Client) ListServices(ctx context.Context) ([]registry.ServiceDescriptor, error) {
	c.svcMu.Lock()
	if c.cached {
		out := c.services
		c.svcMu.Unlock()
		return out, nil
	}
	c.svcMu.Unlock()

	sess, id := c.acquire()
	raw, err := wire.EncodeListServicesFrame(id, c.cfg.Limits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	fr, err := sess.call(ctx, raw, id, c.cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}
	if fr.Header.MessageType != schema.MsgServiceList {
		return nil, fmt.Errorf("%w: unexpected message_type=%d", ErrProtocol, fr.Header.MessageType)
	}
	services, err := wire.DecodeServiceListFrame(fr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	c.svcMu.Lock()
	c.services = services
	c.cached = true
	c.svcMu.Unlock()
	return services, nil
}
