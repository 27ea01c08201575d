package stream

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quoteflow/internal/market"
	"quoteflow/logger"
)

// FrameKind discriminates the events delivered on a supervisor's frame
// channel.
type FrameKind int

const (
	// FrameOpen is delivered once per established connection, before any
	// message from that connection.
	FrameOpen FrameKind = iota
	// FrameMessage carries one inbound wire frame.
	FrameMessage
	// FrameClosed marks the end of one connection's frames.
	FrameClosed
)

// Frame is one event from the underlying connection. Frames are delivered in
// network-arrival order on a single channel; the drain loop owns processing,
// so per-connection ordering is preserved end to end.
type Frame struct {
	Kind FrameKind
	Data []byte
}

// Config describes one supervised connection.
type Config struct {
	// URL of the websocket endpoint. Empty means disabled: the supervisor
	// never dials and emits no frames.
	URL    string
	Source market.Source

	// AutoReconnect redials with exponential backoff and jitter after a
	// transport failure. It is off by default on purpose: most of the
	// upstream endpoints are public and rate limited, and a reconnect storm
	// is worse than a card that reads closed until the user reselects the
	// symbol.
	AutoReconnect bool

	// DialTimeout bounds connection establishment. Defaults to 10s.
	DialTimeout time.Duration

	// OnStatus is invoked on every status transition. May be nil.
	OnStatus func(market.Status)
}

// Supervisor owns the lifecycle of exactly one real-time connection: dial,
// teardown, status reporting and outbound writes. At most one live connection
// exists at a time. Inbound frames are published on Frames().
type Supervisor struct {
	cfg    Config
	frames chan Frame

	mu   sync.Mutex
	conn *websocket.Conn

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	redial    chan struct{}
	running   bool
	runningMu sync.Mutex

	log *logger.Entry
}

const frameBuffer = 256

// NewSupervisor builds a supervisor for cfg. Call Start to begin dialing.
func NewSupervisor(cfg Config) *Supervisor {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return &Supervisor{
		cfg:    cfg,
		frames: make(chan Frame, frameBuffer),
		redial: make(chan struct{}, 1),
		log: logger.GetLogger().WithComponent("stream").WithFields(logger.Fields{
			"source": string(cfg.Source),
		}),
	}
}

// Frames exposes the inbound event channel. It is closed when the supervisor
// stops for good.
func (s *Supervisor) Frames() <-chan Frame { return s.frames }

// Start begins the connection lifecycle. A supervisor can be started once.
func (s *Supervisor) Start(ctx context.Context) error {
	s.runningMu.Lock()
	if s.running {
		s.runningMu.Unlock()
		return fmt.Errorf("supervisor for %s already running", s.cfg.Source)
	}
	s.running = true
	s.runningMu.Unlock()

	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.cfg.URL == "" {
		// Disabled source: report closed and keep the frame channel open but
		// silent until Close.
		s.setStatus(market.StatusClosed)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			<-s.ctx.Done()
			close(s.frames)
		}()
		return nil
	}

	s.wg.Add(1)
	go s.run()
	return nil
}

// Close tears the connection down and stops the supervisor. Teardown order:
// cancel in-flight work, close the transport, then mark closed.
func (s *Supervisor) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.closeConn()
	s.wg.Wait()
}

// Reconnect requests a teardown and redial of the current connection. It is
// the only path to a reconnect when AutoReconnect is off.
func (s *Supervisor) Reconnect() {
	select {
	case s.redial <- struct{}{}:
	default:
	}
	s.closeConn()
}

// Send writes a raw text payload to the live connection.
func (s *Supervisor) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("%s: no live connection", s.cfg.Source)
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// SendJSON marshals v and writes it to the live connection.
func (s *Supervisor) SendJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("%s: no live connection", s.cfg.Source)
	}
	return s.conn.WriteJSON(v)
}

func (s *Supervisor) setStatus(st market.Status) {
	if s.cfg.OnStatus != nil {
		s.cfg.OnStatus(st)
	}
}

func (s *Supervisor) setConn(c *websocket.Conn) {
	s.mu.Lock()
	s.conn = c
	s.mu.Unlock()
}

func (s *Supervisor) closeConn() {
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.mu.Unlock()
}

// run is the connection lifecycle loop: dial, drain, and either park until
// an explicit Reconnect or back off and redial when AutoReconnect is set.
func (s *Supervisor) run() {
	defer s.wg.Done()
	defer close(s.frames)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if s.ctx.Err() != nil {
			s.setStatus(market.StatusClosed)
			return
		}

		s.setStatus(market.StatusConnecting)
		s.log.WithFields(logger.Fields{"url": s.cfg.URL}).Debug("dialing websocket")

		dctx, dcancel := context.WithTimeout(s.ctx, s.cfg.DialTimeout)
		conn, _, err := websocket.DefaultDialer.DialContext(dctx, s.cfg.URL, nil)
		dcancel()
		if err != nil {
			s.setStatus(market.StatusClosed)
			if s.ctx.Err() != nil {
				return
			}
			s.log.WithError(err).Warn("websocket dial failed")
			if !s.waitForRedial(&backoff, maxBackoff) {
				return
			}
			continue
		}

		backoff = time.Second
		s.setConn(conn)
		s.setStatus(market.StatusConnected)
		s.log.Info("websocket connected")

		if !s.deliver(Frame{Kind: FrameOpen}) {
			s.closeConn()
			s.setStatus(market.StatusClosed)
			return
		}

		readErr := s.readLoop(conn)
		s.closeConn()
		s.setStatus(market.StatusClosed)

		if !s.deliver(Frame{Kind: FrameClosed}) || s.ctx.Err() != nil {
			return
		}
		s.log.WithError(readErr).Warn("websocket connection ended")

		if !s.waitForRedial(&backoff, maxBackoff) {
			return
		}
	}
}

// readLoop pumps inbound frames until the connection dies. Frames are
// forwarded in arrival order; a full frame channel blocks the reader rather
// than dropping, so the drain side never observes a gap.
func (s *Supervisor) readLoop(conn *websocket.Conn) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if !s.deliver(Frame{Kind: FrameMessage, Data: msg}) {
			return s.ctx.Err()
		}
	}
}

func (s *Supervisor) deliver(f Frame) bool {
	select {
	case s.frames <- f:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// waitForRedial gates the next dial attempt. With AutoReconnect the wait is
// an exponential backoff with jitter; without it the loop parks until an
// explicit Reconnect. Returns false when the supervisor should stop.
func (s *Supervisor) waitForRedial(backoff *time.Duration, maxBackoff time.Duration) bool {
	if s.cfg.AutoReconnect {
		jitter := time.Duration(rand.Int63n(int64(*backoff)/2 + 1))
		s.setStatus(market.StatusReconnecting)
		select {
		case <-time.After(*backoff + jitter):
		case <-s.ctx.Done():
			return false
		}
		*backoff *= 2
		if *backoff > maxBackoff {
			*backoff = maxBackoff
		}
		return true
	}

	select {
	case <-s.redial:
		s.setStatus(market.StatusReconnecting)
		return true
	case <-s.ctx.Done():
		return false
	}
}
