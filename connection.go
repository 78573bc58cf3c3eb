package wamd

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/wamd/transport"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ConnState represents a session's connection state.
type ConnState string

const (
	StateDisconnected ConnState = "DISCONNECTED"
	StateConnecting   ConnState = "CONNECTING"
	StateConnected    ConnState = "CONNECTED"
	StateLoggedOut    ConnState = "LOGGED_OUT"
)

// validConnTransitions defines allowed connection state transitions.
// LoggedOut is left only by an explicit new login.
var validConnTransitions = map[ConnState][]ConnState{
	StateDisconnected: {StateConnecting},
	StateConnecting:   {StateConnected, StateDisconnected},
	StateConnected:    {StateDisconnected, StateLoggedOut},
	StateLoggedOut:    {StateConnecting},
}

const (
	reconnectMinInterval     = time.Second
	reconnectMaxInterval     = time.Minute
	defaultReconnectAttempts = 10

	// Outbound frame budget, matching what the remote service tolerates
	// before throttling the device.
	sendRateLimit = rate.Limit(20)
	sendRateBurst = 40
)

type pendingReply struct {
	frame transport.Frame
	err   error
}

// connManager owns the transport for one session: dialing, the read loop,
// request/ack correlation, and automatic reconnection with bounded backoff.
// Physical writes are serialized under writeMu while callers block
// independently on their own reply channels.
type connManager struct {
	url         string
	dialer      transport.Dialer
	logger      *zap.Logger
	limiter     *rate.Limiter
	maxAttempts int

	// authenticate runs after every successful dial, including reconnects.
	authenticate func(ctx context.Context) error
	// onFrame receives every unsolicited inbound frame, on the read loop
	// goroutine.
	onFrame func(transport.Frame)
	// onDown fires when the reconnect attempt ceiling is exhausted.
	onDown func(err error)

	mu        sync.Mutex
	state     ConnState
	conn      transport.Conn
	gen       int // connection generation; stale read loops check it and bail
	pending   map[string]chan pendingReply
	retryStop chan struct{}

	writeMu sync.Mutex
}

func newConnManager(url string, dialer transport.Dialer, maxAttempts int, logger *zap.Logger) *connManager {
	if maxAttempts <= 0 {
		maxAttempts = defaultReconnectAttempts
	}
	return &connManager{
		url:         url,
		dialer:      dialer,
		logger:      logger,
		limiter:     rate.NewLimiter(sendRateLimit, sendRateBurst),
		maxAttempts: maxAttempts,
		state:       StateDisconnected,
		pending:     make(map[string]chan pendingReply),
	}
}

// State returns the current connection state.
func (c *connManager) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *connManager) transitionLocked(to ConnState) error {
	allowed := validConnTransitions[c.state]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid connection transition from %s to %s", c.state, to)
	}
	c.logger.Debug("connection state change",
		zap.String("from", string(c.state)),
		zap.String("to", string(to)))
	c.state = to
	return nil
}

// Connect establishes the transport and runs the authenticate hook. A nil
// return means the connection is up and authenticated.
func (c *connManager) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	if err := c.transitionLocked(StateConnecting); err != nil {
		c.mu.Unlock()
		return err
	}
	c.retryStop = make(chan struct{})
	c.mu.Unlock()

	if err := c.dialAndStart(ctx); err != nil {
		c.mu.Lock()
		if c.state == StateConnecting {
			_ = c.transitionLocked(StateDisconnected)
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *connManager) dialAndStart(ctx context.Context) error {
	conn, err := c.dialer(ctx, c.url)
	if err != nil {
		return &TransportError{Op: "dial", Err: err}
	}

	c.mu.Lock()
	c.conn = conn
	c.gen++
	gen := c.gen
	_ = c.transitionLocked(StateConnected)
	c.mu.Unlock()

	go c.readLoop(conn, gen)

	if c.authenticate != nil {
		if err := c.authenticate(ctx); err != nil {
			c.dropConn()
			return err
		}
	}
	return nil
}

// dropConn tears down the current connection without cancelling a reconnect
// loop in flight. Used when an established dial fails the authenticate hook;
// the retry loop keeps counting attempts toward its ceiling.
func (c *connManager) dropConn() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.gen++
	if c.state == StateConnected || c.state == StateConnecting {
		_ = c.transitionLocked(StateDisconnected)
	}
	c.failPendingLocked(ErrNotConnected)
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// Disconnect tears the transport down. Pending calls fail with
// ErrNotConnected rather than hang; no reconnect is attempted.
func (c *connManager) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.gen++
	if c.retryStop != nil {
		close(c.retryStop)
		c.retryStop = nil
	}
	if c.state == StateConnected || c.state == StateConnecting {
		_ = c.transitionLocked(StateDisconnected)
	}
	c.failPendingLocked(ErrNotConnected)
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// request sends one frame and blocks until the matching result or error
// frame arrives, the context is done, or the connection drops. Fails fast
// with ErrNotConnected when the transport is down.
func (c *connManager) request(ctx context.Context, typ string, payload any) (transport.Frame, error) {
	data, err := transport.Marshal(payload)
	if err != nil {
		return transport.Frame{}, err
	}
	id := uuid.NewString()
	ch := make(chan pendingReply, 1)

	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return transport.Frame{}, ErrNotConnected
	}
	conn := c.conn
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		c.dropPending(id)
		return transport.Frame{}, fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	c.writeMu.Lock()
	err = conn.WriteFrame(ctx, transport.Frame{Type: typ, ID: id, Data: data})
	c.writeMu.Unlock()
	if err != nil {
		c.dropPending(id)
		return transport.Frame{}, &TransportError{Op: "send " + typ, Err: err}
	}

	select {
	case r := <-ch:
		if r.err != nil {
			return transport.Frame{}, r.err
		}
		if r.frame.Type == transport.TypeError {
			return transport.Frame{}, callError(r.frame)
		}
		return r.frame, nil
	case <-ctx.Done():
		c.dropPending(id)
		return transport.Frame{}, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

func (c *connManager) dropPending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *connManager) failPendingLocked(err error) {
	for id, ch := range c.pending {
		delete(c.pending, id)
		ch <- pendingReply{err: err}
	}
}

// callError maps an error frame onto the session error taxonomy.
func callError(f transport.Frame) error {
	fe := f.Error
	if fe == nil {
		fe = &transport.FrameError{Code: "unknown"}
	}
	switch fe.Code {
	case transport.CodePermissionDenied:
		return ErrPermissionDenied
	case transport.CodeNotAuthorized:
		return ErrLoggedOut
	default:
		return fmt.Errorf("request failed: %w", fe)
	}
}

func (c *connManager) readLoop(conn transport.Conn, gen int) {
	ctx := context.Background()
	for {
		f, err := conn.ReadFrame(ctx)
		if err != nil {
			c.handleDrop(gen, err)
			return
		}

		if f.Type == transport.TypeLoggedOut {
			c.handleLoggedOut(gen, f)
			return
		}

		if f.ID != "" {
			c.resolve(f)
			continue
		}

		if c.onFrame != nil {
			c.onFrame(f)
		}
	}
}

func (c *connManager) resolve(f transport.Frame) {
	c.mu.Lock()
	ch := c.pending[f.ID]
	delete(c.pending, f.ID)
	c.mu.Unlock()

	if ch == nil {
		c.logger.Debug("reply for unknown request", zap.String("id", f.ID), zap.String("type", f.Type))
		return
	}
	ch <- pendingReply{frame: f}
}

// handleLoggedOut processes the terminal logout frame: the device is
// invalidated server-side, so no reconnection is attempted until the next
// explicit login.
func (c *connManager) handleLoggedOut(gen int, f transport.Frame) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.conn = nil
	if c.retryStop != nil {
		close(c.retryStop)
		c.retryStop = nil
	}
	_ = c.transitionLocked(StateLoggedOut)
	c.failPendingLocked(ErrLoggedOut)
	c.mu.Unlock()

	c.logger.Warn("server logged out this device")
	if conn != nil {
		_ = conn.Close()
	}
	if c.onFrame != nil {
		c.onFrame(f)
	}
}

// handleDrop processes an unexpected transport failure while connected and
// starts the backoff reconnect loop.
func (c *connManager) handleDrop(gen int, err error) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateConnected {
		// Explicit disconnect or an already-superseded connection.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	_ = c.transitionLocked(StateDisconnected)
	c.failPendingLocked(ErrNotConnected)
	stop := c.retryStop
	c.mu.Unlock()

	c.logger.Warn("connection dropped", zap.Error(err))
	go c.retryLoop(stop)
}

// retryLoop redials with exponential backoff up to the attempt ceiling.
// Transient failures stay internal; only ceiling exhaustion surfaces.
func (c *connManager) retryLoop(stop chan struct{}) {
	interval := reconnectMinInterval
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-stop:
			return
		case <-time.After(interval):
		}

		c.mu.Lock()
		if c.state != StateDisconnected {
			c.mu.Unlock()
			return
		}
		if err := c.transitionLocked(StateConnecting); err != nil {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		err := c.dialAndStart(context.Background())
		if err == nil {
			c.logger.Info("reconnected", zap.Int("attempt", attempt))
			return
		}

		c.mu.Lock()
		if c.state == StateConnecting {
			_ = c.transitionLocked(StateDisconnected)
		} else if c.state != StateDisconnected {
			// Logged out underneath the redial; give up silently. A failed
			// authenticate has already parked us in DISCONNECTED and still
			// counts as an attempt.
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		c.logger.Warn("reconnect attempt failed",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", interval),
			zap.Error(err))

		interval *= 2
		if interval > reconnectMaxInterval {
			interval = reconnectMaxInterval
		}
	}

	c.logger.Error("reconnect attempts exhausted", zap.Int("attempts", c.maxAttempts))
	if c.onDown != nil {
		c.onDown(&TransportError{
			Op:  "reconnect",
			Err: fmt.Errorf("attempt ceiling of %d exhausted", c.maxAttempts),
		})
	}
}
