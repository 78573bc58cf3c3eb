package wamd

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/wamd/transport"
)

const testTimeout = 3 * time.Second

// fakeConn is an in-memory transport.Conn driven by the test's fakeServer.
type fakeConn struct {
	in     chan transport.Frame // server to client
	out    chan transport.Frame // client to server
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan transport.Frame, 64),
		out:    make(chan transport.Frame, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadFrame(ctx context.Context) (transport.Frame, error) {
	select {
	case f := <-c.in:
		return f, nil
	case <-c.closed:
		return transport.Frame{}, errors.New("connection closed")
	case <-ctx.Done():
		return transport.Frame{}, ctx.Err()
	}
}

func (c *fakeConn) WriteFrame(ctx context.Context, f transport.Frame) error {
	select {
	case c.out <- f:
		return nil
	case <-c.closed:
		return errors.New("connection closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// expect reads the next client frame and checks its type. Safe to call from
// server goroutines; failures are reported with t.Errorf.
func (c *fakeConn) expect(t *testing.T, typ string) (transport.Frame, bool) {
	t.Helper()
	select {
	case f := <-c.out:
		if f.Type != typ {
			t.Errorf("client sent %q frame, want %q", f.Type, typ)
			return f, false
		}
		return f, true
	case <-time.After(testTimeout):
		t.Errorf("timed out waiting for %q frame from client", typ)
		return transport.Frame{}, false
	}
}

// reply answers a request frame with a result carrying the given payload.
func (c *fakeConn) reply(t *testing.T, req transport.Frame, payload any) {
	t.Helper()
	data, err := transport.Marshal(payload)
	if err != nil {
		t.Errorf("marshal reply: %v", err)
		return
	}
	c.in <- transport.Frame{Type: transport.TypeResult, ID: req.ID, Data: data}
}

// replyErr answers a request frame with an error of the given code.
func (c *fakeConn) replyErr(req transport.Frame, code string) {
	c.in <- transport.Frame{
		Type:  transport.TypeError,
		ID:    req.ID,
		Error: &transport.FrameError{Code: code},
	}
}

// event pushes an unsolicited server frame.
func (c *fakeConn) event(t *testing.T, typ string, payload any) {
	t.Helper()
	data, err := transport.Marshal(payload)
	if err != nil {
		t.Errorf("marshal event: %v", err)
		return
	}
	c.in <- transport.Frame{Type: typ, Data: data}
}

// fakeServer hands out fakeConns through its Dialer and records every dial.
type fakeServer struct {
	mu      sync.Mutex
	conns   []*fakeConn
	connCh  chan *fakeConn
	dialErr error
}

func newFakeServer() *fakeServer {
	return &fakeServer{connCh: make(chan *fakeConn, 8)}
}

func (s *fakeServer) dial(ctx context.Context, url string) (transport.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dialErr != nil {
		return nil, s.dialErr
	}
	c := newFakeConn()
	s.conns = append(s.conns, c)
	s.connCh <- c
	return c, nil
}

func (s *fakeServer) failDials(err error) {
	s.mu.Lock()
	s.dialErr = err
	s.mu.Unlock()
}

func (s *fakeServer) dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// nextConn blocks until the client dials again.
func (s *fakeServer) nextConn(t *testing.T) (*fakeConn, bool) {
	t.Helper()
	select {
	case c := <-s.connCh:
		return c, true
	case <-time.After(testTimeout):
		t.Errorf("timed out waiting for client to dial")
		return nil, false
	}
}

type capturedEvent struct {
	kind    EventKind
	payload EventPayload
}

// captureEvents returns a handler that copies every event into a channel.
func captureEvents() (HandleEventFunc, chan capturedEvent) {
	ch := make(chan capturedEvent, 128)
	return func(kind EventKind, payload *EventPayload) {
		ch <- capturedEvent{kind: kind, payload: *payload}
	}, ch
}

// waitEvent blocks until an event of the wanted kind arrives, skipping
// others.
func waitEvent(t *testing.T, ch chan capturedEvent, kind EventKind) capturedEvent {
	t.Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case e := <-ch:
			if e.kind == kind {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
			return capturedEvent{}
		}
	}
}
