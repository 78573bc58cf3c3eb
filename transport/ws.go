package transport

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Maximum inbound frame size; attachments are fetched out of band, so frames
// stay small apart from inline thumbnails.
const maxFrameSize = 1 << 22 // 4MiB

// A Conn is one established connection to the remote service. Implementations
// must allow one concurrent reader and one concurrent writer; serialization of
// multiple writers is the caller's responsibility.
type Conn interface {
	// ReadFrame blocks until the next frame arrives or the connection fails.
	ReadFrame(ctx context.Context) (Frame, error)
	// WriteFrame submits one frame. A nil return acknowledges queuing on the
	// transport, not delivery.
	WriteFrame(ctx context.Context, f Frame) error
	// Close tears the connection down; pending reads and writes fail.
	Close() error
}

// A Dialer establishes a Conn to the given URL. Tests substitute in-memory
// implementations.
type Dialer func(ctx context.Context, url string) (Conn, error)

// DialWebsocket is the production Dialer, speaking JSON frames over a
// websocket.
func DialWebsocket(ctx context.Context, url string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c.SetReadLimit(maxFrameSize)
	return &wsConn{conn: c}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadFrame(ctx context.Context) (Frame, error) {
	var f Frame
	if err := wsjson.Read(ctx, c.conn, &f); err != nil {
		return Frame{}, fmt.Errorf("read frame: %w", err)
	}
	return f, nil
}

func (c *wsConn) WriteFrame(ctx context.Context, f Frame) error {
	if err := wsjson.Write(ctx, c.conn, f); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
