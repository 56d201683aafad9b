// Package monitor tails the traffic a mock host exposes on its websocket
// monitor and renders it for the terminal.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prysmsh/tpsdk/pkg/mockhost"
)

// FrameFunc receives each frame in arrival order.
type FrameFunc func(mockhost.Frame)

// Client is a websocket client for a mock host monitor.
type Client struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	only   mockhost.Direction

	mu   sync.Mutex
	conn *websocket.Conn
}

// Option configures a Client.
type Option func(*Client)

// WithDirection keeps only frames travelling in d.
func WithDirection(d mockhost.Direction) Option {
	return func(c *Client) { c.only = d }
}

// WithHeader adds headers to the websocket handshake.
func WithHeader(h http.Header) Option {
	return func(c *Client) { c.header = h.Clone() }
}

// WithHandshakeTimeout bounds the websocket handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) { c.dialer.HandshakeTimeout = d }
}

// NewClient creates a client for addr, either host:port or a ws:// URL.
func NewClient(addr string, opts ...Option) *Client {
	c := &Client{
		url: URL(addr),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL normalizes a monitor address to a websocket URL.
func URL(addr string) string {
	switch {
	case strings.HasPrefix(addr, "ws://"), strings.HasPrefix(addr, "wss://"):
		return addr
	case strings.HasPrefix(addr, "http://"):
		return "ws://" + strings.TrimPrefix(addr, "http://")
	case strings.HasPrefix(addr, "https://"):
		return "wss://" + strings.TrimPrefix(addr, "https://")
	}
	return "ws://" + addr + "/"
}

// Run connects and calls fn for every frame until the monitor closes the
// connection (nil), ctx ends (ctx.Err()) or reading fails.
func (c *Client) Run(ctx context.Context, fn FrameFunc) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return fmt.Errorf("connect to monitor %s: %w", c.url, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		for {
			var f mockhost.Frame
			if err := conn.ReadJSON(&f); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					errCh <- nil
					return
				}
				errCh <- fmt.Errorf("read monitor frame: %w", err)
				return
			}
			if c.only != "" && f.Direction != c.only {
				continue
			}
			fn(f)
		}
	}()

	defer c.Close()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseAbnormalClosure {
			// The mock host exited without a close frame.
			return nil
		}
		return err
	}
}

// Close terminates the websocket connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.conn.Close()
		c.conn = nil
	}
}
