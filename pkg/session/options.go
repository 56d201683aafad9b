package session

import (
	"context"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/prysmsh/tpsdk/pkg/protocol"
)

const (
	DefaultGracePeriod = 3 * time.Second
	DefaultQueueSize   = 32
)

// Dialer opens the connection to the host. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Option configures a Session.
type Option func(*Session)

// WithAddr overrides the host address (default 127.0.0.1:12136).
func WithAddr(addr string) Option {
	return func(s *Session) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithLogger sets the session logger. Sessions are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGracePeriod bounds how long shutdown waits for running handlers.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.grace = d
		}
	}
}

// WithQueueSize sets the capacity of the outbound queue. Senders block
// while it is full.
func WithQueueSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithMaxHandlers caps concurrently running handlers; 0 means no cap.
// Messages beyond the cap wait for a free slot; reading continues and
// the close notification never waits.
func WithMaxHandlers(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.maxHandlers = n
		}
	}
}

// WithDialer replaces the TCP dialer.
func WithDialer(d Dialer) Option {
	return func(s *Session) {
		if d != nil {
			s.dialer = d
		}
	}
}

func defaults(s *Session) {
	s.addr = protocol.DefaultAddr
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.grace = DefaultGracePeriod
	s.queueSize = DefaultQueueSize
	s.dialer = &net.Dialer{Timeout: 10 * time.Second}
}
