// Package session runs the plugin side of a Touch Portal connection: pairing,
// concurrent dispatch of host messages and the single ordered writer for
// everything the plugin sends back.
package session

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prysmsh/tpsdk/pkg/protocol"
)

var (
	// ErrClosed is returned by every outbound call once the session is Closed.
	ErrClosed = errors.New("session closed")
	// ErrHostDisconnected ends Run when the host drops the connection
	// without sending closePlugin.
	ErrHostDisconnected = errors.New("host disconnected")
	// ErrProtocolViolation is returned when the host breaks message order.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrMalformedFrame is returned when a line is not a valid message.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrUnknownID is returned by routers for ids nothing is registered for.
	ErrUnknownID = errors.New("unknown id")
)

// Phase is the lifecycle position of a session.
type Phase int32

const (
	Disconnected Phase = iota
	Connecting
	Paired
	Running
	Closing
	Closed
)

func (p Phase) String() string {
	switch p {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Paired:
		return "paired"
	case Running:
		return "running"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("Phase(%d)", int32(p))
}

// Router receives decoded host messages. Route is called on its own
// goroutine per message; Closed is called once when the host ends the
// session, with eof set if the connection was lost without closePlugin.
type Router interface {
	Route(ctx context.Context, msg protocol.Message) error
	Closed(ctx context.Context, eof bool)
}

// Session is one connection to the host.
type Session struct {
	pluginID    string
	addr        string
	logger      *slog.Logger
	grace       time.Duration
	queueSize   int
	maxHandlers int
	dialer      Dialer

	phase atomic.Int32

	connMu   sync.Mutex
	conn     net.Conn
	rd       *bufio.Reader
	released bool

	out      chan []byte
	sendMu   sync.RWMutex
	sealed   bool
	sealing  chan struct{}
	sealOnce sync.Once
	flush    chan struct{}

	stopRead chan struct{}
	sem      chan struct{}

	stateMu   sync.Mutex
	lastState map[string]string

	shortMu  sync.RWMutex
	shortIDs map[string]string

	lifeMu     sync.Mutex
	running    bool
	closeOnce  sync.Once
	closeCh    chan struct{}
	finishOnce sync.Once
	done       chan struct{}
}

// New creates a session for pluginID. Nothing is dialled until Connect.
func New(pluginID string, opts ...Option) *Session {
	s := &Session{pluginID: pluginID}
	defaults(s)
	for _, opt := range opts {
		opt(s)
	}
	s.out = make(chan []byte, s.queueSize)
	s.sealing = make(chan struct{})
	s.flush = make(chan struct{})
	s.stopRead = make(chan struct{})
	s.lastState = make(map[string]string)
	s.shortIDs = make(map[string]string)
	s.closeCh = make(chan struct{})
	s.done = make(chan struct{})
	if s.maxHandlers > 0 {
		s.sem = make(chan struct{}, s.maxHandlers)
	}
	s.logger = s.logger.With("plugin", pluginID)
	return s
}

// PluginID returns the id the session pairs with.
func (s *Session) PluginID() string { return s.pluginID }

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase { return Phase(s.phase.Load()) }

func (s *Session) setPhase(p Phase) {
	old := Phase(s.phase.Swap(int32(p)))
	if old != p {
		s.logger.Debug("session phase", "from", old, "to", p)
	}
}

// Done is closed once the session reaches Closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Connect dials the host, sends pair and waits for the info reply.
// Cancelling ctx aborts the handshake. A failed Connect leaves the session
// Closed.
func (s *Session) Connect(ctx context.Context) (protocol.Info, error) {
	if !s.phase.CompareAndSwap(int32(Disconnected), int32(Connecting)) {
		return protocol.Info{}, fmt.Errorf("connect: session is %s", s.Phase())
	}
	s.logger.Debug("connecting", "addr", s.addr)

	conn, err := s.dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		s.finish()
		return protocol.Info{}, fmt.Errorf("connect %s: %w", s.addr, err)
	}
	if !s.attach(conn) {
		_ = conn.Close()
		return protocol.Info{}, fmt.Errorf("connect: %w", ErrClosed)
	}

	info, err := s.handshake(ctx)
	if err != nil {
		if s.detached() {
			return protocol.Info{}, fmt.Errorf("connect: %w", ErrClosed)
		}
		s.finish()
		return protocol.Info{}, err
	}
	if !s.phase.CompareAndSwap(int32(Connecting), int32(Paired)) {
		// Close won the race; finish already released the connection.
		return protocol.Info{}, fmt.Errorf("connect: %w", ErrClosed)
	}
	s.logger.Debug("session phase", "from", Connecting, "to", Paired)
	s.logger.Info("paired", "host", info.TPVersionString, "sdk", info.SDKVersion)
	return info, nil
}

// attach installs conn unless the session was closed while dialling.
func (s *Session) attach(conn net.Conn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.released {
		return false
	}
	s.conn = conn
	s.rd = bufio.NewReader(conn)
	return true
}

func (s *Session) detached() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.released
}

func (s *Session) handshake(ctx context.Context) (protocol.Info, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetDeadline(time.Now())
	})
	info, err := s.pair()
	if !stop() {
		return protocol.Info{}, fmt.Errorf("pair: %w", ctx.Err())
	}
	return info, err
}

func (s *Session) pair() (protocol.Info, error) {
	b, err := protocol.Encode(protocol.Pair{ID: s.pluginID})
	if err != nil {
		return protocol.Info{}, err
	}
	if _, err := s.conn.Write(append(b, '\n')); err != nil {
		return protocol.Info{}, fmt.Errorf("pair: %w", err)
	}

	line, err := s.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return protocol.Info{}, fmt.Errorf("pair: %w", ErrHostDisconnected)
		}
		return protocol.Info{}, fmt.Errorf("pair: %w", err)
	}
	msg, err := protocol.DecodeMessage(line)
	if err != nil {
		return protocol.Info{}, fmt.Errorf("pair: %w: %v", ErrMalformedFrame, err)
	}
	info, ok := msg.(protocol.Info)
	if !ok {
		return protocol.Info{}, fmt.Errorf("pair: %w: expected info, got %s", ErrProtocolViolation, msg.MessageType())
	}
	return info, nil
}

// readLine returns the next non-blank line without its terminator.
func (s *Session) readLine() ([]byte, error) {
	for {
		line, err := s.rd.ReadBytes('\n')
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 {
			// A final line without newline is still a frame.
			return trimmed, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Run serves the session until the host closes it, Close is called, ctx is
// cancelled or the transport fails. It returns nil for the first two.
func (s *Session) Run(ctx context.Context, router Router) error {
	s.lifeMu.Lock()
	if p := s.Phase(); p != Paired {
		s.lifeMu.Unlock()
		if p == Closed {
			return ErrClosed
		}
		return fmt.Errorf("run: session is %s, want %s", p, Paired)
	}
	s.running = true
	s.setPhase(Running)
	s.lifeMu.Unlock()
	s.adopt(router)

	hctx, cancelHandlers := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelHandlers()

	var g errgroup.Group
	readErr := make(chan error, 1)
	writeErr := make(chan error, 1)
	go func() { readErr <- s.readLoop(hctx, router, &g) }()
	go func() { writeErr <- s.writeLoop() }()

	var (
		result     error
		readerDone bool
		writerDone bool
	)
	select {
	case result = <-readErr:
		readerDone = true
	case err := <-writeErr:
		writerDone = true
		result = fmt.Errorf("write: %w", err)
	case <-s.closeCh:
		s.logger.Debug("close requested")
	case <-ctx.Done():
		result = ctx.Err()
	}

	s.setPhase(Closing)
	close(s.stopRead)
	if !readerDone {
		_ = s.conn.SetReadDeadline(time.Now())
		<-readErr
	}

	s.awaitHandlers(&g)

	s.seal()
	close(s.flush)
	if !writerDone {
		_ = s.conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := <-writeErr; err != nil {
			s.logger.Warn("flush failed", "error", err)
		}
	}

	cancelHandlers()
	s.finish()
	if result != nil {
		s.logger.Info("session ended", "error", result)
	} else {
		s.logger.Info("session ended")
	}
	return result
}

// adopt hands the session logger to a Dispatcher that has none.
func (s *Session) adopt(router Router) {
	if d, ok := router.(*Dispatcher); ok && d.Logger == nil {
		d.Logger = s.logger
	}
}

func (s *Session) awaitHandlers(g *errgroup.Group) {
	waited := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(waited)
	}()
	timer := time.NewTimer(s.grace)
	defer timer.Stop()
	select {
	case <-waited:
	case <-timer.C:
		s.logger.Warn("handlers still running after grace period", "grace", s.grace)
	}
}

func (s *Session) readLoop(ctx context.Context, router Router, g *errgroup.Group) error {
	for {
		line, err := s.readLine()
		if err != nil {
			select {
			case <-s.stopRead:
				return nil
			default:
			}
			if errors.Is(err, io.EOF) {
				s.spawnClosed(ctx, g, router, true)
				return ErrHostDisconnected
			}
			return fmt.Errorf("read: %w", err)
		}

		msg, err := protocol.DecodeMessage(line)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}

		switch m := msg.(type) {
		case protocol.ClosePlugin:
			s.logger.Debug("host sent closePlugin")
			s.spawnClosed(ctx, g, router, false)
			return nil
		case protocol.UnknownMessage:
			s.logger.Warn("dropping unknown message", "type", m.Type)
			continue
		case protocol.Info:
			s.logger.Warn("dropping repeated info", "error", ErrProtocolViolation)
			continue
		case protocol.ShortConnectorID:
			s.shortMu.Lock()
			s.shortIDs[m.ConnectorID] = m.ShortID
			s.shortMu.Unlock()
		}

		s.spawn(ctx, g, msg.MessageType(), messageID(msg), func() error {
			return router.Route(ctx, msg)
		})
	}
}

// spawnClosed delivers the close notification. It never waits for a
// handler slot, so busy or hung handlers cannot hold up shutdown.
func (s *Session) spawnClosed(ctx context.Context, g *errgroup.Group, router Router, eof bool) {
	g.Go(func() error {
		defer s.recoverHandler(protocol.ClosePlugin{}.MessageType(), "")
		router.Closed(ctx, eof)
		return nil
	})
}

// spawn runs fn on the handler group. With a handler cap the goroutine
// waits for a slot, never the reader; a wait still pending when handler
// contexts are cancelled drops the message.
func (s *Session) spawn(ctx context.Context, g *errgroup.Group, typ, id string, fn func() error) {
	g.Go(func() error {
		if s.sem != nil {
			select {
			case s.sem <- struct{}{}:
				defer func() { <-s.sem }()
			case <-ctx.Done():
				s.logger.Debug("dropping message, session closed", "type", typ, "id", id)
				return nil
			}
		}
		defer s.recoverHandler(typ, id)
		if err := fn(); err != nil {
			if errors.Is(err, ErrUnknownID) {
				s.logger.Debug("dropping message", "type", typ, "id", id, "error", err)
			} else {
				s.logger.Error("handler failed", "type", typ, "id", id, "error", err)
			}
		}
		return nil
	})
}

func (s *Session) recoverHandler(typ, id string) {
	if r := recover(); r != nil {
		s.logger.Error("handler panicked", "type", typ, "id", id, "panic", r)
	}
}

func messageID(msg protocol.Message) string {
	switch m := msg.(type) {
	case protocol.Action:
		return m.ActionID
	case protocol.ConnectorChange:
		return m.ConnectorID
	case protocol.ListChange:
		return m.ActionID + "/" + m.ListID
	case protocol.NotificationClicked:
		return m.NotificationID
	case protocol.ShortConnectorID:
		return m.ConnectorID
	case protocol.Broadcast:
		return m.Event
	}
	return ""
}

func (s *Session) writeLoop() error {
	w := bufio.NewWriter(s.conn)
	write := func(b []byte) error {
		if _, err := w.Write(b); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
		return w.Flush()
	}
	for {
		select {
		case b := <-s.out:
			if err := write(b); err != nil {
				return err
			}
		case <-s.flush:
			for {
				select {
				case b := <-s.out:
					if err := write(b); err != nil {
						return err
					}
				default:
					return nil
				}
			}
		}
	}
}

// seal stops accepting outbound messages.
func (s *Session) seal() {
	s.sealOnce.Do(func() {
		close(s.sealing)
		s.sendMu.Lock()
		s.sealed = true
		s.sendMu.Unlock()
	})
}

func (s *Session) finish() {
	s.finishOnce.Do(func() {
		s.seal()
		s.connMu.Lock()
		conn := s.conn
		s.released = true
		s.connMu.Unlock()
		if conn != nil {
			if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("close connection", "error", err)
			}
		}
		s.setPhase(Closed)
		close(s.done)
	})
}

// Close asks a running session to shut down and returns immediately; wait
// on Done for completion. A session that is not running is closed at once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.closeCh) })
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if !s.running {
		s.finish()
	}
	return nil
}

// Send queues c for the writer. Commands are written in the order Send
// returns. It blocks while the queue is full and fails with ErrClosed once
// the session no longer accepts output.
func (s *Session) Send(c protocol.Command) error {
	b, err := protocol.Encode(c)
	if err != nil {
		return err
	}
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.sealed {
		return ErrClosed
	}
	select {
	case s.out <- b:
		s.logger.Debug("queued", "type", c.CommandType())
		return nil
	case <-s.sealing:
		return ErrClosed
	}
}

// UpdateState sets a state, skipping the write if the host already has value.
func (s *Session) UpdateState(id, value string) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if last, ok := s.lastState[id]; ok && last == value {
		return nil
	}
	if err := s.Send(protocol.StateUpdate{ID: id, Value: value}); err != nil {
		return err
	}
	s.lastState[id] = value
	return nil
}

// CreateState declares a state at run time.
func (s *Session) CreateState(c protocol.CreateState) error {
	return s.Send(c)
}

// RemoveState deletes a state created at run time.
func (s *Session) RemoveState(id string) error {
	s.stateMu.Lock()
	delete(s.lastState, id)
	s.stateMu.Unlock()
	return s.Send(protocol.RemoveState{ID: id})
}

// TriggerEvent fires an event with optional local state values.
func (s *Session) TriggerEvent(eventID string, states map[string]string) error {
	return s.Send(protocol.TriggerEvent{EventID: eventID, States: states})
}

// UpdateSetting changes a host-persisted setting.
func (s *Session) UpdateSetting(name, value string) error {
	return s.Send(protocol.SettingUpdate{Name: name, Value: value})
}

// UpdateChoices replaces the choices of a choice field. An empty instanceID
// updates every instance.
func (s *Session) UpdateChoices(id string, choices []string, instanceID string) error {
	if choices == nil {
		choices = []string{}
	}
	return s.Send(protocol.ChoiceUpdate{ID: id, Value: choices, InstanceID: instanceID})
}

// ConnectorID returns the long connector id the host uses for connectorID
// with the given data values.
func (s *Session) ConnectorID(connectorID string, data ...protocol.IDValue) string {
	var b strings.Builder
	b.WriteString("pc_")
	b.WriteString(s.pluginID)
	b.WriteByte('_')
	b.WriteString(connectorID)
	for _, d := range data {
		b.WriteByte('|')
		b.WriteString(d.ID)
		b.WriteByte('=')
		b.WriteString(d.Value)
	}
	return b.String()
}

// UpdateConnector moves a connector to value (0-100), using the host's
// short id when one was announced.
func (s *Session) UpdateConnector(connectorID string, value int, data ...protocol.IDValue) error {
	if value < 0 || value > 100 {
		return fmt.Errorf("connector %q: value %d outside 0-100", connectorID, value)
	}
	long := s.ConnectorID(connectorID, data...)
	s.shortMu.RLock()
	short, ok := s.shortIDs[long]
	s.shortMu.RUnlock()
	if ok {
		return s.Send(protocol.ConnectorUpdate{ShortID: short, Value: value})
	}
	return s.Send(protocol.ConnectorUpdate{ConnectorID: long, Value: value})
}

// Notify shows a notification in the host.
func (s *Session) Notify(n protocol.ShowNotification) error {
	if n.Options == nil {
		n.Options = []protocol.NotificationOption{}
	}
	return s.Send(n)
}
