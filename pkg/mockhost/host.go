// Package mockhost stands in for the Touch Portal host in tests. It accepts
// one plugin connection, answers pairing, records what the plugin sends and
// lets the test inject host messages.
package mockhost

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prysmsh/tpsdk/pkg/protocol"
)

const (
	// VersionString and VersionCode identify the mock in its info reply.
	VersionString = "Mock TouchPortal v4.3.0"
	VersionCode   = 430000
	// PagePath is reported as the main device's current page.
	PagePath = "mock-page.tml"
)

var (
	// ErrNotPaired is returned by injections before the plugin paired.
	ErrNotPaired = errors.New("plugin not paired")
	// ErrSessionHung means the plugin did not close in time after closePlugin.
	ErrSessionHung = errors.New("session did not close in time")
)

// Option configures a Host.
type Option func(*Host)

// WithLogger logs traffic at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithSettings sets the settings reported in the info reply.
func WithSettings(v protocol.SettingValues) Option {
	return func(h *Host) { h.settings = v }
}

// WithStore persists settingUpdate commands and replays them on pairing.
func WithStore(s *Store) Option {
	return func(h *Host) { h.store = s }
}

// WithMonitor mirrors every frame to a traffic monitor.
func WithMonitor(m *Monitor) Option {
	return func(h *Host) { h.monitor = m }
}

// WithListenAddr overrides the listen address (default 127.0.0.1:0).
func WithListenAddr(addr string) Option {
	return func(h *Host) { h.listenAddr = addr }
}

// Host is a scripted host for a single plugin connection.
type Host struct {
	listenAddr string
	logger     *slog.Logger
	settings   protocol.SettingValues
	store      *Store
	monitor    *Monitor

	ln net.Listener

	writeMu sync.Mutex
	conn    net.Conn

	mu       sync.Mutex
	pluginID string
	commands []protocol.Command
	changed  chan struct{}

	paired     chan struct{}
	pairedOnce sync.Once
	done       chan struct{}
}

// New starts listening. Call Serve to accept the plugin.
func New(opts ...Option) (*Host, error) {
	h := &Host{
		listenAddr: "127.0.0.1:0",
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		changed:    make(chan struct{}),
		paired:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	ln, err := net.Listen("tcp", h.listenAddr)
	if err != nil {
		return nil, fmt.Errorf("mock host listen: %w", err)
	}
	h.ln = ln
	return h, nil
}

// Addr is the address plugins should dial.
func (h *Host) Addr() string { return h.ln.Addr().String() }

// Paired is closed once the plugin sent pair and got its info.
func (h *Host) Paired() <-chan struct{} { return h.paired }

// Done is closed when Serve returns.
func (h *Host) Done() <-chan struct{} { return h.done }

// PluginID is the id the plugin paired with.
func (h *Host) PluginID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pluginID
}

// Serve accepts one plugin, pairs it and records its commands until the
// plugin disconnects (nil) or ctx ends.
func (h *Host) Serve(ctx context.Context) error {
	defer close(h.done)
	defer h.ln.Close()

	stop := context.AfterFunc(ctx, func() { h.ln.Close() })
	conn, err := h.ln.Accept()
	stop()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("mock host accept: %w", err)
	}
	defer conn.Close()
	stop = context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	h.writeMu.Lock()
	h.conn = conn
	h.writeMu.Unlock()

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	first := true
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		h.mirror(DirectionFromPlugin, line)
		cmd, err := protocol.DecodeCommand(line)
		if err != nil {
			return fmt.Errorf("mock host: %w", err)
		}
		if first {
			first = false
			pair, ok := cmd.(protocol.Pair)
			if !ok {
				return fmt.Errorf("mock host: expected pair, got %s", cmd.CommandType())
			}
			if err := h.pair(pair); err != nil {
				return err
			}
		}
		h.record(cmd)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := sc.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("mock host read: %w", err)
	}
	return nil
}

func (h *Host) pair(p protocol.Pair) error {
	h.mu.Lock()
	h.pluginID = p.ID
	h.mu.Unlock()

	settings := protocol.SettingValues{}
	for k, v := range h.settings {
		settings[k] = v
	}
	if h.store != nil {
		stored, err := h.store.Settings(p.ID)
		if err != nil {
			return fmt.Errorf("mock host: load settings: %w", err)
		}
		for k, v := range stored {
			settings[k] = v
		}
	}

	info := protocol.Info{
		SDKVersion:                10,
		TPVersionString:           VersionString,
		TPVersionCode:             VersionCode,
		PluginVersion:             1,
		Settings:                  settings,
		CurrentPagePathMainDevice: PagePath,
	}
	if err := h.write(info); err != nil {
		return err
	}
	h.logger.Debug("paired", "plugin", p.ID)
	h.pairedOnce.Do(func() { close(h.paired) })
	return nil
}

func (h *Host) record(c protocol.Command) {
	if u, ok := c.(protocol.SettingUpdate); ok && h.store != nil {
		if err := h.store.Put(h.PluginID(), u.Name, u.Value); err != nil {
			h.logger.Warn("persist setting", "name", u.Name, "error", err)
		}
	}
	h.mu.Lock()
	h.commands = append(h.commands, c)
	close(h.changed)
	h.changed = make(chan struct{})
	h.mu.Unlock()
	h.logger.Debug("recorded", "type", c.CommandType())
}

func (h *Host) mirror(dir Direction, payload []byte) {
	if h.monitor != nil {
		h.monitor.Record(dir, payload)
	}
}

func (h *Host) write(m protocol.Message) error {
	b, err := protocol.EncodeMessage(m)
	if err != nil {
		return err
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if h.conn == nil {
		return ErrNotPaired
	}
	line := make([]byte, 0, len(b)+1)
	line = append(append(line, b...), '\n')
	if _, err := h.conn.Write(line); err != nil {
		return fmt.Errorf("mock host write %s: %w", m.MessageType(), err)
	}
	h.mirror(DirectionToPlugin, b)
	return nil
}

// Send injects an arbitrary host message.
func (h *Host) Send(m protocol.Message) error {
	select {
	case <-h.paired:
	default:
		return ErrNotPaired
	}
	return h.write(m)
}

// Action presses a button bound to actionID.
func (h *Host) Action(actionID string, data ...protocol.IDValue) error {
	return h.Send(h.action(protocol.Execute, actionID, data))
}

// HoldDown presses and holds a button bound to actionID.
func (h *Host) HoldDown(actionID string, data ...protocol.IDValue) error {
	return h.Send(h.action(protocol.HoldDown, actionID, data))
}

// HoldUp releases a held button.
func (h *Host) HoldUp(actionID string, data ...protocol.IDValue) error {
	return h.Send(h.action(protocol.HoldUp, actionID, data))
}

func (h *Host) action(mode protocol.InteractionMode, id string, data []protocol.IDValue) protocol.Action {
	if data == nil {
		data = []protocol.IDValue{}
	}
	return protocol.Action{Mode: mode, PluginID: h.PluginID(), ActionID: id, Data: data}
}

// ConnectorChange moves a slider bound to connectorID.
func (h *Host) ConnectorChange(connectorID string, value int, data ...protocol.IDValue) error {
	if data == nil {
		data = []protocol.IDValue{}
	}
	return h.Send(protocol.ConnectorChange{
		PluginID:    h.PluginID(),
		ConnectorID: connectorID,
		Value:       value,
		Data:        data,
	})
}

// ListChange picks value in a choice field of a fresh action instance and
// returns that instance's id.
func (h *Host) ListChange(actionID, listID, value string) (string, error) {
	instance := uuid.NewString()
	err := h.Send(protocol.ListChange{
		PluginID:   h.PluginID(),
		ActionID:   actionID,
		ListID:     listID,
		InstanceID: instance,
		Value:      value,
	})
	return instance, err
}

// Settings reports settings changed by the user.
func (h *Host) Settings(values protocol.SettingValues) error {
	return h.Send(protocol.Settings{Values: values})
}

// Broadcast sends a pageChange broadcast.
func (h *Host) Broadcast(pageName, previousPageName string) error {
	return h.Send(protocol.Broadcast{
		Event:            "pageChange",
		PageName:         pageName,
		PreviousPageName: previousPageName,
		DeviceName:       "mock-device",
	})
}

// NotificationClicked reports a click on a notification option.
func (h *Host) NotificationClicked(notificationID, optionID string) error {
	return h.Send(protocol.NotificationClicked{NotificationID: notificationID, OptionID: optionID})
}

// AssignShortID announces a short id for a long connector id and returns it.
func (h *Host) AssignShortID(longConnectorID string) (string, error) {
	short := uuid.NewString()[:8]
	err := h.Send(protocol.ShortConnectorID{
		PluginID:    h.PluginID(),
		ShortID:     short,
		ConnectorID: longConnectorID,
	})
	return short, err
}

// Close sends closePlugin.
func (h *Host) Close() error {
	return h.Send(protocol.ClosePlugin{PluginID: h.PluginID()})
}

// Commands returns everything the plugin sent so far, pair included.
func (h *Host) Commands() []protocol.Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.commands)
}

// StateUpdates returns the values sent for state id, in order.
func (h *Host) StateUpdates(id string) []string {
	var out []string
	for _, c := range h.Commands() {
		if u, ok := c.(protocol.StateUpdate); ok && u.ID == id {
			out = append(out, u.Value)
		}
	}
	return out
}

// WaitFor blocks until pred holds for the recorded commands.
func (h *Host) WaitFor(ctx context.Context, pred func([]protocol.Command) bool) error {
	for {
		h.mu.Lock()
		ok := pred(slices.Clone(h.commands))
		ch := h.changed
		h.mu.Unlock()
		if ok {
			return nil
		}
		select {
		case <-ch:
		case <-h.done:
			h.mu.Lock()
			ok := pred(slices.Clone(h.commands))
			h.mu.Unlock()
			if ok {
				return nil
			}
			return errors.New("mock host stopped before condition held")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// AwaitClosed waits up to d for done to close.
func AwaitClosed(ctx context.Context, done <-chan struct{}, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w (waited %s)", ErrSessionHung, d)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish sends closePlugin and waits up to d for the plugin side to report
// done.
func (h *Host) Finish(ctx context.Context, done <-chan struct{}, d time.Duration) error {
	if err := h.Close(); err != nil {
		return err
	}
	return AwaitClosed(ctx, done, d)
}
