package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/prysmsh/tpsdk/pkg/protocol"
)

// ErrMissingArg is returned by Args accessors for absent data ids.
var ErrMissingArg = errors.New("missing data value")

type (
	ActionFunc    func(ctx context.Context, mode protocol.InteractionMode, args Args) error
	ListFunc      func(ctx context.Context, instanceID, value string) error
	ConnectorFunc func(ctx context.Context, value int, args Args) error
)

// ListKey identifies a choice field inside an action.
type ListKey struct {
	ActionID string
	ListID   string
}

// Dispatcher is a Router backed by id lookup tables. Nil callbacks ignore
// their messages; ids missing from the tables yield ErrUnknownID. A nil
// Logger is replaced by the session logger when the dispatcher is run.
type Dispatcher struct {
	Actions    map[string]ActionFunc
	Lists      map[ListKey]ListFunc
	Connectors map[string]ConnectorFunc

	Settings            func(ctx context.Context, values protocol.SettingValues) error
	Broadcast           func(ctx context.Context, b protocol.Broadcast) error
	NotificationClicked func(ctx context.Context, n protocol.NotificationClicked) error
	Close               func(ctx context.Context, eof bool)

	Logger *slog.Logger
}

// Route implements Router.
func (d *Dispatcher) Route(ctx context.Context, msg protocol.Message) error {
	switch m := msg.(type) {
	case protocol.Action:
		fn, ok := d.Actions[m.ActionID]
		if !ok {
			return fmt.Errorf("action %q: %w", m.ActionID, ErrUnknownID)
		}
		return fn(ctx, m.Mode, ArgsFrom(m.Data))
	case protocol.ListChange:
		fn, ok := d.Lists[ListKey{ActionID: m.ActionID, ListID: m.ListID}]
		if !ok {
			return fmt.Errorf("list %q in action %q: %w", m.ListID, m.ActionID, ErrUnknownID)
		}
		return fn(ctx, m.InstanceID, m.Value)
	case protocol.ConnectorChange:
		fn, ok := d.Connectors[m.ConnectorID]
		if !ok {
			return fmt.Errorf("connector %q: %w", m.ConnectorID, ErrUnknownID)
		}
		return fn(ctx, m.Value, ArgsFrom(m.Data))
	case protocol.Settings:
		if d.Settings != nil {
			return d.Settings(ctx, m.Values)
		}
	case protocol.Broadcast:
		if d.Broadcast != nil {
			return d.Broadcast(ctx, m)
		}
	case protocol.NotificationClicked:
		if d.NotificationClicked != nil {
			return d.NotificationClicked(ctx, m)
		}
	case protocol.ShortConnectorID:
		// tracked by the session
	default:
		d.logger().Debug("no route for message", "type", msg.MessageType())
	}
	return nil
}

// Closed implements Router.
func (d *Dispatcher) Closed(ctx context.Context, eof bool) {
	if d.Close != nil {
		d.Close(ctx, eof)
	}
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return discard
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// Args are the data values of an action or connector invocation.
type Args map[string]string

// ArgsFrom indexes id/value pairs by id.
func ArgsFrom(data []protocol.IDValue) Args {
	a := make(Args, len(data))
	for _, d := range data {
		a[d.ID] = d.Value
	}
	return a
}

func (a Args) get(id string) (string, error) {
	v, ok := a[id]
	if !ok {
		return "", fmt.Errorf("data %q: %w", id, ErrMissingArg)
	}
	return v, nil
}

// Text returns a text, file, folder or colour value.
func (a Args) Text(id string) (string, error) {
	return a.get(id)
}

// Number returns a number value.
func (a Args) Number(id string) (float64, error) {
	v, err := a.get(id)
	if err != nil {
		return 0, err
	}
	f, err := protocol.ParseNumber(v)
	if err != nil {
		return 0, fmt.Errorf("data %q: %w", id, err)
	}
	return f, nil
}

// Int returns a lower or upper bound value.
func (a Args) Int(id string) (int64, error) {
	v, err := a.get(id)
	if err != nil {
		return 0, err
	}
	i, err := protocol.ParseInt(v)
	if err != nil {
		return 0, fmt.Errorf("data %q: %w", id, err)
	}
	return i, nil
}

// Switch returns an On/Off value.
func (a Args) Switch(id string) (bool, error) {
	v, err := a.get(id)
	if err != nil {
		return false, err
	}
	b, err := protocol.ParseSwitch(v)
	if err != nil {
		return false, fmt.Errorf("data %q: %w", id, err)
	}
	return b, nil
}

// Choice returns a choice value, checking it against allowed when given.
func (a Args) Choice(id string, allowed ...string) (string, error) {
	v, err := a.get(id)
	if err != nil {
		return "", err
	}
	if len(allowed) > 0 && !slices.Contains(allowed, v) {
		return "", fmt.Errorf("data %q: %q is not one of %q", id, v, allowed)
	}
	return v, nil
}
