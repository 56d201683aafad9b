package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prysmsh/tpsdk/pkg/protocol"
)

func TestArgs(t *testing.T) {
	a := ArgsFrom([]protocol.IDValue{
		{ID: "name", Value: "kitchen"},
		{ID: "level", Value: "12.5"},
		{ID: "count", Value: "3.0"},
		{ID: "mute", Value: "On"},
		{ID: "mode", Value: "fast"},
	})

	if v, err := a.Text("name"); err != nil || v != "kitchen" {
		t.Errorf("Text = %q, %v", v, err)
	}
	if v, err := a.Number("level"); err != nil || v != 12.5 {
		t.Errorf("Number = %v, %v", v, err)
	}
	if v, err := a.Int("count"); err != nil || v != 3 {
		t.Errorf("Int = %v, %v", v, err)
	}
	if _, err := a.Int("level"); err == nil {
		t.Error("Int(12.5) err = nil")
	}
	if v, err := a.Switch("mute"); err != nil || !v {
		t.Errorf("Switch = %v, %v", v, err)
	}
	if _, err := a.Switch("name"); err == nil {
		t.Error("Switch(kitchen) err = nil")
	}
	if v, err := a.Choice("mode", "slow", "fast"); err != nil || v != "fast" {
		t.Errorf("Choice = %q, %v", v, err)
	}
	if _, err := a.Choice("mode", "slow"); err == nil {
		t.Error("Choice outside allowed err = nil")
	}
	if _, err := a.Text("missing"); !errors.Is(err, ErrMissingArg) {
		t.Errorf("Text(missing) err = %v, want ErrMissingArg", err)
	}
	if _, err := a.Number("name"); err == nil {
		t.Error("Number(kitchen) err = nil")
	}
}

func TestDispatcherRoute(t *testing.T) {
	var got []string
	d := &Dispatcher{
		Actions: map[string]ActionFunc{
			"a": func(_ context.Context, mode protocol.InteractionMode, args Args) error {
				got = append(got, "action:"+mode.String()+":"+args["x"])
				return nil
			},
		},
		Lists: map[ListKey]ListFunc{
			{ActionID: "a", ListID: "l"}: func(_ context.Context, instanceID, value string) error {
				got = append(got, "list:"+instanceID+":"+value)
				return nil
			},
		},
		Connectors: map[string]ConnectorFunc{
			"c": func(_ context.Context, value int, _ Args) error {
				got = append(got, "connector:"+protocol.FormatNumber(float64(value)))
				return nil
			},
		},
	}
	ctx := context.Background()

	msgs := []protocol.Message{
		protocol.Action{Mode: protocol.HoldDown, ActionID: "a", Data: []protocol.IDValue{{ID: "x", Value: "1"}}},
		protocol.ListChange{ActionID: "a", ListID: "l", InstanceID: "i1", Value: "v"},
		protocol.ConnectorChange{ConnectorID: "c", Value: 70},
		protocol.Settings{Values: protocol.SettingValues{"a": "b"}},
		protocol.ShortConnectorID{ShortID: "s", ConnectorID: "pc_x_c"},
	}
	for _, m := range msgs {
		if err := d.Route(ctx, m); err != nil {
			t.Fatalf("Route(%s) err = %v", m.MessageType(), err)
		}
	}
	want := []string{"action:hold-down:1", "list:i1:v", "connector:70"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}

	unknown := []protocol.Message{
		protocol.Action{ActionID: "nope"},
		protocol.ListChange{ActionID: "a", ListID: "other"},
		protocol.ConnectorChange{ConnectorID: "nope"},
	}
	for _, m := range unknown {
		if err := d.Route(ctx, m); !errors.Is(err, ErrUnknownID) {
			t.Errorf("Route(%s) err = %v, want ErrUnknownID", m.MessageType(), err)
		}
	}
}

func TestDispatcherUsesSessionLogger(t *testing.T) {
	debug := &slog.HandlerOptions{Level: slog.LevelDebug}
	var def bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&def, debug)))
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	s := New("p", WithLogger(slog.New(slog.NewTextHandler(&buf, debug))))
	d := &Dispatcher{}
	s.adopt(d)
	if err := d.Route(context.Background(), protocol.Info{}); err != nil {
		t.Fatalf("Route err = %v", err)
	}
	if !strings.Contains(buf.String(), "no route for message") {
		t.Errorf("session log = %q", buf.String())
	}

	if err := (&Dispatcher{}).Route(context.Background(), protocol.Info{}); err != nil {
		t.Fatalf("Route err = %v", err)
	}
	if def.Len() != 0 {
		t.Errorf("default logger written: %q", def.String())
	}
}

func TestPhaseString(t *testing.T) {
	for p, want := range map[Phase]string{
		Disconnected: "disconnected",
		Paired:       "paired",
		Closing:      "closing",
		Closed:       "closed",
	} {
		if got := p.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", p, got, want)
		}
	}
}
