package mockhost_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prysmsh/tpsdk/pkg/mockhost"
	"github.com/prysmsh/tpsdk/pkg/protocol"
	"github.com/prysmsh/tpsdk/pkg/session"
)

const pluginID = "com.example.mock"

func serve(t *testing.T, opts ...mockhost.Option) (*mockhost.Host, <-chan error) {
	t.Helper()
	h, err := mockhost.New(opts...)
	if err != nil {
		t.Fatalf("New err = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h, errCh
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func pairSession(t *testing.T, h *mockhost.Host) (*session.Session, protocol.Info) {
	t.Helper()
	s := session.New(pluginID, session.WithAddr(h.Addr()))
	info, err := s.Connect(testCtx(t))
	if err != nil {
		t.Fatalf("Connect err = %v", err)
	}
	return s, info
}

func TestInfoReply(t *testing.T) {
	h, _ := serve(t, mockhost.WithSettings(protocol.SettingValues{"Host": "localhost"}))
	s, info := pairSession(t, h)
	defer s.Close()

	if info.TPVersionCode != mockhost.VersionCode {
		t.Errorf("TPVersionCode = %d, want %d", info.TPVersionCode, mockhost.VersionCode)
	}
	if info.CurrentPagePathMainDevice != mockhost.PagePath {
		t.Errorf("CurrentPagePathMainDevice = %q", info.CurrentPagePathMainDevice)
	}
	if info.Settings["Host"] != "localhost" {
		t.Errorf("Settings = %v", info.Settings)
	}
	select {
	case <-h.Paired():
	case <-time.After(time.Second):
		t.Fatal("Paired not closed")
	}
}

func TestInjectBeforePairing(t *testing.T) {
	h, _ := serve(t)
	if err := h.Action("a"); err != mockhost.ErrNotPaired {
		t.Errorf("Action err = %v, want ErrNotPaired", err)
	}
}

func TestServeRejectsMissingPair(t *testing.T) {
	h, errCh := serve(t)
	conn, err := net.Dial("tcp", h.Addr())
	if err != nil {
		t.Fatalf("Dial err = %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(`{"type":"stateUpdate","id":"a","value":"b"}` + "\n")); err != nil {
		t.Fatalf("Write err = %v", err)
	}
	select {
	case err := <-errCh:
		if err == nil || !strings.Contains(err.Error(), "expected pair") {
			t.Errorf("Serve err = %v, want expected pair", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestStoreReplaysSettings(t *testing.T) {
	store, err := mockhost.OpenStore(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("OpenStore err = %v", err)
	}
	defer store.Close()

	h, _ := serve(t, mockhost.WithStore(store), mockhost.WithSettings(protocol.SettingValues{"Token": "initial"}))
	s, info := pairSession(t, h)
	if info.Settings["Token"] != "initial" {
		t.Fatalf("first run Token = %q", info.Settings["Token"])
	}
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background(), &session.Dispatcher{}) }()
	if err := s.UpdateSetting("Token", "rotated"); err != nil {
		t.Fatalf("UpdateSetting err = %v", err)
	}
	isSetting := func(cmds []protocol.Command) bool {
		for _, c := range cmds {
			if _, ok := c.(protocol.SettingUpdate); ok {
				return true
			}
		}
		return false
	}
	if err := h.WaitFor(testCtx(t), isSetting); err != nil {
		t.Fatalf("WaitFor err = %v", err)
	}
	if err := h.Finish(testCtx(t), s.Done(), 2*time.Second); err != nil {
		t.Fatalf("Finish err = %v", err)
	}
	<-errCh

	h2, _ := serve(t, mockhost.WithStore(store), mockhost.WithSettings(protocol.SettingValues{"Token": "initial"}))
	s2, info2 := pairSession(t, h2)
	defer s2.Close()
	if info2.Settings["Token"] != "rotated" {
		t.Errorf("second run Token = %q, want rotated", info2.Settings["Token"])
	}

	if err := store.Reset(pluginID); err != nil {
		t.Fatalf("Reset err = %v", err)
	}
	got, err := store.Settings(pluginID)
	if err != nil {
		t.Fatalf("Settings err = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Settings after Reset = %v", got)
	}
	if err := store.Reset("never-seen"); err != nil {
		t.Errorf("Reset unknown plugin err = %v", err)
	}
}

func TestMonitorStreamsFrames(t *testing.T) {
	m := mockhost.NewMonitor()
	srv := httptest.NewServer(m)
	defer srv.Close()

	h, _ := serve(t, mockhost.WithMonitor(m))
	s, _ := pairSession(t, h)
	defer s.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial err = %v", err)
	}
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var frames []mockhost.Frame
	for range 2 {
		var f mockhost.Frame
		if err := ws.ReadJSON(&f); err != nil {
			t.Fatalf("ReadJSON err = %v", err)
		}
		frames = append(frames, f)
	}
	if frames[0].Direction != mockhost.DirectionFromPlugin || !strings.Contains(string(frames[0].Payload), `"pair"`) {
		t.Errorf("frame 0 = %s %s, want pair from plugin", frames[0].Direction, frames[0].Payload)
	}
	if frames[1].Direction != mockhost.DirectionToPlugin || !strings.Contains(string(frames[1].Payload), `"info"`) {
		t.Errorf("frame 1 = %s %s, want info to plugin", frames[1].Direction, frames[1].Payload)
	}

	if err := h.Broadcast("next.tml", ""); err != nil {
		t.Fatalf("Broadcast err = %v", err)
	}
	var live mockhost.Frame
	if err := ws.ReadJSON(&live); err != nil {
		t.Fatalf("ReadJSON err = %v", err)
	}
	if !strings.Contains(string(live.Payload), "next.tml") {
		t.Errorf("live frame = %s", live.Payload)
	}
}

func TestMonitorQuotesInvalidPayload(t *testing.T) {
	m := mockhost.NewMonitor()
	m.Record(mockhost.DirectionToPlugin, []byte("not json"))
	hist := m.History()
	if len(hist) != 1 {
		t.Fatalf("History len = %d, want 1", len(hist))
	}
	var s string
	if err := json.Unmarshal(hist[0].Payload, &s); err != nil || s != "not json" {
		t.Errorf("payload = %s, err = %v", hist[0].Payload, err)
	}
}

func TestMonitorSubscribe(t *testing.T) {
	m := mockhost.NewMonitor()
	m.Record(mockhost.DirectionFromPlugin, []byte(`{"type":"pair"}`))

	ctx, cancel := context.WithCancel(context.Background())
	ch := m.Subscribe(ctx)
	if f := <-ch; f.Direction != mockhost.DirectionFromPlugin {
		t.Fatalf("backlog frame = %+v", f)
	}
	m.Record(mockhost.DirectionToPlugin, []byte(`{"type":"info"}`))
	select {
	case f := <-ch:
		if f.Direction != mockhost.DirectionToPlugin {
			t.Errorf("live frame = %+v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no live frame")
	}
	cancel()
	for range ch {
	}
}

func TestExpectations(t *testing.T) {
	e := mockhost.NewExpectations()
	e.Expect("onAction", "greet", 1)
	e.Expect("onAction", "greet", 2)
	e.Expect("onClose", false)

	if err := e.Check("onAction", "greet", 1); err != nil {
		t.Errorf("Check err = %v", err)
	}
	if err := e.Check("onAction", "greet", 3); err == nil {
		t.Error("mismatched Check err = nil")
	}
	if err := e.Check("onList"); err == nil {
		t.Error("unexpected Check err = nil")
	}
	err := e.Verify()
	if err == nil {
		t.Fatal("Verify err = nil")
	}
	for _, want := range []string{"onAction arguments mismatch", "unexpected call onList", "of onClose never happened"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Verify err missing %q:\n%v", want, err)
		}
	}

	ok := mockhost.NewExpectations()
	ok.Expect("x", "y")
	_ = ok.Check("x", "y")
	if err := ok.Verify(); err != nil {
		t.Errorf("Verify err = %v", err)
	}
}

func TestPlay(t *testing.T) {
	h, _ := serve(t)
	s, _ := pairSession(t, h)
	exp := mockhost.NewExpectations()
	exp.Expect("greet", "world")
	exp.Expect("closed", false)

	d := &session.Dispatcher{
		Actions: map[string]session.ActionFunc{
			"greet": func(_ context.Context, _ protocol.InteractionMode, args session.Args) error {
				name, err := args.Text("name")
				if err != nil {
					return err
				}
				_ = exp.Check("greet", name)
				return s.UpdateState("greeting", "hello "+name)
			},
		},
		Close: func(_ context.Context, eof bool) { _ = exp.Check("closed", eof) },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background(), d) }()

	err := h.Play(testCtx(t), mockhost.Scenario{
		Name: "greet",
		Messages: []protocol.Message{
			protocol.Action{PluginID: pluginID, ActionID: "greet", Data: []protocol.IDValue{{ID: "name", Value: "world"}}},
		},
		Assert: func(ctx context.Context, h *mockhost.Host) error {
			return h.WaitFor(ctx, func(cmds []protocol.Command) bool {
				for _, c := range cmds {
					if u, ok := c.(protocol.StateUpdate); ok && u.ID == "greeting" {
						return true
					}
				}
				return false
			})
		},
	})
	if err != nil {
		t.Fatalf("Play err = %v", err)
	}
	if err := mockhost.AwaitClosed(testCtx(t), s.Done(), 2*time.Second); err != nil {
		t.Fatalf("AwaitClosed err = %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Run err = %v", err)
	}
	if err := exp.Verify(); err != nil {
		t.Error(err)
	}
	if got := h.StateUpdates("greeting"); len(got) != 1 || got[0] != "hello world" {
		t.Errorf("greeting updates = %v", got)
	}
}
