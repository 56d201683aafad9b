package counter_test

import (
	"context"
	"go/scanner"
	"go/token"
	"io"
	"log/slog"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/prysmsh/tpsdk/pkg/codegen"
	"github.com/prysmsh/tpsdk/pkg/mockhost"
	"github.com/prysmsh/tpsdk/pkg/protocol"
	"github.com/prysmsh/tpsdk/pkg/session"
	"github.com/prysmsh/tpsdk/pkg/validate"
	"github.com/prysmsh/tpsdk/plugins/counter"
)

// TestGeneratedSourceIsCurrent fails when counter_gen.go no longer matches
// what tpsdk generate produces for Description; run go generate.
func TestGeneratedSourceIsCurrent(t *testing.T) {
	d, err := counter.Description()
	if err != nil {
		t.Fatalf("Description err = %v", err)
	}
	m, err := validate.Validate(d)
	if err != nil {
		t.Fatalf("Validate err = %v", err)
	}
	want, err := codegen.GenerateGo(m, codegen.Options{Package: "counter"})
	if err != nil {
		t.Fatalf("GenerateGo err = %v", err)
	}
	got, err := os.ReadFile("counter_gen.go")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(tokens(t, want), tokens(t, got)); diff != "" {
		t.Errorf("counter_gen.go is stale (-generated +on disk):\n%s", diff)
	}
}

// tokens lists the tokens of src so layout differences do not count.
func tokens(t *testing.T, src []byte) []string {
	t.Helper()
	fset := token.NewFileSet()
	var s scanner.Scanner
	s.Init(fset.AddFile("src.go", -1, len(src)), src, func(pos token.Position, msg string) {
		t.Errorf("%s: %s", pos, msg)
	}, scanner.ScanComments)
	var out []string
	for {
		_, tok, lit := s.Scan()
		if tok == token.EOF {
			return out
		}
		if lit == "" {
			lit = tok.String()
		}
		out = append(out, lit)
	}
}

func lastState(id, want string) func([]protocol.Command) bool {
	return func(cmds []protocol.Command) bool {
		for _, c := range slices.Backward(cmds) {
			if u, ok := c.(protocol.StateUpdate); ok && u.ID == id {
				return u.Value == want
			}
		}
		return false
	}
}

func sent[T protocol.Command](cmds []protocol.Command) bool {
	for _, c := range cmds {
		if _, ok := c.(T); ok {
			return true
		}
	}
	return false
}

func TestCounterAgainstMockHost(t *testing.T) {
	h, err := mockhost.New(mockhost.WithSettings(protocol.SettingValues{
		counter.SettingStart:    "5",
		counter.SettingAnnounce: "On",
	}))
	if err != nil {
		t.Fatalf("mockhost.New err = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go func() { _ = h.Serve(ctx) }()

	runErr := make(chan error, 1)
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		runErr <- counter.Run(ctx, h.Addr(), counter.NewHandler(logger), session.WithLogger(logger))
	}()

	step := func(v string) protocol.IDValue { return protocol.IDValue{ID: counter.DataStep, Value: v} }
	wait := func(what string, pred func([]protocol.Command) bool) {
		t.Helper()
		if err := h.WaitFor(ctx, pred); err != nil {
			t.Fatalf("waiting for %s: %v", what, err)
		}
	}

	wait("initial count", lastState(counter.StateCount, "5"))

	if err := h.Action(counter.ActionIncrement, step("2")); err != nil {
		t.Fatalf("Action err = %v", err)
	}
	wait("incremented count", lastState(counter.StateCount, "7"))

	if err := h.Action(counter.ActionReset, protocol.IDValue{ID: counter.DataTarget, Value: "zero"}); err != nil {
		t.Fatalf("Action err = %v", err)
	}
	wait("reset count", lastState(counter.StateCount, "0"))
	wait("reset notification", sent[protocol.ShowNotification])

	if err := h.ConnectorChange(counter.ConnectorSpeed, 40, step("1")); err != nil {
		t.Fatalf("ConnectorChange err = %v", err)
	}
	wait("connector echo", sent[protocol.ConnectorUpdate])

	if err := h.HoldDown(counter.ActionIncrement, step("1")); err != nil {
		t.Fatalf("HoldDown err = %v", err)
	}
	wait("counting mode", lastState(counter.StateMode, "counting"))
	if err := h.HoldUp(counter.ActionIncrement, step("1")); err != nil {
		t.Fatalf("HoldUp err = %v", err)
	}
	wait("idle mode", lastState(counter.StateMode, "idle"))

	if err := h.Finish(ctx, runDone, 2*time.Second); err != nil {
		t.Fatalf("Finish err = %v", err)
	}
	if err := <-runErr; err != nil {
		t.Errorf("Run err = %v", err)
	}

	var long string
	var events []protocol.TriggerEvent
	for _, c := range h.Commands() {
		switch c := c.(type) {
		case protocol.ConnectorUpdate:
			long = c.ConnectorID
		case protocol.TriggerEvent:
			events = append(events, c)
		}
	}
	if want := "pc_" + counter.ID + "_" + counter.ConnectorSpeed + "|" + counter.DataStep + "=1"; long != want {
		t.Errorf("connector id = %q, want %q", long, want)
	}
	if len(events) != 2 || events[0].States[counter.LocalPrevious] != "idle" || events[1].States[counter.LocalPrevious] != "counting" {
		t.Errorf("mode events = %+v", events)
	}
}
