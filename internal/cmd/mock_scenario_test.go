package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/prysmsh/tpsdk/pkg/protocol"
)

const counterScenario = `
settings:
  Start Value: "5"
steps:
  - name: bump
    action: com.example.counter.increment
    data: {com.example.counter.step: "2"}
    expect: {state: com.example.counter.count, value: "7"}
  - connector: com.example.counter.speed
    value: 40
  - wait: 500ms
    broadcast: {page: main.tml}
  - expect: {command: settingUpdate}
`

func TestParseScenario(t *testing.T) {
	sf, err := parseScenario(strings.NewReader(counterScenario))
	if err != nil {
		t.Fatalf("parseScenario err = %v", err)
	}
	if sf.Timeout != defaultExpectTimeout {
		t.Errorf("Timeout = %s, want %s", sf.Timeout, defaultExpectTimeout)
	}
	if sf.Settings["Start Value"] != "5" {
		t.Errorf("Settings = %v", sf.Settings)
	}
	if len(sf.Steps) != 4 {
		t.Fatalf("steps = %d, want 4", len(sf.Steps))
	}
	if sf.Steps[2].Wait != 500*time.Millisecond || sf.Steps[2].Broadcast.Page != "main.tml" {
		t.Errorf("step 3 = %+v", sf.Steps[2])
	}

	scs := sf.scenarios()
	if len(scs) != 4 {
		t.Fatalf("scenarios = %d, want 4", len(scs))
	}
	if scs[0].Name != "bump" || scs[1].Name != "step 2" {
		t.Errorf("names = %q, %q", scs[0].Name, scs[1].Name)
	}
	if scs[2].Delay != 500*time.Millisecond {
		t.Errorf("delay = %s", scs[2].Delay)
	}
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"two injections", "steps:\n  - action: a\n    connector: c\n", "2 injections"},
		{"expect both", "steps:\n  - expect: {state: s, command: stateUpdate}\n", "exactly one of state or command"},
		{"expect neither", "steps:\n  - expect: {value: x}\n", "exactly one of state or command"},
		{"unknown field", "steps:\n  - press: a\n", "parse scenario"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseScenario(strings.NewReader(tt.in))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestParseScenarioEmpty(t *testing.T) {
	sf, err := parseScenario(strings.NewReader(""))
	if err != nil {
		t.Fatalf("parseScenario err = %v", err)
	}
	if len(sf.Steps) != 0 {
		t.Errorf("steps = %v", sf.Steps)
	}
}

func TestExpectMatch(t *testing.T) {
	cmds := []protocol.Command{
		protocol.Pair{ID: "p"},
		protocol.StateUpdate{ID: "count", Value: "1"},
		protocol.StateUpdate{ID: "other", Value: "x"},
		protocol.StateUpdate{ID: "count", Value: "2"},
	}
	tests := []struct {
		e    expectStep
		want bool
	}{
		{expectStep{State: "count", Value: "2"}, true},
		{expectStep{State: "count", Value: "1"}, false},
		{expectStep{State: "missing"}, false},
		{expectStep{Command: "pair"}, true},
		{expectStep{Command: "settingUpdate"}, false},
	}
	for _, tt := range tests {
		if got := tt.e.match(cmds); got != tt.want {
			t.Errorf("%s match = %v, want %v", &tt.e, got, tt.want)
		}
	}
}

func TestIDValuesSorted(t *testing.T) {
	got := idValues(map[string]string{"b": "2", "a": "1"})
	want := []protocol.IDValue{{ID: "a", Value: "1"}, {ID: "b", Value: "2"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("idValues mismatch (-want +got):\n%s", diff)
	}
	if idValues(nil) != nil {
		t.Error("idValues(nil) != nil")
	}
}

func TestStepInjections(t *testing.T) {
	st := scenarioStep{Settings: map[string]string{}}
	if n := st.injections(); n != 1 {
		t.Errorf("empty settings map counts as %d injections, want 1", n)
	}
	if n := (scenarioStep{Wait: time.Second}).injections(); n != 0 {
		t.Errorf("wait-only step = %d injections", n)
	}
}
