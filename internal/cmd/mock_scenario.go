package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/prysmsh/tpsdk/pkg/mockhost"
	"github.com/prysmsh/tpsdk/pkg/protocol"
)

// scenarioFile is the YAML script `tpsdk mock --scenario` plays against a
// connected plugin. Steps run in order; `wait` delays a step and `expect`
// blocks until the plugin sent a matching command.
//
//	settings:
//	  Start Value: "5"
//	timeout: 5s
//	steps:
//	  - action: com.example.counter.increment
//	    data: {com.example.counter.step: "2"}
//	    expect: {state: com.example.counter.count, value: "7"}
//	  - connector: com.example.counter.speed
//	    value: 40
//	  - wait: 500ms
//	    broadcast: {page: main.tml}
type scenarioFile struct {
	Settings map[string]string `yaml:"settings"`
	Timeout  time.Duration     `yaml:"timeout"`
	Steps    []scenarioStep    `yaml:"steps"`
}

type scenarioStep struct {
	Name         string            `yaml:"name"`
	Wait         time.Duration     `yaml:"wait"`
	Action       string            `yaml:"action"`
	Down         string            `yaml:"down"`
	Up           string            `yaml:"up"`
	Connector    string            `yaml:"connector"`
	Value        int               `yaml:"value"`
	Data         map[string]string `yaml:"data"`
	List         *listStep         `yaml:"list"`
	Settings     map[string]string `yaml:"settings"`
	Broadcast    *broadcastStep    `yaml:"broadcast"`
	Notification *clickStep        `yaml:"notification"`
	Expect       *expectStep       `yaml:"expect"`
}

type listStep struct {
	Action string `yaml:"action"`
	Field  string `yaml:"field"`
	Value  string `yaml:"value"`
}

type broadcastStep struct {
	Page     string `yaml:"page"`
	Previous string `yaml:"previous"`
}

type clickStep struct {
	ID     string `yaml:"id"`
	Option string `yaml:"option"`
}

type expectStep struct {
	State   string `yaml:"state"`
	Value   string `yaml:"value"`
	Command string `yaml:"command"`
}

const defaultExpectTimeout = 5 * time.Second

func loadScenario(path string) (*scenarioFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	return parseScenario(f)
}

func parseScenario(r io.Reader) (*scenarioFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var sf scenarioFile
	if err := dec.Decode(&sf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if sf.Timeout <= 0 {
		sf.Timeout = defaultExpectTimeout
	}
	for i, st := range sf.Steps {
		if n := st.injections(); n > 1 {
			return nil, fmt.Errorf("scenario step %d: %d injections, want at most one", i+1, n)
		}
		if e := st.Expect; e != nil && (e.State == "") == (e.Command == "") {
			return nil, fmt.Errorf("scenario step %d: expect needs exactly one of state or command", i+1)
		}
	}
	return &sf, nil
}

func (st scenarioStep) injections() int {
	n := 0
	for _, set := range []bool{
		st.Action != "", st.Down != "", st.Up != "", st.Connector != "",
		st.List != nil, st.Settings != nil, st.Broadcast != nil, st.Notification != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// scenarios converts the file into mock host scenarios. Injections need
// the paired plugin id, so they run in the scenario's assertion hook
// after its delay.
func (sf *scenarioFile) scenarios() []mockhost.Scenario {
	out := make([]mockhost.Scenario, 0, len(sf.Steps))
	for i, st := range sf.Steps {
		name := st.Name
		if name == "" {
			name = fmt.Sprintf("step %d", i+1)
		}
		out = append(out, mockhost.Scenario{
			Name:  name,
			Delay: st.Wait,
			Assert: func(ctx context.Context, h *mockhost.Host) error {
				if err := st.inject(h); err != nil {
					return err
				}
				if st.Expect == nil {
					return nil
				}
				ctx, cancel := context.WithTimeout(ctx, sf.Timeout)
				defer cancel()
				if err := h.WaitFor(ctx, st.Expect.match); err != nil {
					return fmt.Errorf("expect %s: %w", st.Expect, err)
				}
				return nil
			},
		})
	}
	return out
}

func (st scenarioStep) inject(h *mockhost.Host) error {
	data := idValues(st.Data)
	switch {
	case st.Action != "":
		return h.Action(st.Action, data...)
	case st.Down != "":
		return h.HoldDown(st.Down, data...)
	case st.Up != "":
		return h.HoldUp(st.Up, data...)
	case st.Connector != "":
		return h.ConnectorChange(st.Connector, st.Value, data...)
	case st.List != nil:
		_, err := h.ListChange(st.List.Action, st.List.Field, st.List.Value)
		return err
	case st.Settings != nil:
		return h.Settings(protocol.SettingValues(st.Settings))
	case st.Broadcast != nil:
		return h.Broadcast(st.Broadcast.Page, st.Broadcast.Previous)
	case st.Notification != nil:
		return h.NotificationClicked(st.Notification.ID, st.Notification.Option)
	}
	return nil
}

func (e *expectStep) String() string {
	if e.State != "" {
		return fmt.Sprintf("state %s = %q", e.State, e.Value)
	}
	return "command " + e.Command
}

func (e *expectStep) match(cmds []protocol.Command) bool {
	for _, c := range slices.Backward(cmds) {
		if e.Command != "" {
			if c.CommandType() == e.Command {
				return true
			}
			continue
		}
		if u, ok := c.(protocol.StateUpdate); ok && u.ID == e.State {
			return u.Value == e.Value
		}
	}
	return false
}

// idValues orders data by id so injected messages are reproducible.
func idValues(m map[string]string) []protocol.IDValue {
	if len(m) == 0 {
		return nil
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]protocol.IDValue, len(ids))
	for i, id := range ids {
		out[i] = protocol.IDValue{ID: id, Value: m[id]}
	}
	return out
}
