package mockhost

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/prysmsh/tpsdk/pkg/protocol"
)

// Scenario is one step of a scripted run: send Messages, wait Delay, then
// run Assert against the host.
type Scenario struct {
	Name     string
	Messages []protocol.Message
	Delay    time.Duration
	Assert   func(ctx context.Context, h *Host) error
}

// Play waits for pairing, checks it, runs each scenario in order and sends
// closePlugin at the end, even when a scenario failed.
func (h *Host) Play(ctx context.Context, scenarios ...Scenario) error {
	select {
	case <-h.paired:
	case <-h.done:
		return errors.New("mock host stopped before pairing")
	case <-ctx.Done():
		return fmt.Errorf("wait for pairing: %w", ctx.Err())
	}

	err := h.playAll(ctx, append([]Scenario{pairCheck()}, scenarios...))
	if cerr := h.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("send closePlugin: %w", cerr)
	}
	return err
}

func (h *Host) playAll(ctx context.Context, scenarios []Scenario) error {
	for i, sc := range scenarios {
		name := sc.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		h.logger.Debug("scenario", "name", name)
		for _, m := range sc.Messages {
			if err := h.Send(m); err != nil {
				return fmt.Errorf("scenario %s: %w", name, err)
			}
		}
		if sc.Delay > 0 {
			t := time.NewTimer(sc.Delay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return fmt.Errorf("scenario %s: %w", name, ctx.Err())
			}
		}
		if sc.Assert != nil {
			if err := sc.Assert(ctx, h); err != nil {
				return fmt.Errorf("scenario %s: %w", name, err)
			}
		}
	}
	return nil
}

func pairCheck() Scenario {
	return Scenario{
		Name: "pair",
		Assert: func(_ context.Context, h *Host) error {
			cmds := h.Commands()
			if len(cmds) == 0 {
				return errors.New("no pair command recorded")
			}
			if _, ok := cmds[0].(protocol.Pair); !ok {
				return fmt.Errorf("first command is %s, want pair", cmds[0].CommandType())
			}
			return nil
		},
	}
}

// Expectations queues the calls a test expects, per callback name, and
// checks actual calls against them in order.
type Expectations struct {
	mu       sync.Mutex
	queues   map[string][][]any
	failures []error
}

// NewExpectations creates an empty set.
func NewExpectations() *Expectations {
	return &Expectations{queues: make(map[string][][]any)}
}

// Expect queues one expected call of callback with args.
func (e *Expectations) Expect(callback string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queues[callback] = append(e.queues[callback], args)
}

// Check consumes the next expectation for callback and compares args with
// it. Mismatches are returned and also remembered for Verify.
func (e *Expectations) Check(callback string, args ...any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := e.queues[callback]
	if len(q) == 0 {
		err := fmt.Errorf("unexpected call %s%v", callback, args)
		e.failures = append(e.failures, err)
		return err
	}
	want := q[0]
	e.queues[callback] = q[1:]
	if diff := cmp.Diff(want, args); diff != "" {
		err := fmt.Errorf("%s arguments mismatch (-want +got):\n%s", callback, diff)
		e.failures = append(e.failures, err)
		return err
	}
	return nil
}

// Verify reports failed checks and expectations that were never met.
func (e *Expectations) Verify() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	errs := append([]error(nil), e.failures...)
	for _, callback := range slices.Sorted(maps.Keys(e.queues)) {
		if q := e.queues[callback]; len(q) > 0 {
			errs = append(errs, fmt.Errorf("%d expected call(s) of %s never happened", len(q), callback))
		}
	}
	return errors.Join(errs...)
}
