// Package counter is the demo plugin shipped with tpsdk: a counter that
// Touch Portal buttons increment and reset. Counter implements the Handler
// that tpsdk generate writes to counter_gen.go from Description, and the
// same definition doubles as the builtin "example" provider of the CLI.
package counter

//go:generate go run github.com/prysmsh/tpsdk/cmd/tpsdk generate -p example --package counter --out . --force

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prysmsh/tpsdk/pkg/protocol"
)

// Entity ids.
const (
	ID = PluginID

	ActionIncrement = ID + ".increment"
	ActionReset     = ID + ".reset"
	DataStep        = ID + ".step"
	DataTarget      = ID + ".target"
	StateCount      = ID + ".count"
	StateMode       = ID + ".mode"
	EventReached    = ID + ".reached"
	EventMode       = ID + ".mode_changed"
	LocalPrevious   = ID + ".previous"
	ConnectorSpeed  = ID + ".speed"

	SettingStart    = "Start Value"
	SettingAnnounce = "Announce"
)

// Counter implements Handler for one session.
type Counter struct {
	h      *Handle
	logger *slog.Logger

	mu       sync.Mutex
	count    int64
	start    int64
	mode     ModeValue
	announce bool
	interval time.Duration
	stopHold context.CancelFunc
}

var _ Handler = (*Counter)(nil)

// New builds a counter from the initial settings and publishes its states.
func New(settings Settings, h *Handle, logger *slog.Logger) (*Counter, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Counter{h: h, logger: logger, mode: ModeIdle, interval: 500 * time.Millisecond}
	c.apply(settings)
	c.count = c.start
	if err := c.publish(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewHandler adapts New to the constructor Run expects.
func NewHandler(logger *slog.Logger) func(context.Context, Settings, *Handle) (Handler, error) {
	return func(_ context.Context, settings Settings, h *Handle) (Handler, error) {
		c, err := New(settings, h, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Count returns the current value.
func (c *Counter) Count() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *Counter) publish() error {
	c.mu.Lock()
	count, mode := c.count, c.mode
	c.mu.Unlock()
	if err := c.h.UpdateCount(float64(count)); err != nil {
		return err
	}
	return c.h.UpdateMode(mode)
}

// OnIncrement adds step once, or repeatedly while the button is held.
func (c *Counter) OnIncrement(ctx context.Context, mode protocol.InteractionMode, step float64) error {
	switch mode {
	case protocol.HoldUp:
		c.stopHolding()
		return c.setMode(ModeIdle)
	case protocol.HoldDown:
		c.hold(ctx, int64(step))
		return nil
	}
	return c.add(int64(step))
}

func (c *Counter) add(step int64) error {
	c.mu.Lock()
	c.count += step
	count := c.count
	c.mu.Unlock()
	return c.h.UpdateCount(float64(count))
}

// hold keeps adding step every interval until the button is released.
func (c *Counter) hold(ctx context.Context, step int64) {
	c.stopHolding()
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.stopHold = cancel
	interval := c.interval
	c.mu.Unlock()

	if err := c.setMode(ModeCounting); err != nil {
		c.logger.Warn("set mode", "error", err)
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			if err := c.add(step); err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
}

func (c *Counter) stopHolding() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopHold != nil {
		c.stopHold()
		c.stopHold = nil
	}
}

func (c *Counter) setMode(mode ModeValue) error {
	c.mu.Lock()
	prev := c.mode
	c.mode = mode
	c.mu.Unlock()
	if prev == mode {
		return nil
	}
	if err := c.h.UpdateMode(mode); err != nil {
		return err
	}
	return c.h.TriggerModeChanged(string(prev))
}

// OnReset puts the count back to zero or to the configured start value.
func (c *Counter) OnReset(_ context.Context, _ protocol.InteractionMode, target TargetChoice) error {
	c.stopHolding()
	c.mu.Lock()
	c.count = 0
	if target == TargetStart {
		c.count = c.start
	}
	count, announce := c.count, c.announce
	c.mu.Unlock()

	if err := c.h.UpdateCount(float64(count)); err != nil {
		return err
	}
	if announce {
		return c.h.Notify(protocol.ShowNotification{
			NotificationID: ID + ".reset",
			Title:          "Counter reset",
			Message:        fmt.Sprintf("The counter is back at %d.", count),
		})
	}
	return nil
}

func (c *Counter) OnSelectTargetInReset(_ context.Context, instanceID string, selected TargetChoice) error {
	c.logger.Debug("reset target selected", "instance", instanceID, "target", selected)
	return nil
}

// OnSpeedChange maps the slider position to the hold repeat interval, from
// one second at 0 down to 100ms at 100, and echoes the position back.
func (c *Counter) OnSpeedChange(_ context.Context, value int, step float64) error {
	c.mu.Lock()
	c.interval = time.Second - time.Duration(value)*9*time.Millisecond
	c.mu.Unlock()
	return c.h.UpdateSpeed(value, step)
}

func (c *Counter) OnSettingsChanged(_ context.Context, settings Settings) error {
	c.apply(settings)
	return nil
}

func (c *Counter) OnBroadcast(context.Context, protocol.Broadcast) error { return nil }

func (c *Counter) OnNotificationClicked(_ context.Context, n protocol.NotificationClicked) error {
	c.logger.Debug("notification clicked", "id", n.NotificationID, "option", n.OptionID)
	return nil
}

func (c *Counter) OnClose(context.Context, bool) { c.stopHolding() }

func (c *Counter) apply(settings Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = int64(settings.StartValue)
	c.announce = settings.Announce
}
