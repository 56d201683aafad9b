package mockhost

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Direction tells which side wrote a frame.
type Direction string

const (
	DirectionToPlugin   Direction = "toPlugin"
	DirectionFromPlugin Direction = "fromPlugin"
)

// Frame is one line seen by the mock host.
type Frame struct {
	Direction Direction       `json:"direction"`
	At        time.Time       `json:"at"`
	Payload   json.RawMessage `json:"payload"`
}

const (
	monitorBacklog = 256
	writeWait      = 5 * time.Second
)

// Monitor fans frames out to websocket subscribers. New subscribers first
// receive the most recent frames.
type Monitor struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	history []Frame
	subs    map[chan Frame]struct{}
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The monitor only listens on loopback.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		subs: make(map[chan Frame]struct{}),
	}
}

// Record publishes a frame. Slow subscribers miss frames rather than
// stalling the host.
func (m *Monitor) Record(dir Direction, payload []byte) {
	f := Frame{Direction: dir, At: time.Now().UTC(), Payload: append(json.RawMessage(nil), payload...)}
	if !json.Valid(f.Payload) {
		quoted, _ := json.Marshal(string(payload))
		f.Payload = quoted
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, f)
	if len(m.history) > monitorBacklog {
		m.history = m.history[len(m.history)-monitorBacklog:]
	}
	for ch := range m.subs {
		select {
		case ch <- f:
		default:
		}
	}
}

// History returns the retained frames.
func (m *Monitor) History() []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Frame(nil), m.history...)
}

func (m *Monitor) subscribe() (chan Frame, []Frame) {
	ch := make(chan Frame, 64)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[ch] = struct{}{}
	return ch, append([]Frame(nil), m.history...)
}

func (m *Monitor) unsubscribe(ch chan Frame) {
	m.mu.Lock()
	delete(m.subs, ch)
	m.mu.Unlock()
}

// Subscribe streams the retained frames and then live ones until ctx
// ends. Like websocket subscribers, a reader that falls behind misses
// frames.
func (m *Monitor) Subscribe(ctx context.Context) <-chan Frame {
	ch, backlog := m.subscribe()
	out := make(chan Frame, 64)
	go func() {
		defer close(out)
		defer m.unsubscribe(ch)
		for _, f := range backlog {
			select {
			case out <- f:
			case <-ctx.Done():
				return
			}
		}
		for {
			select {
			case f := <-ch:
				select {
				case out <- f:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// ServeHTTP upgrades to a websocket and streams frames as JSON objects.
func (m *Monitor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch, backlog := m.subscribe()
	defer m.unsubscribe(ch)

	// Reading is only needed to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(f Frame) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(f)
	}
	for _, f := range backlog {
		if err := send(f); err != nil {
			return
		}
	}
	for {
		select {
		case f := <-ch:
			if err := send(f); err != nil {
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
