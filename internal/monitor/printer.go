package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/prysmsh/tpsdk/internal/style"
	"github.com/prysmsh/tpsdk/pkg/mockhost"
)

var (
	toPlugin   = color.New(color.FgHiCyan, color.Bold).SprintFunc()
	fromPlugin = color.New(color.FgHiMagenta, color.Bold).SprintFunc()
	timestamp  = color.New(color.FgHiBlack).SprintFunc()
)

// Arrow marks a frame's direction: host to plugin is ">>>", plugin to
// host "<<<".
func Arrow(d mockhost.Direction) string {
	if d == mockhost.DirectionToPlugin {
		return ">>>"
	}
	return "<<<"
}

// Summary is the message type and compact payload of a frame.
func Summary(f mockhost.Frame) (typ, payload string) {
	var head struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(f.Payload, &head)
	if head.Type == "" {
		head.Type = "?"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, f.Payload); err != nil {
		return head.Type, string(f.Payload)
	}
	return head.Type, buf.String()
}

// Printer writes one coloured line per frame.
type Printer struct {
	mu    sync.Mutex
	out   io.Writer
	width int
}

// NewPrinter writes to out, truncating lines to width cells (0 keeps
// them whole).
func NewPrinter(out io.Writer, width int) *Printer {
	return &Printer{out: out, width: width}
}

// Print writes f. It is safe to use as a FrameFunc.
func (p *Printer) Print(f mockhost.Frame) {
	typ, payload := Summary(f)
	arrow := fromPlugin(Arrow(f.Direction))
	if f.Direction == mockhost.DirectionToPlugin {
		arrow = toPlugin(Arrow(f.Direction))
	}
	line := fmt.Sprintf("%s %s %-28s %s", timestamp(f.At.Local().Format("15:04:05.000")), arrow, typ, payload)

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, style.Truncate(line, p.width))
}
