package monitor

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/prysmsh/tpsdk/internal/style"
	"github.com/prysmsh/tpsdk/pkg/mockhost"
)

const maxRows = 1000

// FrameMsg delivers a frame to the live view.
type FrameMsg mockhost.Frame

// StatusMsg replaces the status line under the header.
type StatusMsg string

// Model is the bubbletea model behind `tpsdk mock --tui`.
type Model struct {
	title  string
	status string
	frames []mockhost.Frame
	width  int
	height int
	paused bool
	held   []mockhost.Frame
}

// NewModel creates an empty live view.
func NewModel(title string) Model {
	return Model{title: title, width: 100, height: 24}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model. Space pauses the view; frames arriving
// while paused are shown on resume.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
			if !m.paused {
				m.frames = appendCapped(m.frames, m.held...)
				m.held = nil
			}
		case "c":
			m.frames = nil
		}
	case FrameMsg:
		if m.paused {
			m.held = appendCapped(m.held, mockhost.Frame(msg))
		} else {
			m.frames = appendCapped(m.frames, mockhost.Frame(msg))
		}
	case StatusMsg:
		m.status = string(msg)
	}
	return m, nil
}

func appendCapped(s []mockhost.Frame, f ...mockhost.Frame) []mockhost.Frame {
	s = append(s, f...)
	if len(s) > maxRows {
		s = s[len(s)-maxRows:]
	}
	return s
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(style.Header.Width(m.width).Render(m.title))
	b.WriteByte('\n')

	status := m.status
	if m.paused {
		status = fmt.Sprintf("paused (%d held) · %s", len(m.held), status)
	}
	b.WriteString(style.MutedStyle.Render(style.Truncate(status, m.width)))
	b.WriteByte('\n')

	// header (2 lines incl. border), status, footer
	rows := m.height - 4
	if rows < 1 {
		rows = 1
	}
	start := max(0, len(m.frames)-rows)
	for _, f := range m.frames[start:] {
		b.WriteString(m.row(f))
		b.WriteByte('\n')
	}
	for i := len(m.frames) - start; i < rows; i++ {
		b.WriteByte('\n')
	}
	b.WriteString(style.MutedStyle.Render("q quit · space pause · c clear"))
	return b.String()
}

func (m Model) row(f mockhost.Frame) string {
	typ, payload := Summary(f)
	arrow := style.FromPlugin.Render(Arrow(f.Direction))
	if f.Direction == mockhost.DirectionToPlugin {
		arrow = style.ToPlugin.Render(Arrow(f.Direction))
	}
	line := fmt.Sprintf("%s %s %-28s %s",
		style.MutedStyle.Render(f.At.Local().Format("15:04:05.000")), arrow, typ, payload)
	return style.Truncate(line, m.width)
}

// Frames returns the frames currently shown.
func (m Model) Frames() []mockhost.Frame { return m.frames }
