// Package tui is the interactive host chrome: a bubbletea program that
// turns key presses into inbound scene calls and shows relay traffic and
// recent log lines.
//
// Relay observers run on the scene goroutine. Forward moves events onto
// the UI goroutine through Program.Send; nothing else touches the model.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joeycumines/runtime-bridge/internal/logging"
	"github.com/joeycumines/runtime-bridge/internal/relay"
)

const (
	maxEvents       = 500
	logRows         = 6
	refreshInterval = 250 * time.Millisecond
)

// Sender delivers inbound calls to the scene.
type Sender interface {
	Send(object, method, argument string)
}

// EventMsg carries a relay event into the model.
type EventMsg relay.Event

type refreshMsg time.Time

// Option configures a Model.
type Option func(*Model)

// WithActions replaces DemoActions.
func WithActions(actions []Action) Option {
	return func(m *Model) {
		m.keys = newKeyMap(actions)
	}
}

// WithLogBuffer shows the most recent entries of buf in a log pane.
func WithLogBuffer(buf *logging.Buffer) Option {
	return func(m *Model) {
		m.logs = buf
	}
}

// WithTitle sets the header text.
func WithTitle(title string) Option {
	return func(m *Model) {
		m.title = title
	}
}

// Model is the bubbletea model.
type Model struct {
	sender Sender
	keys   keyMap
	help   help.Model
	logs   *logging.Buffer
	title  string
	styles styles

	events  []string
	scroll  int // rows scrolled back from the newest event
	sent    int
	width   int
	height  int
	logView []string
}

type styles struct {
	title  lipgloss.Style
	pane   lipgloss.Style
	label  lipgloss.Style
	event  lipgloss.Style
	log    lipgloss.Style
	status lipgloss.Style
	bar    scrollbar
}

func defaultStyles() styles {
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Padding(0, 1),
		pane:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		event:  lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		log:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		status: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		bar: scrollbar{
			thumb: lipgloss.NewStyle().Background(lipgloss.Color("57")),
			track: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		},
	}
}

// New creates a model sending key actions to sender.
func New(sender Sender, opts ...Option) Model {
	m := Model{
		sender: sender,
		keys:   newKeyMap(DemoActions()),
		help:   help.New(),
		title:  "runtime-bridge",
		styles: defaultStyles(),
		width:  80,
		height: 24,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.refreshLogs()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.logs == nil {
		return nil
	}
	return refresh()
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case EventMsg:
		m.events = append(m.events, formatEvent(relay.Event(msg)))
		if n := len(m.events) - maxEvents; n > 0 {
			m.events = append(m.events[:0:0], m.events[n:]...)
		}
		if m.scroll > 0 {
			m.scroll++
		}
		return m, nil

	case refreshMsg:
		m.refreshLogs()
		return m, refresh()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.ScrollUp):
		m.scroll = min(m.scroll+m.eventRows(), max(0, len(m.events)-m.eventRows()))
		return m, nil
	case key.Matches(msg, m.keys.ScrollDown):
		m.scroll = max(0, m.scroll-m.eventRows())
		return m, nil
	case key.Matches(msg, m.keys.Clear):
		m.events = nil
		m.scroll = 0
		return m, nil
	}
	for _, a := range m.keys.actions {
		if key.Matches(msg, a.Binding) {
			m.sender.Send(a.Object, a.Method, a.Argument)
			m.sent++
			return m, nil
		}
	}
	return m, nil
}

func (m *Model) refreshLogs() {
	if m.logs == nil {
		return
	}
	entries := m.logs.Recent(logRows)
	m.logView = m.logView[:0]
	for _, e := range entries {
		m.logView = append(m.logView, e.String())
	}
}

func formatEvent(ev relay.Event) string {
	if ev.Payload == nil {
		return ev.Channel
	}
	return fmt.Sprintf("%s  %v", ev.Channel, ev.Payload)
}

// eventRows is the visible height of the event pane.
func (m Model) eventRows() int {
	rows := m.height - 6
	if m.logs != nil {
		rows -= logRows + 2
	}
	if m.help.ShowAll {
		rows -= len(m.keys.FullHelp())
	}
	return max(1, rows)
}

// View implements tea.Model.
func (m Model) View() string {
	inner := max(10, m.width-4)
	rows := m.eventRows()

	start := max(0, len(m.events)-rows-m.scroll)
	end := min(len(m.events), start+rows)
	lines := make([]string, 0, rows)
	for _, e := range m.events[start:end] {
		lines = append(lines, m.styles.event.Render(truncate(e, inner-2)))
	}
	for len(lines) < rows {
		lines = append(lines, "")
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(inner-1).Render(strings.Join(lines, "\n")),
		m.styles.bar.render(len(m.events), rows, start),
	)

	sections := []string{
		m.styles.title.Render(m.title),
		m.styles.pane.Render(body),
	}
	if m.logs != nil {
		logLines := make([]string, logRows)
		for i := range logLines {
			if i < len(m.logView) {
				logLines[i] = m.styles.log.Render(truncate(m.logView[i], inner))
			}
		}
		sections = append(sections, m.styles.pane.Render(lipgloss.NewStyle().Width(inner).Render(strings.Join(logLines, "\n"))))
	}
	sections = append(sections,
		m.styles.status.Render(fmt.Sprintf("events %d  sent %d", len(m.events), m.sent)),
		m.help.View(m.keys),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r)) > width-1 {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

// Events returns the event lines currently held.
func (m Model) Events() []string {
	return m.events
}

// Sent returns how many key actions were sent.
func (m Model) Sent() int {
	return m.sent
}
