package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/juststeveking/sentinel/internal/monitor"
)

// StatusSource is the read-only engine view the dashboard renders
type StatusSource interface {
	ListTargets() []monitor.Target
	Sweeping() bool
	LastSweep() time.Time
}

// AddTargetFunc registers a new domain with the running engine
type AddTargetFunc func(domain string) error

// Model represents the TUI application state
type Model struct {
	targets       []monitor.Target
	width         int
	height        int
	lastUpdate    time.Time
	quitting      bool
	source        StatusSource
	cancel        func()
	spinner       spinner.Model
	selectedIndex int
	showDetail    bool
	detailURL     string
	addTarget     AddTargetFunc
	flash         string
	flashTime     time.Time

	// Form state
	form     *huh.Form
	showForm bool
	formData *FormData
}

// FormData holds the data for the add target form
type FormData struct {
	Domain string
}

// NewModel creates a new TUI model over the engine snapshot
func NewModel(source StatusSource, cancel func(), addTarget AddTargetFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(colorError)

	return Model{
		targets:    make([]monitor.Target, 0),
		source:     source,
		cancel:     cancel,
		addTarget:  addTarget,
		lastUpdate: time.Now(),
		spinner:    s,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		m.spinner.Tick,
		refresh(),
	)
}

// tickMsg is sent on every tick
type tickMsg time.Time

// doTick returns a command that waits for the next tick
func doTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh triggers an immediate snapshot read
func refresh() tea.Cmd {
	return func() tea.Msg {
		return tickMsg(time.Now())
	}
}

// addResultMsg is sent when the add target callback completes
type addResultMsg struct {
	domain string
	err    error
}
