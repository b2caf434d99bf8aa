package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/juststeveking/sentinel/internal/monitor"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Always update window size
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
	}

	// Handle form updates if form is active
	if m.showForm {
		if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
			m.showForm = false
			m.form = nil
			return m, nil
		}

		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f
		}

		switch m.form.State {
		case huh.StateCompleted:
			domain := strings.TrimSpace(m.formData.Domain)
			m.showForm = false
			m.form = nil
			if domain == "" || m.addTarget == nil {
				return m, cmd
			}
			return m, tea.Batch(cmd, m.runAddTarget(domain))
		case huh.StateAborted:
			m.showForm = false
			m.form = nil
		}
		return m, cmd
	}

	// Handle detail modal interactions
	if m.showDetail {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "esc", "enter":
				m.showDetail = false
				return m, nil
			case "ctrl+c", "q":
				// handled below
			default:
				return m, nil
			}
		}
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "n":
			if m.addTarget == nil {
				return m, nil
			}
			m.showForm = true
			m.initAddTargetForm()
			return m, m.form.Init()
		case "enter":
			if len(m.targets) > 0 {
				m.detailURL = m.getSelectedURL()
				m.showDetail = true
			}
		case "left", "h", "up", "k", "shift+tab":
			m.moveSelection(-1)
		case "right", "l", "down", "j", "tab":
			m.moveSelection(1)
		}

	case tickMsg:
		m.syncTargets()
		m.lastUpdate = time.Time(msg)
		return m, doTick()

	case addResultMsg:
		if msg.err != nil {
			m.flash = fmt.Sprintf("Failed to add %s: %v", msg.domain, msg.err)
		} else {
			m.flash = fmt.Sprintf("Added %s, checking on the next sweep", msg.domain)
		}
		m.flashTime = time.Now()
		m.syncTargets()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// syncTargets reads a fresh snapshot, keeping the selection on the same URL
func (m *Model) syncTargets() {
	if m.source == nil {
		return
	}

	selected := m.getSelectedURL()

	targets := m.source.ListTargets()
	monitor.SortByStatus(targets)
	m.targets = targets

	for i, t := range m.targets {
		if t.URL == selected {
			m.selectedIndex = i
			break
		}
	}
	m.clampSelection()
}

// runAddTarget calls the add callback off the update loop
func (m Model) runAddTarget(domain string) tea.Cmd {
	add := m.addTarget
	return func() tea.Msg {
		return addResultMsg{domain: domain, err: add(domain)}
	}
}

// initAddTargetForm initializes the form for adding a new target
func (m *Model) initAddTargetForm() {
	m.formData = &FormData{}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Domain").
				Description("Checked as https://www.<domain>/").
				Placeholder("example.com").
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("domain is required")
					}
					return nil
				}).
				Value(&m.formData.Domain),
		).Title("Add Target (Esc to cancel)"),
	).WithTheme(huh.ThemeCatppuccin()).WithWidth(60).WithShowHelp(true)
}

// selectedTarget returns the target shown in the detail modal
func (m Model) selectedTarget() (monitor.Target, bool) {
	for _, t := range m.targets {
		if t.URL == m.detailURL {
			return t, true
		}
	}
	return monitor.Target{}, false
}

// moveSelection moves the selected index with wrap-around
func (m *Model) moveSelection(delta int) {
	if len(m.targets) == 0 {
		return
	}
	m.selectedIndex = (m.selectedIndex + delta) % len(m.targets)
	if m.selectedIndex < 0 {
		m.selectedIndex += len(m.targets)
	}
}

// getSelectedURL returns the currently selected target URL
func (m *Model) getSelectedURL() string {
	if len(m.targets) == 0 {
		return ""
	}
	if m.selectedIndex >= len(m.targets) {
		m.selectedIndex = len(m.targets) - 1
	}
	return m.targets[m.selectedIndex].URL
}

// clampSelection ensures selection stays within range
func (m *Model) clampSelection() {
	if len(m.targets) == 0 {
		m.selectedIndex = 0
		return
	}
	if m.selectedIndex >= len(m.targets) {
		m.selectedIndex = len(m.targets) - 1
	}
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
}
