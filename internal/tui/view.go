package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/juststeveking/sentinel/internal/monitor"
)

var (
	colorAccent = lipgloss.Color("#04D9FF") // Neon Cyan
	colorUp     = lipgloss.Color("#00FF94") // Neon Green
	colorDown   = lipgloss.Color("#FF0055") // Neon Red
	colorError  = lipgloss.Color("#FFD700") // Gold
	colorMuted  = lipgloss.Color("#565f89") // Muted Blue
	colorSubtle = lipgloss.Color("#24283b") // Dark Blue
	colorCard   = lipgloss.Color("#16161e") // Very Dark Blue
	colorText   = lipgloss.Color("#c0caf5") // Light Blue/White

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			MarginTop(1).
			MarginBottom(1)

	upStyle = lipgloss.NewStyle().
		Foreground(colorUp).
		Bold(true)

	downStyle = lipgloss.NewStyle().
			Foreground(colorDown).
			Bold(true)

	errorCountStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	// Base card style (border color will be overridden)
	baseCardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Background(colorCard).
			Padding(0, 1).
			MarginRight(1).
			MarginBottom(1)

	selectedCardStyle = baseCardStyle.
				BorderStyle(lipgloss.ThickBorder())

	metadataStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorDown)

	targetNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText)

	secondaryStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Width(16)
)

// groupOrder is the listing order of status groups
var groupOrder = []monitor.Status{
	monitor.StatusUp,
	monitor.StatusError,
	monitor.StatusDown,
	monitor.StatusUnknown,
}

// View renders the TUI with full-screen grid layout
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.showForm && m.form != nil {
		return m.place(m.form.View())
	}

	if m.showDetail {
		if t, ok := m.selectedTarget(); ok {
			return m.place(m.renderDetail(t))
		}
	}

	width := m.width
	if width < 40 {
		width = 80
	}

	cols := 2
	if width > 160 {
		cols = 3
	}
	if width > 200 {
		cols = 4
	}
	cardWidth := (width - 4) / cols
	if cardWidth < 20 {
		cardWidth = 20
		cols = 1
	}

	var b strings.Builder

	b.WriteString(m.renderHeader(width))
	b.WriteString("\n")

	if len(m.targets) == 0 {
		b.WriteString("\n")
		centerText := "⟳ Waiting for the first sweep..."
		padding := (width - len(centerText)) / 2
		if padding > 0 {
			b.WriteString(strings.Repeat(" ", padding))
		}
		b.WriteString(metadataStyle.Render(centerText))
		b.WriteString("\n")
	} else {
		// m.targets is already in group order, so indexes line up with the selection
		offset := 0
		for _, status := range groupOrder {
			group := m.group(status)
			if len(group) == 0 {
				continue
			}
			title := fmt.Sprintf("%s %s (%d)", statusIcon(status), status, len(group))
			b.WriteString("\n" + headerStyle.Render(title) + "\n")
			b.WriteString(m.renderGrid(group, offset, cardWidth, cols))
			offset += len(group)
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter(width))
	b.WriteString("\n")

	return b.String()
}

func (m Model) place(content string) string {
	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 2).
			Render(content),
	)
}

func (m Model) group(status monitor.Status) []monitor.Target {
	var out []monitor.Target
	for _, t := range m.targets {
		if t.Status == status || (status == monitor.StatusUnknown && !knownStatus(t.Status)) {
			out = append(out, t)
		}
	}
	return out
}

func knownStatus(s monitor.Status) bool {
	return s == monitor.StatusUp || s == monitor.StatusError || s == monitor.StatusDown
}

// renderHeader renders the title with per-status counts
func (m Model) renderHeader(width int) string {
	var b strings.Builder

	counts := map[monitor.Status]int{}
	for _, t := range m.targets {
		counts[t.Status]++
	}

	title := titleStyle.Render("SENTINEL")
	if m.source != nil && m.source.Sweeping() {
		title = lipgloss.JoinHorizontal(lipgloss.Center, title, " ", m.spinner.View(), secondaryStyle.Render(" sweeping"))
	}

	var stats string
	if len(m.targets) > 0 {
		stats = fmt.Sprintf("%s  %s  %s  %s",
			upStyle.Render(fmt.Sprintf("● %d", counts[monitor.StatusUp])),
			errorCountStyle.Render(fmt.Sprintf("● %d", counts[monitor.StatusError])),
			downStyle.Render(fmt.Sprintf("● %d", counts[monitor.StatusDown])),
			secondaryStyle.Render(fmt.Sprintf("● %d", counts[monitor.StatusUnknown])),
		)
	}

	gap := width - lipgloss.Width(title) - lipgloss.Width(stats) - 2
	if gap < 0 {
		gap = 0
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, title, strings.Repeat(" ", gap), stats))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(colorSubtle).Render(strings.Repeat("━", width)))

	return b.String()
}

func (m Model) renderFooter(width int) string {
	footerStyle := lipgloss.NewStyle().
		Foreground(colorMuted).
		BorderTop(true).
		BorderForeground(colorSubtle).
		Width(width).
		PaddingTop(1)

	help := "Move: ←→/hjkl • Detail: enter • Quit: q"
	if m.addTarget != nil {
		help = "Move: ←→/hjkl • Detail: enter • Add: n • Quit: q"
	}
	left := fmt.Sprintf(" %s │ %s", time.Now().Format("15:04:05"), help)

	right := "No sweep yet "
	if m.source != nil {
		if last := m.source.LastSweep(); !last.IsZero() {
			right = fmt.Sprintf("Last sweep %s ", humanize.Time(last))
		}
	}
	if m.flash != "" && time.Since(m.flashTime) < 5*time.Second {
		right = m.flash + " "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return footerStyle.Render(left + strings.Repeat(" ", gap) + right)
}

// renderGrid renders targets in a grid; offset is the index of the first
// target in m.targets so the selected card can be highlighted
func (m Model) renderGrid(targets []monitor.Target, offset, cardWidth, cols int) string {
	var rows []string
	for i := 0; i < len(targets); i += cols {
		end := min(i+cols, len(targets))

		var cards []string
		for j := i; j < end; j++ {
			cards = append(cards, m.renderCard(targets[j], cardWidth, offset+j == m.selectedIndex))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}

	return strings.Join(rows, "\n")
}

// renderCard renders one target card
func (m Model) renderCard(t monitor.Target, width int, selected bool) string {
	var b strings.Builder

	name := t.Domain
	if name == "" {
		name = t.URL
	}
	if maxLen := width - 6; len(name) > maxLen {
		name = name[:maxLen-1] + "…"
	}

	b.WriteString(fmt.Sprintf("%s %s", statusStyle(t.Status).Render(statusIcon(t.Status)), targetNameStyle.Render(name)))
	b.WriteString("\n")

	if t.LastChecked.IsZero() {
		b.WriteString(secondaryStyle.Render("Waiting..."))
	} else {
		var details []string
		if t.StatusCode > 0 {
			details = append(details, lipgloss.NewStyle().Foreground(codeColor(t.StatusCode)).Bold(true).Render(fmt.Sprintf("%d", t.StatusCode)))
		}
		if t.ResponseTime > 0 {
			details = append(details, secondaryStyle.Render(formatDuration(t.ResponseTime)))
		}
		if t.ErrorCount > 0 {
			details = append(details, errorCountStyle.Render(fmt.Sprintf("%d failed", t.ErrorCount)))
		}
		if len(details) == 0 {
			details = append(details, secondaryStyle.Render("no response"))
		}
		b.WriteString(strings.Join(details, secondaryStyle.Render(" • ")))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(colorMuted).Render(humanize.Time(t.LastChecked)))
	}

	if t.LastError != "" {
		b.WriteString("\n")
		msg := t.LastError
		if len(msg) > width-4 && width > 8 {
			msg = msg[:width-7] + "…"
		}
		b.WriteString(errorStyle.Render(msg))
	}

	style := baseCardStyle
	if selected {
		style = selectedCardStyle
	}
	return style.
		Width(width).
		BorderForeground(statusColor(t.Status)).
		Render(b.String())
}

// renderDetail renders the detail modal for one target
func (m Model) renderDetail(t monitor.Target) string {
	row := func(label, value string) string {
		return labelStyle.Render(label) + value + "\n"
	}
	orDash := func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(t.URL))
	b.WriteString("\n")
	b.WriteString(row("Status", statusStyle(t.Status).Render(string(t.Status))))
	b.WriteString(row("IP", orDash(t.IP)))

	code := "-"
	if t.StatusCode > 0 {
		code = fmt.Sprintf("%d", t.StatusCode)
	}
	b.WriteString(row("Status code", code))
	b.WriteString(row("Error count", fmt.Sprintf("%d", t.ErrorCount)))

	checked := "never"
	if !t.LastChecked.IsZero() {
		checked = humanize.Time(t.LastChecked)
	}
	b.WriteString(row("Last checked", checked))
	if t.ResponseTime > 0 {
		b.WriteString(row("Response", formatDuration(t.ResponseTime)))
	}
	b.WriteString(row("Last error", orDash(t.LastError)))

	captured := "never"
	if !t.LastCaptured.IsZero() {
		captured = humanize.Time(t.LastCaptured)
	}
	b.WriteString(row("Screenshot", orDash(t.ScreenshotRef)))
	b.WriteString(row("Captured", captured))

	alert := "no"
	if t.Alerted {
		alert = "sent " + humanize.Time(t.AlertedAt)
	}
	b.WriteString(row("Alert", alert))

	b.WriteString("\n")
	b.WriteString(secondaryStyle.Render("esc/enter to close"))
	return b.String()
}

func statusColor(s monitor.Status) lipgloss.Color {
	switch s {
	case monitor.StatusUp:
		return colorUp
	case monitor.StatusError:
		return colorError
	case monitor.StatusDown:
		return colorDown
	default:
		return colorSubtle
	}
}

func statusStyle(s monitor.Status) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(statusColor(s)).Bold(true)
}

func statusIcon(s monitor.Status) string {
	switch s {
	case monitor.StatusUp:
		return "✓"
	case monitor.StatusError:
		return "!"
	case monitor.StatusDown:
		return "✗"
	default:
		return "?"
	}
}

func codeColor(code int) lipgloss.Color {
	switch {
	case code >= 200 && code < 300:
		return colorUp
	case code >= 300 && code < 400:
		return colorError
	default:
		return colorDown
	}
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
