package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imkarma/zedd/internal/report"
	"github.com/imkarma/zedd/internal/tracker"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrYellow    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// --- Styles ---
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	dimStyle    = lipgloss.NewStyle().Foreground(clrDim)
	subtleStyle = lipgloss.NewStyle().Foreground(clrSubtle)
	taskStyle   = lipgloss.NewStyle().Bold(true)

	timingOnStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrGreen)
	timingOffStyle = lipgloss.NewStyle().Bold(true).Foreground(clrRed)
	awayStyle      = lipgloss.NewStyle().Foreground(clrYellow)

	sliceCursorStyle = lipgloss.NewStyle().Foreground(clrHighlight)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrSubtle).
			Padding(0, 1)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrHighlight).
			Padding(1, 2).
			Width(60)

	statusStyle = lipgloss.NewStyle().Foreground(clrGreen).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(clrRed).Bold(true)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

// progressWidth is the width of the daily progress bar in cells.
const progressWidth = 30

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	content := m.viewDashboard()

	// Overlay popup if active.
	if m.popup != popupNone {
		content = m.overlayPopup(content)
	}

	return content
}

// ════════════════════════════════════════════════
// DASHBOARD
// ════════════════════════════════════════════════

func (m Model) viewDashboard() string {
	var b strings.Builder
	d := m.dash

	header := titleStyle.Render("zedd")
	if d.task == "" {
		header += dimStyle.Render(" — no task")
	} else {
		header += " " + taskStyle.Render(d.task)
	}
	if d.timing {
		header += "  " + timingOnStyle.Render("● timing")
	} else {
		header += "  " + timingOffStyle.Render("■ paused")
	}
	if d.mode == tracker.Away {
		header += "  " + awayStyle.Render("away")
	}
	if n := len(m.away); n > 0 {
		header += "  " + awayStyle.Render(fmt.Sprintf("%d absence(s) to review", n))
	}
	b.WriteString(header + "\n\n")

	b.WriteString(m.viewProgress() + "\n\n")
	b.WriteString(m.viewSlices() + "\n")

	if m.statusMsg != "" {
		style := statusStyle
		if m.statusErr {
			style = errorStyle
		}
		b.WriteString(style.Render("  "+m.statusMsg) + "\n")
	} else {
		b.WriteString("\n")
	}

	b.WriteString(m.footer())
	return b.String()
}

func (m Model) viewProgress() string {
	d := m.dash
	format := m.cfg.TimeFormat
	label := fmt.Sprintf("Today %s / %s",
		report.FormatHours(d.worked, format), report.FormatHours(d.target, format))
	if d.target <= 0 {
		return subtleStyle.Render(label)
	}

	filled := int(d.worked / d.target * progressWidth)
	if filled > progressWidth {
		filled = progressWidth
	}
	bar := timingOnStyle.Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", progressWidth-filled))
	return bar + " " + subtleStyle.Render(label)
}

func (m Model) viewSlices() string {
	d := m.dash
	if len(d.slices) == 0 {
		return panelStyle.Render(dimStyle.Render("Nothing recorded today."))
	}

	// Show the newest slices that fit.
	rows := len(d.slices)
	first := 0
	if m.height > 0 {
		if avail := m.height - 10; avail > 0 && rows > avail {
			first = rows - avail
		}
	}

	var lines []string
	if first > 0 {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("… %d earlier", first)))
	}
	for i := first; i < rows; i++ {
		line := d.slices[i]
		if i == d.cursor {
			line = sliceCursorStyle.Render("▸ " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	style := panelStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (m Model) footer() string {
	keys := []struct{ key, desc string }{
		{"s", "switch task"},
		{"p", "pause/resume"},
	}
	if m.dash.canUndo {
		keys = append(keys, struct{ key, desc string }{"u", "undo"})
	}
	if m.dash.canRedo {
		keys = append(keys, struct{ key, desc string }{"r", "redo"})
	}
	keys = append(keys, struct{ key, desc string }{"q", "quit"})
	return renderFooter(keys)
}

// ════════════════════════════════════════════════
// POPUPS
// ════════════════════════════════════════════════

func (m Model) overlayPopup(bg string) string {
	var popup string

	switch m.popup {
	case popupSwitch:
		popup = m.viewTaskPopup("Switch Task", "Time from now on goes to:")
	case popupIdle:
		popup = m.viewIdlePopup()
	case popupIdleTask:
		popup = m.viewTaskPopup("Book Absence", "Book "+m.awayLabel()+" on:")
	default:
		return bg
	}

	// Place popup in center of screen.
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			popup,
			lipgloss.WithWhitespaceChars(" "),
		)
	}

	return popup
}

func (m Model) awayLabel() string {
	if len(m.away) == 0 {
		return ""
	}
	return m.away[0].String()
}

func (m Model) viewIdlePopup() string {
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Foreground(clrYellow).Render("You were away")
	b.WriteString(title + "\n\n")

	if len(m.away) > 0 {
		away := m.away[0]
		b.WriteString(awayStyle.Render(away.String()) +
			dimStyle.Render(fmt.Sprintf("  (%s)", report.FormatHours(away.Duration().Hours(), report.FormatHHMM))) + "\n")
		if more := len(m.away) - 1; more > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("%d more after this one", more)) + "\n")
		}
		b.WriteString("\n")
	}

	current := m.dash.task
	if current == "" {
		current = "current task"
	}
	b.WriteString(footerKeyStyle.Render("d") + footerDescStyle.Render(" discard  ") +
		footerKeyStyle.Render("a") + footerDescStyle.Render(" book on "+current+"  ") +
		footerKeyStyle.Render("t") + footerDescStyle.Render(" other task"))

	return m.popupBoxStyle().Render(b.String())
}

func (m Model) viewTaskPopup(heading, prompt string) string {
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Foreground(clrHighlight).Render(heading)
	b.WriteString(title + "\n\n")

	b.WriteString(prompt + "\n")
	b.WriteString(m.textInput.View() + "\n\n")

	if len(m.suggestions) > 0 {
		b.WriteString(dimStyle.Render("Recent:") + "\n")
		for i, name := range m.suggestions {
			if i == m.suggestion {
				b.WriteString(sliceCursorStyle.Render("▸ "+name) + "\n")
			} else {
				b.WriteString(subtleStyle.Render("  "+name) + "\n")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(footerDescStyle.Render("enter confirm • tab recent • esc cancel"))

	return m.popupBoxStyle().Render(b.String())
}

func (m Model) popupBoxStyle() lipgloss.Style {
	w := 60
	if m.width > 0 {
		w = m.width - 12
		if w < 42 {
			w = 42
		}
		if w > 84 {
			w = 84
		}
	}
	return popupStyle.Width(w)
}

// ════════════════════════════════════════════════
// SHARED HELPERS
// ════════════════════════════════════════════════

func renderFooter(keys []struct{ key, desc string }) string {
	var parts []string
	for _, k := range keys {
		key := footerKeyStyle.Render(k.key)
		desc := footerDescStyle.Render(k.desc)
		parts = append(parts, key+" "+desc)
	}
	return "  " + strings.Join(parts, "  ")
}
