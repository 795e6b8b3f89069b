package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bezalel6/volumectl/internal/pairing"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).MarginBottom(1)
	codeStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Padding(0, 1)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	barFillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

const barWidth = 30

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.view == viewPairing {
		return m.pairingView()
	}
	return m.mixerView()
}

func (m Model) pairingView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Pair this device"))
	b.WriteString("\n")

	snap := m.machine.Snapshot()
	switch snap.State {
	case pairing.StateInitiating:
		b.WriteString("Contacting server...\n")

	case pairing.StateAwaitingCode, pairing.StateCompleting:
		b.WriteString("Enter the pairing code shown on the audio server:\n\n")
		b.WriteString("  " + codeStyle.Render(m.codeInput+"▌") + "\n\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("Code expires in %ds", snap.TimeRemaining)) + "\n")
		if snap.LastError != "" {
			b.WriteString(errorStyle.Render(snap.LastError) + "\n")
		}
		b.WriteString(dimStyle.Render("enter: submit · esc: cancel") + "\n")

	case pairing.StateFailed:
		b.WriteString(errorStyle.Render(snap.LastError) + "\n")
		b.WriteString(dimStyle.Render("press any key to retry · esc: quit") + "\n")

	case pairing.StateExpired:
		b.WriteString(errorStyle.Render("The pairing code expired.") + "\n")
		b.WriteString(dimStyle.Render("press any key to request a new one · esc: quit") + "\n")

	default:
		b.WriteString("Starting pairing...\n")
	}

	return b.String()
}

func (m Model) mixerView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Volume Mixer"))
	b.WriteString("\n")

	if len(m.devices) == 0 {
		b.WriteString(dimStyle.Render("No audio devices reported.") + "\n")
	}

	for i, d := range m.devices {
		cursor := "  "
		name := d.Name
		if i == m.cursor {
			cursor = "> "
			name = selectedStyle.Render(name)
		}
		if d.Default {
			name += dimStyle.Render(" (default)")
		}

		bar := volumeBar(d.Volume)
		state := fmt.Sprintf("%3.0f%%", d.Volume)
		if d.Muted {
			state = mutedStyle.Render("MUTED")
		}
		b.WriteString(fmt.Sprintf("%s%s\n    %s %s\n", cursor, name, bar, state))
	}

	if len(m.apps) > 0 {
		b.WriteString("\n" + dimStyle.Render("Applications") + "\n")
		for _, a := range m.apps {
			b.WriteString(fmt.Sprintf("  %-24s %s %3.0f%%\n", a.DisplayName, volumeBar(a.Volume), a.Volume))
		}
	}

	if m.lastErr != "" {
		b.WriteString("\n" + errorStyle.Render(m.lastErr) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("↑/↓: select · ←/→: volume · m: mute · r: refresh · q: quit") + "\n")
	return b.String()
}

func volumeBar(volume float64) string {
	filled := int(volume / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return barFillStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", barWidth-filled))
}
