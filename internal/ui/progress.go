package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProgressMsg carries cumulative byte counts from a readback run.
type ProgressMsg struct {
	Done  uint32
	Total uint32
}

// ProgressDoneMsg ends the live display. Report is printed by the caller
// after the program exits.
type ProgressDoneMsg struct{}

// ProgressModel is a live Bubble Tea display for long readback runs: a label,
// a gradient bar, and a byte counter. The operation runs in its own goroutine
// and feeds the model through Program.Send.
type ProgressModel struct {
	label string
	bar   progress.Model
	done  uint32
	total uint32
	width int
}

// NewProgressModel creates a progress display with the given label.
func NewProgressModel(label string) ProgressModel {
	width := GetTerminalWidth()

	barWidth := width - 30 // Leave room for the byte counter
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}

	return ProgressModel{
		label: label,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(barWidth),
		),
		width: width,
	}
}

// Init implements tea.Model
func (m ProgressModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.done = msg.Done
		m.total = msg.Total
		return m, nil
	case ProgressDoneMsg:
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model
func (m ProgressModel) View() string {
	var percent float64
	if m.total > 0 {
		percent = float64(m.done) / float64(m.total)
	}

	counter := ProgressCountStyle.Render(
		fmt.Sprintf("%d/%d bytes", m.done, m.total))

	bar := lipgloss.NewStyle().PaddingLeft(2).
		Render(m.bar.ViewAs(percent) + "  " + counter)

	return ProgressLabelStyle.Render(m.label) + "\n\n" + bar + "\n"
}
