package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/demusis/rev-textos/internal/models"
)

// Color palette.
var (
	colorGreen  = lipgloss.Color("#50fa7b")
	colorYellow = lipgloss.Color("#f1fa8c")
	colorRed    = lipgloss.Color("#ff5555")
	colorDim    = lipgloss.Color("#6272a4")
	colorBlue   = lipgloss.Color("#8be9fd")
)

var (
	stageStyle   = lipgloss.NewStyle().Foreground(colorBlue).Bold(true).Width(14)
	percentStyle = lipgloss.NewStyle().Foreground(colorYellow).Width(5).Align(lipgloss.Right)
	barDoneStyle = lipgloss.NewStyle().Foreground(colorGreen)
	barRestStyle = lipgloss.NewStyle().Foreground(colorDim)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	okStyle      = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
)

const barWidth = 24

// consoleSink renders pipeline progress as styled lines on the terminal.
type consoleSink struct {
	out io.Writer
}

func (s *consoleSink) Notify(event models.ProgressEvent) {
	fmt.Fprintf(s.out, "%s %s %s %s\n",
		stageStyle.Render(event.Stage),
		renderBar(event.Percent),
		percentStyle.Render(fmt.Sprintf("%d%%", event.Percent)),
		dimStyle.Render(event.Message),
	)
}

func renderBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	done := percent * barWidth / 100
	return barDoneStyle.Render(strings.Repeat("█", done)) +
		barRestStyle.Render(strings.Repeat("░", barWidth-done))
}
